package churches

import (
	"context"

	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes church persistence on the platform database.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a churches repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a church by primary key, inactive rows included.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Church, error) {
	var church models.Church
	if err := r.db.WithContext(ctx).First(&church, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &church, nil
}

// List returns churches ordered by name. Inactive churches are skipped
// unless includeInactive is set.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]models.Church, error) {
	var rows []models.Church
	q := r.db.WithContext(ctx).Order("name ASC").Order("id ASC")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a church.
func (r *Repository) Create(ctx context.Context, church *models.Church) error {
	return r.db.WithContext(ctx).Create(church).Error
}

// Save persists every column of church.
func (r *Repository) Save(ctx context.Context, church *models.Church) error {
	return r.db.WithContext(ctx).Save(church).Error
}

// SetDatabaseName points the church at its record database.
func (r *Repository) SetDatabaseName(ctx context.Context, id uint, name string) error {
	return r.db.WithContext(ctx).
		Model(&models.Church{}).
		Where("id = ?", id).
		Update("database_name", name).Error
}

// ClearDatabaseName unassigns the record database. Requests for the church
// then fail to resolve instead of reaching a missing schema.
func (r *Repository) ClearDatabaseName(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Church{}).
		Where("id = ?", id).
		Update("database_name", gorm.Expr("NULL")).Error
}

// Deactivate flags the church inactive. Rows are never hard deleted.
func (r *Repository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Church{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
