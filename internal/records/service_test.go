package records

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func churchContext(t *testing.T, churchID uint, databaseName string) context.Context {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", t.Name(), databaseName)
	conn, err := db.Open(sqlite.Open(dsn), db.PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.TenantModels()...))
	t.Cleanup(func() { _ = db.CloseGorm(conn) })
	return tenancy.WithHandle(context.Background(), tenancy.Handle{ChurchID: churchID, DatabaseName: databaseName, DB: conn})
}

func body(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc := NewService(nil)
	ctx := churchContext(t, 7, "st_mary_records_db")

	_, err := svc.Create(ctx, "baptisms", 42, body(t, map[string]any{"first_name": "Maria", "last_name": "  ", "nickname": "x"}))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	assert.Equal(t, "is required", details["last_name"])
	assert.Equal(t, "is required", details["clergy"])
	assert.Equal(t, "unknown field", details["nickname"])

	_, err = svc.Create(ctx, "marriages", 42, body(t, map[string]any{"fname_groom": "Ivan", "lname_groom": "Petrov", "fname_bride": "Anna", "lname_bride": "Sokolova", "mdate": "June 5th"}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateGetUpdateDelete(t *testing.T) {
	svc := NewService(nil)
	ctx := churchContext(t, 7, "st_mary_records_db")

	created, err := svc.Create(ctx, "baptisms", 42, body(t, map[string]any{
		"first_name": "Maria",
		"last_name":  "Ivanova",
		"clergy":     "Fr. Ioann",
		"birth_date": "2023-04-16",
		"sponsors":   "",
	}))
	require.NoError(t, err)
	rec := created.(*models.BaptismRecord)
	require.NotZero(t, rec.ID)
	require.NotNil(t, rec.CreatedBy)
	assert.Equal(t, uint(42), *rec.CreatedBy)
	assert.Nil(t, rec.Sponsors, "blank optional fields are stored as NULL")
	require.NotNil(t, rec.BirthDate)
	assert.Equal(t, "2023-04-16", rec.BirthDate.Format(dateLayout))

	updated, err := svc.Update(ctx, "baptisms", rec.ID, body(t, map[string]any{
		"id":         rec.ID,
		"first_name": "Maria",
		"last_name":  "Ivanova",
		"clergy":     "Fr. Alexei",
		"created_by": 99,
	}))
	require.NoError(t, err)
	got := updated.(*models.BaptismRecord)
	assert.Equal(t, "Fr. Alexei", got.Clergy)
	assert.Nil(t, got.BirthDate, "update replaces omitted columns")
	assert.Equal(t, uint(42), *got.CreatedBy, "creator is not writable")

	_, err = svc.Update(ctx, "baptisms", 999, body(t, map[string]any{"first_name": "A", "last_name": "B", "clergy": "C"}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, "baptisms", rec.ID))
	_, err = svc.Get(ctx, "baptisms", rec.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.True(t, pkgerrors.IsCode(svc.Delete(ctx, "baptisms", rec.ID), pkgerrors.CodeNotFound))
}

func TestListPagingSearchAndSort(t *testing.T) {
	svc := NewService(nil)
	ctx := churchContext(t, 7, "st_mary_records_db")

	for i := 0; i < 25; i++ {
		clergy := "Fr. Ioann"
		if i%5 == 0 {
			clergy = "Fr. Alexei"
		}
		_, err := svc.Create(ctx, "funerals", 42, body(t, map[string]any{
			"name":     fmt.Sprintf("Name%02d", i),
			"lastname": "Orlov",
			"clergy":   clergy,
			"age":      60 + i,
		}))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, "funerals", ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 25, page.TotalRecords)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	rows := page.Records.([]models.FuneralRecord)
	require.Len(t, rows, defaultLimit)
	assert.Equal(t, "Name24", rows[0].FirstName, "default sort is id desc")

	page, err = svc.List(ctx, "funerals", ListQuery{Page: 2, Limit: 500, SortField: "age", SortDirection: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Empty(t, page.Records.([]models.FuneralRecord), "limit clamps to 100 so page 2 is empty")

	page, err = svc.List(ctx, "funerals", ListQuery{Search: "alexei", SortField: "age; DROP TABLE funeral_records", SortDirection: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.TotalRecords)
	rows = page.Records.([]models.FuneralRecord)
	assert.Equal(t, "Name00", rows[0].FirstName, "unknown sort field falls back to id")
}

func TestListSearchMatchesWildcardsLiterally(t *testing.T) {
	svc := NewService(nil)
	ctx := churchContext(t, 7, "st_mary_records_db")

	for _, name := range []string{"Anna_Maria", "AnnaXMaria", "100% Pure", "Olga"} {
		_, err := svc.Create(ctx, "funerals", 42, body(t, map[string]any{"name": name, "lastname": "Orlova"}))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, "funerals", ListQuery{Search: "_"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalRecords)

	page, err = svc.List(ctx, "funerals", ListQuery{Search: "%"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalRecords)

	page, err = svc.List(ctx, "funerals", ListQuery{Search: "a!"})
	require.NoError(t, err)
	assert.Zero(t, page.TotalRecords)
}

func TestListCapsHugePageNumbers(t *testing.T) {
	svc := NewService(nil)
	ctx := churchContext(t, 7, "st_mary_records_db")

	_, err := svc.Create(ctx, "funerals", 42, body(t, map[string]any{"name": "Petr", "lastname": "Smirnov"}))
	require.NoError(t, err)

	page, err := svc.List(ctx, "funerals", ListQuery{Page: math.MaxInt, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, maxPage, page.CurrentPage)
	assert.Empty(t, page.Records.([]models.FuneralRecord), "an out of range page must not wrap around to the first rows")
}

func TestQueryFailuresSurfaceAsInternalErrors(t *testing.T) {
	svc := NewService(nil)
	dsn := fmt.Sprintf("file:%s_empty?mode=memory&cache=shared", t.Name())
	conn, err := db.Open(sqlite.Open(dsn), db.PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.CloseGorm(conn) })
	ctx := tenancy.WithHandle(context.Background(), tenancy.Handle{ChurchID: 7, DatabaseName: "st_mary_records_db", DB: conn})

	_, err = svc.List(ctx, "baptisms", ListQuery{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus)

	_, err = svc.Create(ctx, "baptisms", 42, body(t, map[string]any{"first_name": "Maria", "last_name": "Ivanova", "clergy": "Fr. Ioann"}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal), "got %v", err)
}

func TestSaveBatch(t *testing.T) {
	svc := NewService(nil)
	ctx := churchContext(t, 7, "st_mary_records_db")

	first, err := svc.Create(ctx, "marriages", 42, body(t, map[string]any{"fname_groom": "Ivan", "lname_groom": "Petrov", "fname_bride": "Anna", "lname_bride": "Sokolova"}))
	require.NoError(t, err)
	existing := first.(*models.MarriageRecord)

	result, err := svc.SaveBatch(ctx, "marriages", 42, BatchRequest{Records: []json.RawMessage{
		body(t, map[string]any{"id": existing.ID, "fname_groom": "Ivan", "lname_groom": "Petrov", "fname_bride": "Anna", "lname_bride": "Petrova", "mdate": "2024-05-12"}),
		body(t, map[string]any{"fname_groom": "Pavel", "lname_groom": "Smirnov", "fname_bride": "Olga", "lname_bride": "Kuznetsova"}),
	}})
	require.NoError(t, err)
	require.Len(t, result.UpdatedRecords, 2)
	assert.Equal(t, "Petrova", result.UpdatedRecords[0].(*models.MarriageRecord).BrideLast)

	_, err = svc.SaveBatch(ctx, "marriages", 42, BatchRequest{Records: []json.RawMessage{
		body(t, map[string]any{"fname_groom": "Roman", "lname_groom": "Volkov", "fname_bride": "Irina", "lname_bride": "Lebedeva"}),
		body(t, map[string]any{"id": 404, "fname_groom": "X", "lname_groom": "Y", "fname_bride": "Z", "lname_bride": "W"}),
	}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := svc.List(ctx, "marriages", ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalRecords, "failed batch is rolled back")

	_, err = svc.SaveBatch(ctx, "marriages", 42, BatchRequest{Records: []json.RawMessage{body(t, map[string]any{"fname_groom": "only"})}})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.True(t, strings.HasPrefix(typed.Message(), "records[0]:"))

	oversized := make([]json.RawMessage, maxBatchSize+1)
	for i := range oversized {
		oversized[i] = body(t, map[string]any{"fname_groom": "A", "lname_groom": "B", "fname_bride": "C", "lname_bride": "D"})
	}
	_, err = svc.SaveBatch(ctx, "marriages", 42, BatchRequest{Records: oversized})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDropdownOptions(t *testing.T) {
	svc := NewService(nil)
	ctx := churchContext(t, 7, "st_mary_records_db")

	for _, clergy := range []string{"Fr. Ioann", "fr. ioann", " Fr. Alexei ", "Fr. Ioann"} {
		_, err := svc.Create(ctx, "baptisms", 42, body(t, map[string]any{"first_name": "A", "last_name": "B", "clergy": clergy}))
		require.NoError(t, err)
	}

	opts, err := svc.DropdownOptions(ctx, "baptisms", "clergy")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fr. Alexei", "Fr. Ioann"}, opts.Values)

	_, err = svc.DropdownOptions(ctx, "baptisms", "password_hash")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRequestsWithoutChurchDatabaseFailClosed(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.List(context.Background(), "baptisms", ListQuery{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTenantUnresolved))
	assert.Equal(t, tenancy.ReasonContextMissing, tenancy.ReasonOf(err))

	ctx := churchContext(t, 7, "st_mary_records_db")
	_, err = svc.List(ctx, "confessions", ListQuery{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestChurchDatabasesAreIsolated(t *testing.T) {
	svc := NewService(nil)
	stMary := churchContext(t, 7, "st_mary_records_db")
	trinity := churchContext(t, 9, "holy_trinity_records_db")

	_, err := svc.Create(stMary, "baptisms", 42, body(t, map[string]any{"first_name": "Maria", "last_name": "Ivanova", "clergy": "Fr. Ioann"}))
	require.NoError(t, err)

	page, err := svc.List(stMary, "baptisms", ListQuery{Search: "Ivanova"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalRecords)

	page, err = svc.List(trinity, "baptisms", ListQuery{Search: "Ivanova"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.TotalRecords)
}

func TestPathsAndLookup(t *testing.T) {
	assert.Equal(t, []string{"baptisms", "funerals", "marriages"}, Paths())
	def, ok := Lookup("funerals")
	require.True(t, ok)
	assert.Equal(t, "funeral_records", def.Table)
	_, ok = Lookup("confessions")
	assert.False(t, ok)
}
