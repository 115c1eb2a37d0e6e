package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orthodoxmetrics/om-backend/pkg/config"
	redisclient "github.com/orthodoxmetrics/om-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	UserSessionsKey(userID uint) string
}

// Session is the server-side record behind one access token id. The church
// id is pinned at login so a token cannot be replayed against another tenant
// after the user's church changes.
type Session struct {
	UserID       uint      `json:"user_id"`
	ChurchID     *uint     `json:"church_id,omitempty"`
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Manager handles refresh token creation, storage, and rotation.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	Lookup(ctx context.Context, accessID string) (*Session, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := cfg.AccessTokenTTL()
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// Generate creates a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uint, churchID *uint) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	if userID == 0 {
		return "", fmt.Errorf("user id is required")
	}
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	sess := Session{UserID: userID, ChurchID: churchID, RefreshToken: token, IssuedAt: m.now().UTC()}
	if err := m.write(ctx, accessID, sess); err != nil {
		return "", err
	}
	if err := m.store.SAdd(ctx, m.keyer.UserSessionsKey(userID), m.ttl, accessID); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate validates the provided refresh token, invalidates the prior session,
// and issues a new access id and refresh token carrying the same principal.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, *Session, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", nil, ErrInvalidRefreshToken
	}

	current, err := m.Lookup(ctx, oldAccessID)
	if err != nil {
		return "", "", nil, err
	}
	if current == nil {
		return "", "", nil, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(current.RefreshToken), []byte(provided)) != 1 {
		return "", "", nil, ErrInvalidRefreshToken
	}

	newAccessID := NewAccessID()
	newToken, err := generateRefreshToken()
	if err != nil {
		return "", "", nil, err
	}
	next := Session{UserID: current.UserID, ChurchID: current.ChurchID, RefreshToken: newToken, IssuedAt: m.now().UTC()}
	if err := m.write(ctx, newAccessID, next); err != nil {
		return "", "", nil, err
	}
	userKey := m.keyer.UserSessionsKey(current.UserID)
	if err := m.store.SAdd(ctx, userKey, m.ttl, newAccessID); err != nil {
		return "", "", nil, err
	}
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(oldAccessID)); err != nil {
		return "", "", nil, err
	}
	if err := m.store.SRem(ctx, userKey, oldAccessID); err != nil {
		return "", "", nil, err
	}

	return newAccessID, newToken, &next, nil
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// RevokeUser deletes every session issued to userID and returns how many
// were indexed.
func (m *Manager) RevokeUser(ctx context.Context, userID uint) (int, error) {
	if userID == 0 {
		return 0, fmt.Errorf("user id is required")
	}
	userKey := m.keyer.UserSessionsKey(userID)
	accessIDs, err := m.store.SMembers(ctx, userKey)
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(accessIDs)+1)
	for _, id := range accessIDs {
		keys = append(keys, m.keyer.AccessSessionKey(id))
	}
	keys = append(keys, userKey)
	if err := m.store.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return len(accessIDs), nil
}

// Lookup returns the session for accessID, or nil when none is active.
func (m *Manager) Lookup(ctx context.Context, accessID string) (*Session, error) {
	if strings.TrimSpace(accessID) == "" {
		return nil, fmt.Errorf("access id is required")
	}
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

func (m *Manager) write(ctx context.Context, accessID string, sess Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(payload), m.ttl)
}

// NewAccessID produces a stable identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func generateRefreshToken() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
