package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 520520

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// schemaMigrations lists migrations in apply order.
var schemaMigrations = []string{"000001_users", "000002_api_keys"}

// ResetSchema drops and recreates every table from migrations/.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	for i := len(schemaMigrations) - 1; i >= 0; i-- {
		if err := execFile(ctx, pool, filepath.Join(root, "migrations", schemaMigrations[i]+".down.sql")); err != nil {
			return fmt.Errorf("apply %s down migration: %w", schemaMigrations[i], err)
		}
	}
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS schema_migrations"); err != nil {
		return fmt.Errorf("drop schema_migrations: %w", err)
	}
	for _, name := range schemaMigrations {
		if err := execFile(ctx, pool, filepath.Join(root, "migrations", name+".up.sql")); err != nil {
			return fmt.Errorf("apply %s up migration: %w", name, err)
		}
	}

	return nil
}

func execFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sqlText, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if _, err := pool.Exec(ctx, string(sqlText)); err != nil {
		return err
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// TestPassword is the plaintext password of users built by NewTestUser.
const TestPassword = "correct-horse-battery"

var (
	testPasswordOnce sync.Once
	testPasswordHash string
	testPasswordErr  error
)

// NewTestUser creates an active, non-superuser user with sensible defaults.
// The password is TestPassword.
func NewTestUser(t testing.TB, username string) *model.User {
	t.Helper()
	testPasswordOnce.Do(func() {
		testPasswordHash, testPasswordErr = auth.HashPassword(TestPassword)
	})
	if testPasswordErr != nil {
		t.Fatalf("hash test password: %v", testPasswordErr)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.User{
		ID:             ulid.Make().String(),
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: testPasswordHash,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewTestSuperuser creates an active superuser.
func NewTestSuperuser(t testing.TB, username string) *model.User {
	t.Helper()
	u := NewTestUser(t, username)
	u.IsSuperuser = true
	return u
}

// NewTestAPIKey creates an active, non-expiring API key and returns its plaintext.
func NewTestAPIKey(t testing.TB, userID string) (*model.APIKey, string) {
	t.Helper()
	gen, err := auth.GenerateAPIKey(auth.DefaultAPIKeyLength)
	if err != nil {
		t.Fatalf("generate api key: %v", err)
	}
	return &model.APIKey{
		ID:        ulid.Make().String(),
		UserID:    userID,
		KeyHash:   gen.Hash,
		KeyPrefix: gen.Prefix,
		Name:      "Test Key",
		IsActive:  true,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}, gen.Plaintext
}

var nameSeq atomic.Int64

// UniqueName generates a unique name for tests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%1e9, nameSeq.Add(1))
}
