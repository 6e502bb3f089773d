package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// newTestClient starts a disposable Postgres container, applies the
// embedded migrations through the real NewClient path, and registers
// cleanup.
func newTestClient(t *testing.T) *Client {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("aegi_test"),
		postgres.WithUsername("aegi_test"),
		postgres.WithPassword("aegi_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	client, err := NewClient(ctx, Config{
		Host:            host,
		Port:            port.Int(),
		User:            "aegi_test",
		Password:        "aegi_test",
		Database:        "aegi_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestDatabaseClient_ConnectionPool(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.DB().PingContext(ctx))

	health, err := Health(ctx, client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxOpenConns, 0)
}

func TestFullTextSearch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	db := client.DB()

	insertCase(t, ctx, db, "case-1")
	insertClaim(t, ctx, db, "claim-1", "case-1", "Critical error in production cluster with pod failures")
	insertClaim(t, ctx, db, "claim-2", "case-1", "Warning: high memory usage detected")

	rows, err := db.QueryContext(ctx,
		`SELECT claim_uid FROM source_claims
		WHERE to_tsvector('english', text) @@ to_tsquery('english', $1)`,
		"error & production",
	)
	require.NoError(t, err)
	defer rows.Close()

	var results []string
	for rows.Next() {
		var claimUID string
		require.NoError(t, rows.Scan(&claimUID))
		results = append(results, claimUID)
	}
	assert.Equal(t, []string{"claim-1"}, results)
}

func insertCase(t *testing.T, ctx context.Context, db *sql.DB, uid string) {
	t.Helper()
	_, err := db.ExecContext(ctx, `INSERT INTO cases (case_uid, name) VALUES ($1, $1)`, uid)
	require.NoError(t, err)
}

func insertClaim(t *testing.T, ctx context.Context, db *sql.DB, claimUID, caseUID, text string) {
	t.Helper()
	_, err := db.ExecContext(ctx, `
		INSERT INTO chunks (chunk_uid, version_uid, case_uid, ordinal, text, anchors)
		VALUES ($1, $1, $2, 0, $3, '[{"type":"TextQuoteSelector","exact":"x"}]')
	`, "chunk-"+claimUID, caseUID, text)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `
		INSERT INTO artifact_identities (artifact_uid, case_uid, url) VALUES ($1, $2, 'https://example.test')
	`, "artifact-"+claimUID, caseUID)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO artifact_versions (version_uid, artifact_uid, storage_ref, content_type) VALUES ($1, $2, $1, 'text/plain')
	`, "chunk-"+claimUID, "artifact-"+claimUID)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `
		INSERT INTO source_claims (claim_uid, case_uid, chunk_uid, text, selectors)
		VALUES ($1, $2, $3, $4, '[{"type":"TextQuoteSelector","exact":"x"}]')
	`, claimUID, caseUID, "chunk-"+claimUID, text)
	require.NoError(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: false,
		},
		{
			name: "missing password",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "",
				Database: "test", MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed max conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 5, MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "zero max open conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 0, MaxIdleConns: 0,
			},
			wantErr: true,
		},
		{
			name: "negative idle conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 10, MaxIdleConns: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
