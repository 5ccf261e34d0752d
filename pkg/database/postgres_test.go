package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundcompare/backend/pkg/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg := &config.Config{Database: config.DatabaseConfig{
		URL:             url,
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}}

	db, err := New(cfg)
	require.NoError(t, err, "database connection failed")
	t.Cleanup(db.Close)
	return db
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(&config.Config{Database: config.DatabaseConfig{URL: "postgres://localhost/%zz"}})
	assert.Error(t, err)
}

func TestDocumentRoundTrip(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, db.EnsureSchema(ctx))

	name := "test-catalog-" + time.Now().Format("150405.000000")
	require.NoError(t, db.PutDocument(ctx, name, []byte(`{"Funds":[]}`)))
	defer db.Pool.Exec(ctx, `DELETE FROM feed_documents WHERE name = $1`, name)

	body, err := db.Document(ctx, name)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Funds":[]}`, string(body))

	_, err = db.Document(ctx, name+"-missing")
	assert.True(t, errors.Is(err, ErrDocumentNotFound))

	require.NoError(t, db.PutDocument(ctx, name, []byte(`{"Funds":[{}]}`)))
	docs, err := db.ListDocuments(ctx)
	require.NoError(t, err)

	var found *DocumentInfo
	for i := range docs {
		if docs[i].Name == name {
			found = &docs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, len(`{"Funds":[{}]}`), found.Size)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.TotalConns, int32(0))
}
