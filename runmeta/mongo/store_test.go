package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/clearlane/deepresearch/runmeta"
)

func setupMongo(t *testing.T) *mongodriver.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo integration test in -short mode")
	}
	ctx := context.Background()

	ctr, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Skipf("docker not available, skipping mongo integration test: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	connStr, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongodriver.Connect(options.Client().ApplyURI(connStr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	require.NoError(t, client.Ping(ctx, nil))
	return client
}

// TestMongoStoreCreateLoadPatchAddTokensRoundTrip exercises a run's full
// metadata lifecycle (spec.md §3 Run fields) against a live MongoDB
// instance, including the total_tokens accumulation the in-memory store
// already covers in runmeta/inmem's unit tests.
func TestMongoStoreCreateLoadPatchAddTokensRoundTrip(t *testing.T) {
	client := setupMongo(t)
	ctx := context.Background()

	s, err := New(ctx, Options{Client: client, Database: "deepresearch_test", Collection: t.Name(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	created, err := s.Create(ctx, "run-1", "user-1", "CAP theorem research", time.Now())
	require.NoError(t, err)
	assert.Equal(t, runmeta.StatusActive, created.Status)

	require.NoError(t, s.AddTokens(ctx, "run-1", 120))
	require.NoError(t, s.AddTokens(ctx, "run-1", 80))

	loaded, err := s.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), loaded.TotalTokens)

	title := "renamed run"
	status := runmeta.StatusCompleted
	patched, err := s.Patch(ctx, "run-1", &title, &status)
	require.NoError(t, err)
	assert.Equal(t, "renamed run", patched.Title)
	assert.Equal(t, runmeta.StatusCompleted, patched.Status)

	require.NoError(t, s.Delete(ctx, "run-1"))
	_, err = s.Load(ctx, "run-1")
	assert.ErrorIs(t, err, runmeta.ErrNotFound)
}

func TestMongoStoreAddTokensUnknownRunReturnsErrNotFound(t *testing.T) {
	client := setupMongo(t)
	ctx := context.Background()

	s, err := New(ctx, Options{Client: client, Database: "deepresearch_test", Collection: t.Name()})
	require.NoError(t, err)

	err = s.AddTokens(ctx, "missing", 10)
	assert.ErrorIs(t, err, runmeta.ErrNotFound)
}
