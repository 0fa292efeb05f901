package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clearlane/deepresearch/approval"
)

// setupRedis starts a disposable Redis container and returns a connected
// client, skipping the test if Docker isn't available. Gated behind -short
// the same way the Mongo-backed stores are.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in -short mode")
	}
	ctx := context.Background()

	var ctr testcontainers.Container
	var containerErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("docker not available: %v", r)
			}
		}()
		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		}
		ctr, containerErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
	}()
	if containerErr != nil {
		t.Skipf("docker not available, skipping redis integration test: %v", containerErr)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(ctx).Err())
	return client
}

// TestRedisStoreRequestRespondLoadRoundTrip exercises the approval CAS
// lifecycle (spec.md §4.6) against a live Redis instance: a terminal
// command's pending approval can be requested, responded to, and loaded
// back with the resolved decision.
func TestRedisStoreRequestRespondLoadRoundTrip(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	s, err := New(rdb)
	require.NoError(t, err)

	a, err := s.Request(ctx, "run-1", "hash-1", "rm -rf /tmp/scratch")
	require.NoError(t, err)
	assert.Equal(t, approval.Pending, a.Decision)

	resolved, err := s.Respond(ctx, "run-1", "hash-1", true)
	require.NoError(t, err)
	assert.Equal(t, approval.Granted, resolved.Decision)

	loaded, err := s.Load(ctx, "run-1", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, approval.Granted, loaded.Decision)
}

// TestRedisStoreRespondAfterConsumedRejectsFlip verifies the idempotence
// law spec.md §8 requires: once the driver has read a decision via
// RecordConsumed, a later Respond with the opposite decision is rejected.
func TestRedisStoreRespondAfterConsumedRejectsFlip(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	s, err := New(rdb)
	require.NoError(t, err)

	_, err = s.Request(ctx, "run-1", "hash-1", "rm -rf /tmp/scratch")
	require.NoError(t, err)
	_, err = s.Respond(ctx, "run-1", "hash-1", true)
	require.NoError(t, err)
	require.NoError(t, s.RecordConsumed(ctx, "run-1", "hash-1"))

	_, err = s.Respond(ctx, "run-1", "hash-1", false)
	assert.ErrorIs(t, err, approval.ErrAlreadyResolved)
}

// TestRedisStoreListPendingAndDeleteRun exercises ListPending and the
// run-deletion cascade over a larger set of approvals.
func TestRedisStoreListPendingAndDeleteRun(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	s, err := New(rdb)
	require.NoError(t, err)

	_, err = s.Request(ctx, "run-1", "hash-1", "echo one")
	require.NoError(t, err)
	_, err = s.Request(ctx, "run-1", "hash-2", "echo two")
	require.NoError(t, err)
	_, err = s.Respond(ctx, "run-1", "hash-2", true)
	require.NoError(t, err)

	pending, err := s.ListPending(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "hash-1", pending[0].CommandHash)

	require.NoError(t, s.DeleteRun(ctx, "run-1"))
	_, err = s.Load(ctx, "run-1", "hash-1")
	assert.ErrorIs(t, err, approval.ErrNotFound)
}
