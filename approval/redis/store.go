// Package redis implements approval.Store against Redis, giving a clustered
// deployment a shared compare-and-set point for (run_id, command_hash).
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/clearlane/deepresearch/approval"
)

// Store implements approval.Store against Redis. Each approval is a hash at
// key "approval:{run_id}:{command_hash}"; pending hashes for a run are also
// tracked in a set at "approval:pending:{run_id}" so ListPending need not
// scan keys.
type Store struct {
	rdb *redis.Client
}

// New returns a Store backed by rdb.
func New(rdb *redis.Client) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("redis: client is required")
	}
	return &Store{rdb: rdb}, nil
}

func approvalKey(runID, commandHash string) string {
	return fmt.Sprintf("approval:%s:%s", runID, commandHash)
}

func pendingSetKey(runID string) string {
	return fmt.Sprintf("approval:pending:%s", runID)
}

func allSetKey(runID string) string {
	return fmt.Sprintf("approval:all:%s", runID)
}

// requestScript inserts the hash fields only if the key does not already
// exist, and registers it in the run's pending set. Returns 1 if inserted,
// 0 if it already existed.
var requestScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "run_id", ARGV[1], "command_hash", ARGV[2], "command_text", ARGV[3], "decision", "0", "consumed", "0")
redis.call("SADD", KEYS[2], ARGV[2])
redis.call("SADD", KEYS[3], ARGV[2])
return 1
`)

// Request implements approval.Store.
func (s *Store) Request(ctx context.Context, runID, commandHash, commandText string) (approval.Approval, error) {
	key := approvalKey(runID, commandHash)
	_, err := requestScript.Run(ctx, s.rdb,
		[]string{key, pendingSetKey(runID), allSetKey(runID)},
		runID, commandHash, commandText).Result()
	if err != nil {
		return approval.Approval{}, err
	}
	return s.Load(ctx, runID, commandHash)
}

// respondScript flips decision only when the approval exists and (it is
// unconsumed, or the requested decision matches the stored one). Returns
// "ok", "not_found", or "resolved".
var respondScript = redis.NewScript(`
local exists = redis.call("EXISTS", KEYS[1])
if exists == 0 then
  return "not_found"
end
local consumed = redis.call("HGET", KEYS[1], "consumed")
local current = redis.call("HGET", KEYS[1], "decision")
if consumed == "1" and current ~= ARGV[1] then
  return "resolved"
end
redis.call("HSET", KEYS[1], "decision", ARGV[1])
if ARGV[1] ~= "0" then
  redis.call("SREM", KEYS[2], ARGV[2])
end
return "ok"
`)

// Respond implements approval.Store.
func (s *Store) Respond(ctx context.Context, runID, commandHash string, approved bool) (approval.Approval, error) {
	decision := approval.Denied
	if approved {
		decision = approval.Granted
	}
	key := approvalKey(runID, commandHash)
	res, err := respondScript.Run(ctx, s.rdb,
		[]string{key, pendingSetKey(runID)},
		strconv.Itoa(int(decision)), commandHash).Result()
	if err != nil {
		return approval.Approval{}, err
	}
	switch res {
	case "not_found":
		return approval.Approval{}, approval.ErrNotFound
	case "resolved":
		return approval.Approval{}, approval.ErrAlreadyResolved
	}
	return s.Load(ctx, runID, commandHash)
}

// Load implements approval.Store.
func (s *Store) Load(ctx context.Context, runID, commandHash string) (approval.Approval, error) {
	vals, err := s.rdb.HGetAll(ctx, approvalKey(runID, commandHash)).Result()
	if err != nil {
		return approval.Approval{}, err
	}
	if len(vals) == 0 {
		return approval.Approval{}, approval.ErrNotFound
	}
	return fromHash(vals)
}

// ListPending implements approval.Store.
func (s *Store) ListPending(ctx context.Context, runID string) ([]approval.Approval, error) {
	hashes, err := s.rdb.SMembers(ctx, pendingSetKey(runID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]approval.Approval, 0, len(hashes))
	for _, h := range hashes {
		a, err := s.Load(ctx, runID, h)
		if errors.Is(err, approval.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if a.Decision == approval.Pending {
			out = append(out, a)
		}
	}
	return out, nil
}

// RecordConsumed implements approval.Store.
func (s *Store) RecordConsumed(ctx context.Context, runID, commandHash string) error {
	key := approvalKey(runID, commandHash)
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return approval.ErrNotFound
	}
	return s.rdb.HSet(ctx, key, "consumed", "1").Err()
}

// DeleteRun implements approval.Store.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	hashes, err := s.rdb.SMembers(ctx, allSetKey(runID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(hashes)+2)
	for _, h := range hashes {
		keys = append(keys, approvalKey(runID, h))
	}
	keys = append(keys, pendingSetKey(runID), allSetKey(runID))
	return s.rdb.Del(ctx, keys...).Err()
}

func fromHash(vals map[string]string) (approval.Approval, error) {
	decision, err := strconv.Atoi(vals["decision"])
	if err != nil {
		return approval.Approval{}, fmt.Errorf("redis: invalid decision field: %w", err)
	}
	return approval.Approval{
		RunID:       vals["run_id"],
		CommandHash: vals["command_hash"],
		CommandText: vals["command_text"],
		Decision:    approval.Decision(decision),
	}, nil
}
