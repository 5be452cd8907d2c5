package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/PoYaSharonLin/Sparko-api/internal/db"
)

// KEYS[1] hash key; ARGV[1] guarded field; ARGV[2] expected value; ARGV[3..] field/value pairs.
const compareAndSetSrc = `
if redis.call('HGET', KEYS[1], ARGV[1]) ~= ARGV[2] then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
return 1
`

// KEYS[1] hash key; KEYS[2] index hash; ARGV[1] guarded field; ARGV[2] expected
// value; ARGV[3] index value; ARGV[4] index order; ARGV[5..] field/value pairs.
// Orders are decimal integers, compared by length first so no float rounding applies.
const compareAndSetIndexedSrc = `
if redis.call('HGET', KEYS[1], ARGV[1]) ~= ARGV[2] then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 5))
local cur = redis.call('HGET', KEYS[2], 'order')
if cur and (#cur > #ARGV[4] or (#cur == #ARGV[4] and cur > ARGV[4])) then
  return 1
end
redis.call('HSET', KEYS[2], 'value', ARGV[3], 'order', ARGV[4])
return 1
`

var (
	compareAndSet        = rueidis.NewLuaScript(compareAndSetSrc)
	compareAndSetIndexed = rueidis.NewLuaScript(compareAndSetIndexedSrc)
)

// HCompareAndSet writes fields only if hash[field] == expected, atomically on the server.
func (s *Store) HCompareAndSet(
	ctx context.Context, key, field, expected string, fields map[string]string,
) (bool, error) {
	args := casArgs([]string{field, expected}, field, expected, fields)
	n, err := compareAndSet.Exec(ctx, s.client, []string{key}, args).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpEval, Err: err}
	}
	return n == 1, nil
}

// HCompareAndSetIndexed is HCompareAndSet plus, in the same script, pointing
// idx.Key at idx.Value unless the index already holds a larger order.
func (s *Store) HCompareAndSetIndexed(
	ctx context.Context, key, field, expected string, fields map[string]string, idx db.IndexEntry,
) (bool, error) {
	args := casArgs([]string{field, expected, idx.Value, idx.Order}, field, expected, fields)
	n, err := compareAndSetIndexed.Exec(ctx, s.client, []string{key, idx.Key}, args).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpEval, Err: err}
	}
	return n == 1, nil
}

func casArgs(head []string, field, expected string, fields map[string]string) []string {
	args := make([]string, 0, len(head)+2*len(fields)+2)
	args = append(args, head...)
	for _, kv := range pairs(fields) {
		args = append(args, kv[0], kv[1])
	}
	if len(fields) == 0 {
		// HSET needs at least one pair; rewriting the guarded field is a no-op.
		args = append(args, field, expected)
	}
	return args
}
