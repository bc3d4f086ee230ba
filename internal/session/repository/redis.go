package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"qna-platform/backend/internal/session/domain"
)

const (
	sessionKeyPrefix   = "qna:session:"
	fieldRecord        = "rec"
	fieldSignedOutAt   = "signed_out_at"
	recordVersionV1    = 1
	signOutStatusSet   = 1
	signOutStatusNoop  = 0
	signOutStatusEmpty = -1
)

var (
	// ErrStoreUnavailable wraps transport failures talking to Redis.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrCorruptRecord is returned when a stored session cannot be decoded.
	ErrCorruptRecord = errors.New("session record corrupt")
)

// signOutScript sets signed_out_at once, and only on an existing session hash.
var signOutScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], "rec") == 0 then
  return -1
end
return redis.call("HSETNX", KEYS[1], "signed_out_at", ARGV[1])
`)

var (
	recordEncMode cbor.EncMode
	recordDecMode cbor.DecMode
)

func init() {
	var err error
	recordEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}
	recordDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

// redisRecord is the immutable part of a session. SignedOutAt lives in its own hash
// field so it can be set atomically with HSETNX.
type redisRecord struct {
	Version   uint8  `cbor:"1,keyasint"`
	ID        string `cbor:"2,keyasint"`
	AccountID string `cbor:"3,keyasint"`
	IssuedAt  int64  `cbor:"4,keyasint"`
	ExpiresAt int64  `cbor:"5,keyasint"`
}

// RedisRepository stores each session as a Redis hash keyed by token fingerprint.
// Keys carry no TTL: sessions, signed out or not, are kept for audit.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository returns a session repository backed by client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) key(tokenHash string) string {
	return sessionKeyPrefix + tokenHash
}

// GetByTokenHash returns the session for tokenHash, or nil if not found.
func (r *RedisRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	vals, err := r.client.HMGet(ctx, r.key(tokenHash), fieldRecord, fieldSignedOutAt).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, nil
	}
	var rec redisRecord
	if err := recordDecMode.Unmarshal([]byte(raw), &rec); err != nil || rec.Version != recordVersionV1 {
		return nil, ErrCorruptRecord
	}
	s := &domain.Session{
		ID:        rec.ID,
		AccountID: rec.AccountID,
		TokenHash: tokenHash,
		IssuedAt:  time.Unix(0, rec.IssuedAt).UTC(),
		ExpiresAt: time.Unix(0, rec.ExpiresAt).UTC(),
	}
	if v, ok := vals[1].(string); ok {
		nanos, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, ErrCorruptRecord
		}
		at := time.Unix(0, nanos).UTC()
		s.SignedOutAt = &at
	}
	return s, nil
}

// Create stores the session. The record is written with HSETNX so an existing
// fingerprint is never overwritten.
func (r *RedisRepository) Create(ctx context.Context, s *domain.Session) error {
	encoded, err := recordEncMode.Marshal(redisRecord{
		Version:   recordVersionV1,
		ID:        s.ID,
		AccountID: s.AccountID,
		IssuedAt:  s.IssuedAt.UnixNano(),
		ExpiresAt: s.ExpiresAt.UnixNano(),
	})
	if err != nil {
		return err
	}
	key := r.key(s.TokenHash)
	created, err := r.client.HSetNX(ctx, key, fieldRecord, encoded).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !created {
		return domain.ErrDuplicateToken
	}
	if s.SignedOutAt != nil {
		if err := r.client.HSetNX(ctx, key, fieldSignedOutAt, strconv.FormatInt(s.SignedOutAt.UnixNano(), 10)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

// MarkSignedOut sets signed_out_at if the session exists and has not been signed out.
func (r *RedisRepository) MarkSignedOut(ctx context.Context, tokenHash string, at time.Time) (bool, error) {
	status, err := signOutScript.Run(ctx, r.client, []string{r.key(tokenHash)}, strconv.FormatInt(at.UnixNano(), 10)).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	switch status {
	case signOutStatusSet:
		return true, nil
	case signOutStatusNoop, signOutStatusEmpty:
		return false, nil
	}
	return false, fmt.Errorf("session: unexpected sign-out status %d", status)
}
