package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goGate "github.com/MrEthical07/goGate"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 4

// ErrRedisUnavailable wraps transport and server errors.
var ErrRedisUnavailable = errors.New("redisstore: redis unavailable")

// Records implements goGate.AuthenticationProvider. Each record lives at
// <prefix>:rec:<userID>, and <prefix>:uname:<username> indexes it by
// username.
type Records struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRecords returns a record store. An empty prefix defaults to "gg".
func NewRecords(client redis.UniversalClient, prefix string) *Records {
	if prefix == "" {
		prefix = "gg"
	}
	return &Records{redis: client, prefix: prefix}
}

func (s *Records) recordKey(userID int64) string {
	return s.prefix + ":rec:" + strconv.FormatInt(userID, 10)
}

func (s *Records) usernameKey(username string) string {
	return s.prefix + ":uname:" + username
}

// FindByUsername resolves the username index and loads the record it points at.
func (s *Records) FindByUsername(ctx context.Context, username string) (*goGate.AuthenticationRecord, error) {
	id, err := s.redis.Get(ctx, s.usernameKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goGate.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.FindByUserID(ctx, id)
}

// FindByUserID loads the record stored for userID.
func (s *Records) FindByUserID(ctx context.Context, userID int64) (*goGate.AuthenticationRecord, error) {
	data, err := s.redis.Get(ctx, s.recordKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goGate.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeRecord(data)
}

// Create stores a new record. It fails with goGate.ErrRecordExists or
// goGate.ErrUsernameTaken instead of overwriting.
func (s *Records) Create(ctx context.Context, rec *goGate.AuthenticationRecord) error {
	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	recKey := s.recordKey(rec.UserID)
	nameKey := s.usernameKey(rec.Username)

	return watchRetry(ctx, s.redis, func(tx *redis.Tx) error {
		if n, err := tx.Exists(ctx, recKey).Result(); err != nil {
			return err
		} else if n > 0 {
			return goGate.ErrRecordExists
		}
		if n, err := tx.Exists(ctx, nameKey).Result(); err != nil {
			return err
		} else if n > 0 {
			return goGate.ErrUsernameTaken
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, recKey, encoded, 0)
			pipe.Set(ctx, nameKey, rec.UserID, 0)
			return nil
		})
		return err
	}, recKey, nameKey)
}

// Save replaces an existing record and moves the username index when the
// username changed.
func (s *Records) Save(ctx context.Context, rec *goGate.AuthenticationRecord) error {
	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	recKey := s.recordKey(rec.UserID)
	nameKey := s.usernameKey(rec.Username)

	return watchRetry(ctx, s.redis, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, recKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return goGate.ErrRecordNotFound
			}
			return err
		}
		current, err := decodeRecord(data)
		if err != nil {
			return err
		}

		renamed := current.Username != rec.Username
		if renamed {
			owner, err := tx.Get(ctx, nameKey).Int64()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			case owner != rec.UserID:
				return goGate.ErrUsernameTaken
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, recKey, encoded, 0)
			if renamed {
				pipe.Set(ctx, nameKey, rec.UserID, 0)
				pipe.Del(ctx, s.usernameKey(current.Username))
			}
			return nil
		})
		return err
	}, recKey, nameKey)
}

// watchRetry runs fn under WATCH on keys, retrying on optimistic-lock
// failure.
func watchRetry(ctx context.Context, client redis.UniversalClient, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if isDomainError(err) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}
	return fmt.Errorf("%w: too much contention", ErrRedisUnavailable)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		goGate.ErrRecordExists,
		goGate.ErrUsernameTaken,
		goGate.ErrRecordNotFound,
		goGate.ErrTokenNotFound,
		errBadVersion,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
