package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/redis/go-redis/v9"
)

// Tokens implements goGate.ResetTokenProvider.
//
// Keys:
//
//	<prefix>:tok:<id>          encoded token
//	<prefix>:treq:<userID>     ZSET of token ids scored by request time
//	<prefix>:tunused:<userID>  SET of ids still UNUSED
//
// With a TTL, every key expires TTL after the last write that touched it.
type Tokens struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewTokens returns a token store. ttl 0 keeps tokens until deleted by
// hand.
func NewTokens(client redis.UniversalClient, prefix string, ttl time.Duration) *Tokens {
	if prefix == "" {
		prefix = "gg"
	}
	return &Tokens{redis: client, prefix: prefix, ttl: ttl}
}

func (s *Tokens) tokenKey(id string) string {
	return s.prefix + ":tok:" + id
}

func (s *Tokens) requestsKey(userID int64) string {
	return s.prefix + ":treq:" + strconv.FormatInt(userID, 10)
}

func (s *Tokens) unusedKey(userID int64) string {
	return s.prefix + ":tunused:" + strconv.FormatInt(userID, 10)
}

// Save stores tok and records its request time in the per-user window.
func (s *Tokens) Save(ctx context.Context, tok *goGate.ResetToken) error {
	encoded, err := encodeToken(tok)
	if err != nil {
		return err
	}
	reqKey := s.requestsKey(tok.UserID)
	unusedKey := s.unusedKey(tok.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(tok.ID), encoded, s.ttl)
		pipe.ZAdd(ctx, reqKey, redis.Z{Score: float64(tok.RequestTime.UnixMilli()), Member: tok.ID})
		if tok.Status == goGate.TokenUnused {
			pipe.SAdd(ctx, unusedKey, tok.ID)
		} else {
			pipe.SRem(ctx, unusedKey, tok.ID)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, reqKey, s.ttl)
			pipe.Expire(ctx, unusedKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Update rewrites an existing token, typically after a status change.
func (s *Tokens) Update(ctx context.Context, tok *goGate.ResetToken) error {
	encoded, err := encodeToken(tok)
	if err != nil {
		return err
	}
	key := s.tokenKey(tok.ID)

	return watchRetry(ctx, s.redis, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return goGate.ErrTokenNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			if tok.Status != goGate.TokenUnused {
				pipe.SRem(ctx, s.unusedKey(tok.UserID), tok.ID)
			}
			return nil
		})
		return err
	}, key)
}

// CountRequests counts tokens requested for userID at or after since.
func (s *Tokens) CountRequests(ctx context.Context, userID int64, since time.Time) (int, error) {
	n, err := s.redis.ZCount(ctx, s.requestsKey(userID), strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// Get loads the token with the given id.
func (s *Tokens) Get(ctx context.Context, id string) (*goGate.ResetToken, error) {
	data, err := s.redis.Get(ctx, s.tokenKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goGate.ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeToken(data)
}

// InvalidateUnused marks every UNUSED token of userID as INVALID.
func (s *Tokens) InvalidateUnused(ctx context.Context, userID int64) error {
	unusedKey := s.unusedKey(userID)

	return watchRetry(ctx, s.redis, func(tx *redis.Tx) error {
		ids, err := tx.SMembers(ctx, unusedKey).Result()
		if err != nil {
			return err
		}

		rewrites := map[string][]byte{}
		for _, id := range ids {
			key := s.tokenKey(id)
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			tok, err := decodeToken(data)
			if err != nil {
				return err
			}
			if tok.Status != goGate.TokenUnused {
				continue
			}
			tok.Status = goGate.TokenInvalid
			if rewrites[key], err = encodeToken(tok); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, data := range rewrites {
				pipe.Set(ctx, key, data, redis.KeepTTL)
			}
			pipe.Del(ctx, unusedKey)
			return nil
		})
		return err
	}, unusedKey)
}
