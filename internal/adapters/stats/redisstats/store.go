// Package redisstats guarda contadores del ciclo de vida de requests en hashes de Redis.
//
// Layout:
//
//	<prefix>:total              field "<kind>:<outcome>", acumulado, sin TTL
//	<prefix>:minute:YYYYMMDDhhmm field "<kind>:<outcome>", expira según ttl
package redisstats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"social-coordination/internal/domain/admission"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration
	// bucket: "minute" (default) o "none".
	bucket string
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if p := strings.Trim(strings.TrimSpace(prefix), ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

func WithBucket(bucket string) Option {
	return func(s *Store) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func NewStore(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{
		rdb:    rdb,
		prefix: "social:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping sirve para fallar temprano en el arranque.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Record(ctx context.Context, t admission.Transition) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	field := fieldFor(t)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.totalKey(), field, 1)
	if s.bucket == "minute" {
		key := s.minuteKey(at)
		pipe.HIncrBy(ctx, key, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Totals(ctx context.Context) (map[string]int64, error) {
	return s.read(ctx, s.totalKey())
}

// Minute devuelve los contadores del bucket que contiene at.
func (s *Store) Minute(ctx context.Context, at time.Time) (map[string]int64, error) {
	return s.read(ctx, s.minuteKey(at))
}

func (s *Store) read(ctx context.Context, key string) (map[string]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stats: field %s of %s is not a counter: %w", k, key, err)
		}
		out[k] = n
	}
	return out, nil
}

func (s *Store) totalKey() string { return s.prefix + ":total" }

func (s *Store) minuteKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}

func fieldFor(t admission.Transition) string {
	kind := strings.TrimSpace(t.Kind)
	if kind == "" {
		kind = "unknown"
	}
	return kind + ":" + strings.TrimSpace(t.Outcome)
}
