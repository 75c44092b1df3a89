package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spigell/career-twin/internal/interview"
)

var _ interview.SessionLog = (*RedisLog)(nil)

const defaultRedisPrefix = "career-twin:session:"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisLog keeps one write-once key per completed session.
type RedisLog struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisLog connects and pings the server before returning.
func NewRedisLog(ctx context.Context, opts RedisOptions) (*RedisLog, error) {
	if opts.Addr == "" {
		return nil, errors.New("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisLog(rdb, opts.Prefix), nil
}

func newRedisLog(rdb goredis.UniversalClient, prefix string) *RedisLog {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLog{rdb: rdb, prefix: prefix}
}

func (l *RedisLog) AppendSessionRecord(ctx context.Context, sessionID string, record interview.SessionRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}

	if err := l.rdb.SetNX(ctx, l.prefix+sessionID, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}

	return nil
}

func (l *RedisLog) LoadSessionRecord(ctx context.Context, sessionID string) (*interview.SessionRecord, bool, error) {
	raw, err := l.rdb.Get(ctx, l.prefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var record interview.SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false, fmt.Errorf("decode session record: %w", err)
	}

	return &record, true, nil
}

func (l *RedisLog) Close() error {
	return l.rdb.Close()
}
