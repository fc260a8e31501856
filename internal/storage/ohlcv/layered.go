package ohlcv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/newthinker/meridian/internal/core"
)

// KV is the subset of the redis client the layered gateway uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Layered fronts a durable gateway with a redis copy of the latest result
// per key. Writes go to the durable store first; redis failures are logged
// and never fail the call.
type Layered struct {
	l1     KV
	store  Gateway
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewLayered creates a layered gateway. ttl bounds how long an entry lives in
// redis when the result carries no freshness window.
func NewLayered(l1 KV, store Gateway, prefix string, ttl time.Duration, logger *zap.Logger) *Layered {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "meridian"
	}
	return &Layered{l1: l1, store: store, prefix: prefix, ttl: ttl, logger: logger}
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("redis ping: %w", err))
	}
	return client, nil
}

func (l *Layered) key(symbol, source string, interval core.Interval) string {
	return fmt.Sprintf("%s:ohlcv:%s:%s:%s", l.prefix, source, interval, symbol)
}

func (l *Layered) GetLatest(ctx context.Context, inst core.Instrument, source string, interval core.Interval) (core.FetchResult, bool, error) {
	k := l.key(inst.Symbol, source, interval)

	data, err := l.l1.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return snap.result(), true, nil
		}
		l.logger.Warn("discarding undecodable cache entry", zap.String("key", k))
	case errors.Is(err, redis.Nil):
	default:
		l.logger.Warn("redis read failed", zap.String("key", k), zap.Error(err))
	}

	r, ok, err := l.store.GetLatest(ctx, inst, source, interval)
	if err != nil || !ok {
		return r, ok, err
	}
	l.fill(ctx, k, r)
	return r, true, nil
}

func (l *Layered) Put(ctx context.Context, r core.FetchResult) error {
	if err := l.store.Put(ctx, r); err != nil {
		return err
	}
	l.fill(ctx, l.key(r.Series.Instrument.Symbol, r.Source, r.Series.Interval), r)
	return nil
}

func (l *Layered) fill(ctx context.Context, k string, r core.FetchResult) {
	data, err := json.Marshal(toSnapshot(r))
	if err != nil {
		l.logger.Warn("encoding cache entry", zap.String("key", k), zap.Error(err))
		return
	}
	ttl := l.ttl
	if r.FreshFor > 0 && (ttl == 0 || r.FreshFor < ttl) {
		ttl = r.FreshFor
	}
	if err := l.l1.Set(ctx, k, data, ttl).Err(); err != nil {
		l.logger.Warn("redis write failed", zap.String("key", k), zap.Error(err))
	}
}
