package dnsrecords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "trust:dns:"

// CachingResolver caches answers in Redis. Cache failures fall through to the
// wrapped resolver; only answers and NXDOMAIN are cached, never timeouts.
type CachingResolver struct {
	next   Resolver
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingResolver wraps next with a Redis cache
func NewCachingResolver(next Resolver, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachingResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachingResolver{next: next, client: client, ttl: ttl, logger: logger}
}

// NewRedisClient creates a client for the DNS cache
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 500 * time.Millisecond,
		ReadTimeout: 500 * time.Millisecond,
	})
}

type cachedAnswer struct {
	Found bool     `json:"found"`
	TXT   []string `json:"txt,omitempty"`
	MX    []mxJSON `json:"mx,omitempty"`
}

type mxJSON struct {
	Host string `json:"host"`
	Pref uint16 `json:"pref"`
}

func notFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func (c *CachingResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	key := cachePrefix + "mx:" + name
	if ans, ok := c.get(ctx, key); ok {
		if !ans.Found {
			return nil, notFound(name)
		}
		out := make([]*net.MX, 0, len(ans.MX))
		for _, m := range ans.MX {
			out = append(out, &net.MX{Host: m.Host, Pref: m.Pref})
		}
		return out, nil
	}

	mxs, err := c.next.LookupMX(ctx, name)
	switch {
	case err == nil:
		ans := cachedAnswer{Found: true}
		for _, m := range mxs {
			ans.MX = append(ans.MX, mxJSON{Host: m.Host, Pref: m.Pref})
		}
		c.set(ctx, key, ans)
	case IsNotFound(err):
		c.set(ctx, key, cachedAnswer{Found: false})
	}
	return mxs, err
}

func (c *CachingResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	key := cachePrefix + "txt:" + name
	if ans, ok := c.get(ctx, key); ok {
		if !ans.Found {
			return nil, notFound(name)
		}
		return ans.TXT, nil
	}

	txts, err := c.next.LookupTXT(ctx, name)
	switch {
	case err == nil:
		c.set(ctx, key, cachedAnswer{Found: true, TXT: txts})
	case IsNotFound(err):
		c.set(ctx, key, cachedAnswer{Found: false})
	}
	return txts, err
}

func (c *CachingResolver) get(ctx context.Context, key string) (cachedAnswer, bool) {
	var ans cachedAnswer
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("dns cache read failed", "key", key, "error", err)
		}
		return ans, false
	}
	if err := json.Unmarshal(raw, &ans); err != nil {
		c.logger.Debug("dns cache entry corrupt", "key", key, "error", err)
		return ans, false
	}
	return ans, true
}

func (c *CachingResolver) set(ctx context.Context, key string, ans cachedAnswer) {
	raw, err := json.Marshal(ans)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("dns cache write failed", "key", key, "error", fmt.Errorf("failed to cache answer: %w", err))
	}
}
