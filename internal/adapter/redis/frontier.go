package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/redis/go-redis/v9"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/pkg/utils"
)

const (
	crawlQueueKey    = "crawler:queue"
	pendingSetKey    = "crawler:pending"
	visitedURLPrefix = "visited:"
)

// Frontier keeps the crawl frontier in Redis: a list used as a FIFO queue,
// a set mirroring its contents for dedup, and one key per visited URL.
// URLs are stored in their normalized form, so Next yields normalized URLs.
type Frontier struct {
	client redis.Cmdable
}

var (
	_ repository.Frontier          = (*Frontier)(nil)
	_ repository.FrontierInspector = (*Frontier)(nil)
)

// NewFrontier creates a Frontier on top of an existing client.
func NewFrontier(client redis.Cmdable) *Frontier {
	return &Frontier{client: client}
}

// visitedKey creates a consistent Redis key for a normalized URL by hashing it.
func visitedKey(normalized string) string {
	return visitedURLPrefix + utils.HashURL(normalized)
}

// enqueueScript pushes ARGV[1] unless its visited key exists or it is
// already pending. KEYS: visited key, pending set, queue.
var enqueueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then return 0 end
redis.call('LPUSH', KEYS[3], ARGV[1])
return 1
`)

// popScript pops the oldest URL and clears its pending mark in one step.
// KEYS: queue, pending set.
var popScript = redis.NewScript(`
local v = redis.call('RPOP', KEYS[1])
if not v then return false end
redis.call('SREM', KEYS[2], v)
return v
`)

// Add pushes each URL to the left side of the list unless it is visited or
// already pending.
func (f *Frontier) Add(ctx context.Context, urls []*url.URL) error {
	for _, u := range urls {
		if u == nil {
			continue
		}
		key := utils.NormalizeURL(u)
		keys := []string{visitedKey(key), pendingSetKey, crawlQueueKey}
		if err := enqueueScript.Run(ctx, f.client, keys, key).Err(); err != nil {
			return fmt.Errorf("enqueue %s: %w", key, err)
		}
	}
	return nil
}

// Next removes a URL from the right side of the list.
func (f *Frontier) Next(ctx context.Context) (*url.URL, error) {
	raw, err := popScript.Run(ctx, f.client, []string{crawlQueueKey, pendingSetKey}).Text()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrFrontierEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("pop from queue: %w", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("queued url %q: %w", raw, err)
	}
	return u, nil
}

// Visited sets the visited key without expiry and drops any pending copy.
func (f *Frontier) Visited(ctx context.Context, u *url.URL) error {
	if u == nil {
		return nil
	}
	key := utils.NormalizeURL(u)
	_, err := f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, visitedKey(key), "1", 0)
		pipe.SRem(ctx, pendingSetKey, key)
		pipe.LRem(ctx, crawlQueueKey, 0, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark visited %s: %w", key, err)
	}
	return nil
}

// Len returns the current number of items in the queue.
func (f *Frontier) Len(ctx context.Context) (int64, error) {
	return f.client.LLen(ctx, crawlQueueKey).Result()
}

func (f *Frontier) Status(ctx context.Context, u *url.URL) (string, error) {
	key := utils.NormalizeURL(u)

	seen, err := f.client.Exists(ctx, visitedKey(key)).Result()
	if err != nil {
		return "", err
	}
	if seen == 1 {
		return entity.StatusVisited, nil
	}
	pending, err := f.client.SIsMember(ctx, pendingSetKey, key).Result()
	if err != nil {
		return "", err
	}
	if pending {
		return entity.StatusPending, nil
	}
	return entity.StatusUnknown, nil
}

// Forget removes the visited mark for u so it can be crawled again.
func (f *Frontier) Forget(ctx context.Context, u *url.URL) error {
	return f.client.Del(ctx, visitedKey(utils.NormalizeURL(u))).Err()
}
