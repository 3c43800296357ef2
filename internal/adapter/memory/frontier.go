package memory

import (
	"container/list"
	"context"
	"net/url"
	"sync"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/pkg/utils"
)

// Order selects which pending URL Next returns.
type Order int

const (
	FIFO Order = iota
	LIFO
)

// ParseOrder maps the FRONTIER_ORDER config value to an Order. Anything other
// than "lifo" is FIFO.
func ParseOrder(s string) Order {
	if s == "lifo" || s == "LIFO" {
		return LIFO
	}
	return FIFO
}

// Frontier keeps pending and visited URLs in process memory.
type Frontier struct {
	mu      sync.Mutex
	order   Order
	queue   *list.List // of *url.URL
	pending map[string]struct{}
	visited map[string]struct{}
}

var (
	_ repository.Frontier          = (*Frontier)(nil)
	_ repository.FrontierInspector = (*Frontier)(nil)
)

func NewFrontier(order Order) *Frontier {
	return &Frontier{
		order:   order,
		queue:   list.New(),
		pending: make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Add queues every URL that is neither visited nor already pending.
func (f *Frontier) Add(_ context.Context, urls []*url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range urls {
		if u == nil {
			continue
		}
		key := utils.NormalizeURL(u)
		if _, ok := f.visited[key]; ok {
			continue
		}
		if _, ok := f.pending[key]; ok {
			continue
		}
		f.pending[key] = struct{}{}
		f.queue.PushBack(u)
	}
	return nil
}

func (f *Frontier) Next(_ context.Context) (*url.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var e *list.Element
	if f.order == LIFO {
		e = f.queue.Back()
	} else {
		e = f.queue.Front()
	}
	if e == nil {
		return nil, repository.ErrFrontierEmpty
	}
	u := f.queue.Remove(e).(*url.URL)
	delete(f.pending, utils.NormalizeURL(u))
	return u, nil
}

// Visited marks u as fetched. A pending copy of u is dropped as well.
func (f *Frontier) Visited(_ context.Context, u *url.URL) error {
	if u == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := utils.NormalizeURL(u)
	f.visited[key] = struct{}{}
	if _, ok := f.pending[key]; ok {
		delete(f.pending, key)
		for e := f.queue.Front(); e != nil; e = e.Next() {
			if utils.NormalizeURL(e.Value.(*url.URL)) == key {
				f.queue.Remove(e)
				break
			}
		}
	}
	return nil
}

// Forget drops the visited mark for u so it can be crawled again.
func (f *Frontier) Forget(_ context.Context, u *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.visited, utils.NormalizeURL(u))
	return nil
}

func (f *Frontier) Len(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(f.queue.Len()), nil
}

func (f *Frontier) Status(_ context.Context, u *url.URL) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := utils.NormalizeURL(u)
	if _, ok := f.visited[key]; ok {
		return entity.StatusVisited, nil
	}
	if _, ok := f.pending[key]; ok {
		return entity.StatusPending, nil
	}
	return entity.StatusUnknown, nil
}
