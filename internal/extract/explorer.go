package extract

import (
	"net/url"
	"sync"

	"github.com/user/polite-crawler/internal/document"
	"github.com/user/polite-crawler/internal/repository"
)

// SeedExplorer hands out its seed list on the first Idle call and nothing
// afterwards. Seeds added later with Push come out on the next Idle.
type SeedExplorer struct {
	mu    sync.Mutex
	known []*url.URL
}

var _ repository.Explorer = (*SeedExplorer)(nil)

func NewSeedExplorer(seeds []*url.URL) *SeedExplorer {
	return &SeedExplorer{known: append([]*url.URL(nil), seeds...)}
}

// Push queues more URLs for the next Idle call.
func (e *SeedExplorer) Push(urls ...*url.URL) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.known = append(e.known, urls...)
}

func (e *SeedExplorer) Idle() []*url.URL {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.known
	e.known = nil
	return out
}

func (e *SeedExplorer) OnFetched(*url.URL, *document.Document) []*url.URL {
	return nil
}
