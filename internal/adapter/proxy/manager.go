package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// Manager hands out proxies in round-robin order.
type Manager struct {
	proxies    []*url.URL
	mu         sync.Mutex
	proxyIndex int
}

// NewManager parses the given proxy URLs. An empty list means direct
// connections.
func NewManager(raw []string) (*Manager, error) {
	m := &Manager{}
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("proxy %q: %w", r, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy %q: scheme and host required", r)
		}
		m.proxies = append(m.proxies, u)
	}
	return m, nil
}

// Len is the number of configured proxies.
func (m *Manager) Len() int {
	return len(m.proxies)
}

// GetProxy returns the next proxy, rotating sequentially, or nil when none
// is configured.
func (m *Manager) GetProxy() *url.URL {
	if len(m.proxies) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	proxy := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return proxy
}

// ProxyFunc adapts the manager to http.Transport.Proxy.
func (m *Manager) ProxyFunc(*http.Request) (*url.URL, error) {
	return m.GetProxy(), nil
}
