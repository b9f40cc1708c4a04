package platform

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Connectivity reports and watches the device's network state.
type Connectivity interface {
	// IsConnected probes the current network state.
	IsConnected(ctx context.Context) bool

	// Subscribe registers a callback invoked on every state change
	// with the new state. It returns an unsubscribe function.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// ManualConnectivity is a Connectivity whose state is set by the caller.
// Tests and the ephemeral build drive it directly.
type ManualConnectivity struct {
	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]func(online bool)
}

// NewManualConnectivity creates a ManualConnectivity in the given state.
func NewManualConnectivity(online bool) *ManualConnectivity {
	return &ManualConnectivity{
		online:    online,
		listeners: make(map[int]func(online bool)),
	}
}

// IsConnected returns the current state.
func (c *ManualConnectivity) IsConnected(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// SetOnline updates the state and notifies subscribers on change.
func (c *ManualConnectivity) SetOnline(online bool) {
	c.mu.Lock()
	if c.online == online {
		c.mu.Unlock()
		return
	}
	c.online = online
	fns := make([]func(bool), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// Subscribe registers a state-change callback.
func (c *ManualConnectivity) Subscribe(fn func(online bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// HTTPConnectivity probes a well-known endpoint on an interval and
// reports transitions. It is the desktop implementation, where no OS
// network-change notification is wired up.
type HTTPConnectivity struct {
	probeURL string
	interval time.Duration
	client   *http.Client

	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]func(online bool)
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewHTTPConnectivity creates a prober against probeURL. A HEAD request
// that completes, whatever the status, counts as online.
func NewHTTPConnectivity(probeURL string, interval time.Duration) *HTTPConnectivity {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HTTPConnectivity{
		probeURL:  probeURL,
		interval:  interval,
		client:    &http.Client{Timeout: 5 * time.Second},
		listeners: make(map[int]func(online bool)),
		stop:      make(chan struct{}),
	}
}

// IsConnected probes the endpoint once.
func (c *HTTPConnectivity) IsConnected(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Subscribe registers a state-change callback.
func (c *HTTPConnectivity) Subscribe(fn func(online bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Start begins the probe loop. The loop runs until Stop.
func (c *HTTPConnectivity) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.observe(c.IsConnected(ctx))
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.observe(c.IsConnected(ctx))
			}
		}
	}()
}

// Stop halts the probe loop.
func (c *HTTPConnectivity) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *HTTPConnectivity) observe(online bool) {
	c.mu.Lock()
	if c.online == online {
		c.mu.Unlock()
		return
	}
	c.online = online
	fns := make([]func(bool), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}
