// Package clientcache is the caller-side mirror of paid identifiers and their
// credit counts. It only drives prompts and counters; the server decides.
package clientcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/digkill/resumegate/internal/identity"
	"github.com/digkill/resumegate/internal/models"
)

type state struct {
	PaidIdentifiers []string        `json:"paidIdentifiers"`
	Credits         map[string]int  `json:"credits"`
	Draft           *models.Profile `json:"draft,omitempty"`
}

// Cache is safe for concurrent use. A zero path keeps it in memory only.
type Cache struct {
	mu    sync.Mutex
	path  string
	paid  map[string]struct{}
	state state
}

func New() *Cache {
	return &Cache{paid: map[string]struct{}{}, state: state{Credits: map[string]int{}}}
}

// Load reads the cache file at path. A missing file yields an empty cache.
func Load(path string) (*Cache, error) {
	c := New()
	c.path = path

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &c.state); err != nil {
		return nil, fmt.Errorf("decode cache %s: %w", path, err)
	}
	if c.state.Credits == nil {
		c.state.Credits = map[string]int{}
	}
	for _, id := range c.state.PaidIdentifiers {
		c.paid[identity.Normalize(id)] = struct{}{}
	}
	return c, nil
}

func (c *Cache) IsPaid(identifier string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.paid[identity.Normalize(identifier)]
	return ok
}

// Credits returns the last credit count the server reported.
func (c *Cache) Credits(identifier string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.state.Credits[identity.Normalize(identifier)]
	return n, ok
}

func (c *Cache) MarkPaid(identifier string, credits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := identity.Normalize(identifier)
	c.paid[id] = struct{}{}
	c.state.Credits[id] = clamp(credits)
}

func (c *Cache) SetCredits(identifier string, credits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Credits[identity.Normalize(identifier)] = clamp(credits)
}

// Forget drops the identifier, e.g. after the server answered 402.
func (c *Cache) Forget(identifier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := identity.Normalize(identifier)
	delete(c.paid, id)
	delete(c.state.Credits, id)
}

func (c *Cache) SetDraft(p models.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Draft = &p
}

func (c *Cache) Draft() (models.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Draft == nil {
		return models.Profile{}, false
	}
	return *c.state.Draft, true
}

// Clear wipes every entry and removes the backing file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paid = map[string]struct{}{}
	c.state = state{Credits: map[string]int{}}
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache %s: %w", c.path, err)
	}
	return nil
}

// Save writes the cache atomically through a temp file in the same directory.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" {
		return nil
	}

	c.state.PaidIdentifiers = c.state.PaidIdentifiers[:0]
	for id := range c.paid {
		c.state.PaidIdentifiers = append(c.state.PaidIdentifiers, id)
	}
	sort.Strings(c.state.PaidIdentifiers)

	raw, err := json.MarshalIndent(c.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
