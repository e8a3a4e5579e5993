package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
)

// TreeEntry is a built or loaded tree held by the server.
type TreeEntry struct {
	ID   string
	Tree *quadtree.Tree

	// Source is the image path the tree was built from, or empty for trees
	// loaded from a tree file.
	Source string

	// Origin is the path of the image or tree file the tree came from.
	Origin  string
	Created time.Time
}

// TreeCache holds trees by opaque ID. It is safe for concurrent use; the
// trees themselves are immutable.
type TreeCache struct {
	mu    sync.RWMutex
	trees map[string]*TreeEntry
}

func NewTreeCache() *TreeCache {
	return &TreeCache{trees: make(map[string]*TreeEntry)}
}

// Put stores t under a fresh random ID and returns the entry.
func (c *TreeCache) Put(t *quadtree.Tree, source, origin string) *TreeEntry {
	e := &TreeEntry{
		ID:      uuid.NewString(),
		Tree:    t,
		Source:  source,
		Origin:  origin,
		Created: time.Now(),
	}

	c.mu.Lock()
	c.trees[e.ID] = e
	c.mu.Unlock()
	return e
}

func (c *TreeCache) Get(id string) (*TreeEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.trees[id]
	return e, ok
}

// Delete drops id and reports whether it was present.
func (c *TreeCache) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.trees[id]
	delete(c.trees, id)
	return ok
}

func (c *TreeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trees)
}
