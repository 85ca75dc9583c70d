package favorites

import (
	"sync"

	"github.com/samber/lo"
)

const (
	LimitAdvisory   = "You can only favorite up to five currencies."
	StorageAdvisory = "Favorites will not persist across sessions."
)

// Controller is the view-facing side of a Store. On top of the store it
// tracks the advisory messages a UI shows next to the favorites control.
type Controller struct {
	store *Store

	mu           sync.Mutex
	limitMessage string
}

func NewController(store *Store) *Controller {
	return &Controller{store: store}
}

func (c *Controller) Store() *Store {
	return c.store
}

func (c *Controller) Favorites() []string {
	return c.store.List()
}

func (c *Controller) IsFavorite(code string) bool {
	return lo.Contains(c.store.List(), code)
}

// ToggleFavorite flips code in or out of the set. Unsupported codes leave
// both the set and the messages untouched.
func (c *Controller) ToggleFavorite(code string) ToggleResult {
	res := c.store.Toggle(code)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch res {
	case Added, Removed:
		c.limitMessage = ""
	case LimitReached:
		c.limitMessage = LimitAdvisory
	}
	return res
}

// LimitMessage is set after a toggle hits the size limit and cleared by the
// next successful toggle.
func (c *Controller) LimitMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limitMessage
}

// StorageMessage is non-empty while favorites are kept in memory only.
func (c *Controller) StorageMessage() string {
	if c.store.Persistent() {
		return ""
	}
	return StorageAdvisory
}
