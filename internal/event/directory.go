package event

import (
	"fmt"
	"sync"
)

// Directory remembers the display names the server has announced.
type Directory struct {
	mu    sync.RWMutex
	names map[ID]string
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{names: make(map[ID]string)}
}

// Remember records a name for id. Empty names are ignored.
func (d *Directory) Remember(id ID, name string) {
	if name == "" || id == DefaultID {
		return
	}
	d.mu.Lock()
	d.names[id] = name
	d.mu.Unlock()
}

// Forget drops the name recorded for id.
func (d *Directory) Forget(id ID) {
	d.mu.Lock()
	delete(d.names, id)
	d.mu.Unlock()
}

// Reset drops every recorded name.
func (d *Directory) Reset() {
	d.mu.Lock()
	clear(d.names)
	d.mu.Unlock()
}

// Len returns how many names are recorded.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}

// DisplayName resolves a name for id, falling back to a numbered label.
func (d *Directory) DisplayName(id ID) string {
	d.mu.RLock()
	name, ok := d.names[id]
	d.mu.RUnlock()
	if ok {
		return name
	}
	return fmt.Sprintf("Player %d", id)
}
