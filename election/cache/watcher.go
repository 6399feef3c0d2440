package cache

import "sync"

// Observer is the interface to implement to watch identity changes.
type Observer interface {
	// IdentityChanged notifies the observer of the new active identity. An
	// empty identity means the account was disconnected.
	IdentityChanged(identity string)
}

// identityWatcher keeps the list of observers interested in identity
// changes.
type identityWatcher struct {
	sync.RWMutex

	observers map[Observer]struct{}
}

func newIdentityWatcher() *identityWatcher {
	return &identityWatcher{
		observers: make(map[Observer]struct{}),
	}
}

func (w *identityWatcher) add(observer Observer) {
	w.Lock()
	w.observers[observer] = struct{}{}
	w.Unlock()
}

func (w *identityWatcher) remove(observer Observer) {
	w.Lock()
	delete(w.observers, observer)
	w.Unlock()
}

func (w *identityWatcher) notify(identity string) {
	w.RLock()
	defer w.RUnlock()

	for observer := range w.observers {
		observer.IdentityChanged(identity)
	}
}

// Watch adds the observer to the list of observers that will be notified of
// identity changes.
func (c *Cache) Watch(observer Observer) {
	c.watcher.add(observer)
}

// Unwatch removes the observer from the list thus stopping it from receiving
// notifications.
func (c *Cache) Unwatch(observer Observer) {
	c.watcher.remove(observer)
}

// NotifyIdentityChanged invalidates the snapshot and notifies the observers.
// It is the single entry point for account or network change events coming
// from the underlying wallet layer.
func (c *Cache) NotifyIdentityChanged(identity string) {
	c.Reset()
	c.watcher.notify(identity)
}
