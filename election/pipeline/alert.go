package pipeline

import (
	"sync"
	"time"
)

// AlertDuration is how long a transient alert stays visible before it is
// dismissed automatically. Alerts are a display affordance only; error
// recovery never depends on them.
const AlertDuration = 5 * time.Second

// AlertKind discriminates success notices from error notices.
type AlertKind string

const (
	// AlertSuccess reports an accepted mutation.
	AlertSuccess AlertKind = "success"

	// AlertError reports a failed mutation.
	AlertError AlertKind = "error"
)

// Alert is a transient notification shown to the caller.
type Alert struct {
	Kind    AlertKind
	Message string
}

// AlertObserver is the interface to implement to receive alerts. A nil alert
// signals the dismissal of the previous one.
type AlertObserver interface {
	AlertChanged(alert *Alert)
}

// Notifier publishes transient alerts to its observers and dismisses them
// after a fixed delay.
type Notifier struct {
	sync.Mutex

	observers map[AlertObserver]struct{}
	current   *Alert
	duration  time.Duration
}

// NewNotifier creates a notifier with the default dismissal delay.
func NewNotifier() *Notifier {
	return &Notifier{
		observers: make(map[AlertObserver]struct{}),
		duration:  AlertDuration,
	}
}

// Watch adds the observer to the list of observers notified of alerts.
func (n *Notifier) Watch(observer AlertObserver) {
	n.Lock()
	n.observers[observer] = struct{}{}
	n.Unlock()
}

// Unwatch removes the observer.
func (n *Notifier) Unwatch(observer AlertObserver) {
	n.Lock()
	delete(n.observers, observer)
	n.Unlock()
}

// Current returns the visible alert, if any.
func (n *Notifier) Current() (Alert, bool) {
	n.Lock()
	defer n.Unlock()

	if n.current == nil {
		return Alert{}, false
	}

	return *n.current, true
}

// Show publishes the alert and schedules its dismissal. A new alert replaces
// the previous one immediately.
func (n *Notifier) Show(alert Alert) {
	n.Lock()
	n.current = &alert
	observers := n.snapshot()
	n.Unlock()

	for observer := range observers {
		observer.AlertChanged(&alert)
	}

	time.AfterFunc(n.duration, func() {
		n.dismiss(&alert)
	})
}

func (n *Notifier) dismiss(alert *Alert) {
	n.Lock()

	// A newer alert may have replaced this one in the meantime.
	if n.current != alert {
		n.Unlock()
		return
	}

	n.current = nil
	observers := n.snapshot()
	n.Unlock()

	for observer := range observers {
		observer.AlertChanged(nil)
	}
}

func (n *Notifier) snapshot() map[AlertObserver]struct{} {
	observers := make(map[AlertObserver]struct{}, len(n.observers))
	for observer := range n.observers {
		observers[observer] = struct{}{}
	}

	return observers
}
