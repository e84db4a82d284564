package uart

import "sync"

// NotifyTarget receives a data-available wake-up. At most one wake-up is
// in flight per arrival event; after a wake-up the client is expected to
// drain all available characters, not to count one wake-up per byte.
type NotifyTarget func()

// NotificationBridge adapts the driver's "character arrived" event into
// a lazily-registered notification target.
//
// The bridge is edge-triggered: an arrival with no registered target is
// dropped, not queued. The one recovery path is the catch-up check in
// Register, which fires immediately when data was already waiting at
// registration time. That check is atomic with storing the target, so a
// character can never slip between condition-becomes-true and subscribe.
type NotificationBridge struct {
	mu     sync.Mutex
	target NotifyTarget
	avail  func() bool
}

// NewNotificationBridge creates a bridge with no target and no
// availability predicate. Bind must be called before Register can apply
// catch-up semantics.
func NewNotificationBridge() *NotificationBridge {
	return &NotificationBridge{}
}

// Bind installs the availability predicate consulted by Register,
// normally the owning driver's CharAvail.
func (n *NotificationBridge) Bind(avail func() bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.avail = avail
}

// Register stores the target, replacing any previous one. If a
// character is already waiting at this instant the target fires
// synchronously, within this call. A nil target deregisters.
func (n *NotificationBridge) Register(t NotifyTarget) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = t
	if t != nil && n.avail != nil && n.avail() {
		t()
	}
}

// CharArrived is the driver-side callback. It fires the registered
// target or does nothing when none is registered.
func (n *NotificationBridge) CharArrived() {
	n.mu.Lock()
	t := n.target
	n.mu.Unlock()
	if t != nil {
		t()
	}
}
