// Package session owns the lifecycle of the single current gateway session:
// creation, validation, refresh, and teardown.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avichaym/flinksql-workbench/gateway"
	"github.com/avichaym/flinksql-workbench/logging"
)

// Session is one remote execution context.
type Session struct {
	Handle     gateway.SessionHandle
	Properties map[string]string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Info is the snapshot delivered to listeners on every session change.
type Info struct {
	Connected  bool
	Handle     gateway.SessionHandle
	Properties map[string]string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Listener receives an Info snapshot whenever the current session changes.
// Listeners are called synchronously and must copy what they keep.
type Listener func(Info)

// Options configures a Coordinator.
type Options struct {
	// Properties are sent with every session creation.
	Properties map[string]string

	// KeepaliveInterval enables a background validation ticker when > 0.
	// Default: 0 (disabled)
	KeepaliveInterval time.Duration

	// KeepaliveFailureThreshold is how many consecutive failed validations
	// clear the session. Default: 1
	KeepaliveFailureThreshold int

	// Logger is the logger to use. Nil defaults to a no-op logger.
	Logger logging.Logger
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		KeepaliveInterval:         0,
		KeepaliveFailureThreshold: 1,
	}
}

// Coordinator maintains at most one current session, recreating it on demand.
// All methods are safe for concurrent use.
type Coordinator struct {
	gw     gateway.Client
	opts   Options
	logger logging.Logger

	mu      sync.Mutex
	current *Session

	listenersMu sync.RWMutex
	listeners   []Listener

	keepaliveStop chan struct{}
	keepaliveWG   sync.WaitGroup
}

// NewCoordinator creates a coordinator with no current session.
func NewCoordinator(gw gateway.Client, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.KeepaliveFailureThreshold <= 0 {
		opts.KeepaliveFailureThreshold = DefaultOptions().KeepaliveFailureThreshold
	}
	return &Coordinator{
		gw:     gw,
		opts:   opts,
		logger: logger.WithFields(logging.String("component", "session")),
	}
}

// GetSession returns the current session, creating one if absent. A creation
// failure leaves no current session and is returned to the caller. Two
// concurrent callers can never both create a session.
func (c *Coordinator) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	if c.current != nil {
		c.current.LastUsedAt = time.Now()
		sess := *c.current
		c.mu.Unlock()
		return &sess, nil
	}

	// Hold mu across the remote call: that is what makes get-or-create
	// atomic when several executors race for the first session.
	handle, err := c.gw.CreateSession(ctx, c.opts.Properties)
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("session creation failed", logging.Err(err))
		return nil, &SessionError{
			Code:    CodeCreationFailed,
			Message: "could not create gateway session",
			Cause:   err,
		}
	}

	now := time.Now()
	c.current = &Session{
		Handle:     handle,
		Properties: c.opts.Properties,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	sess := *c.current
	info := c.infoLocked()
	c.mu.Unlock()

	c.logger.Info("session established", logging.String("sessionHandle", string(handle)))
	c.notify(info)
	return &sess, nil
}

// ValidateSession probes the gateway for the current session. On failure the
// current session is cleared and false is returned; no recreation happens
// inside this call.
func (c *Coordinator) ValidateSession(ctx context.Context) bool {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return false
	}
	handle := c.current.Handle
	c.mu.Unlock()

	if _, err := c.gw.GetSessionInfo(ctx, handle); err != nil {
		c.logger.Warn("session validation failed, clearing current session",
			logging.String("sessionHandle", string(handle)),
			logging.Err(err))
		c.clear(handle)
		return false
	}
	return true
}

// RefreshSession closes the current session best-effort and creates a new one.
func (c *Coordinator) RefreshSession(ctx context.Context) (*Session, error) {
	c.CloseSession(ctx)
	return c.GetSession(ctx)
}

// CloseSession closes the current session on the gateway best-effort and
// clears it locally regardless of the outcome. Remote close failures are
// absorbed, not propagated.
func (c *Coordinator) CloseSession(ctx context.Context) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	handle := c.current.Handle
	c.mu.Unlock()

	if err := c.gw.CloseSession(ctx, handle); err != nil {
		c.logger.Warn("best-effort session close failed",
			logging.String("sessionHandle", string(handle)),
			logging.Err(err))
	}
	c.clear(handle)
}

// Invalidate clears the current session locally without a remote call. Used
// when a session-scoped error proves the handle is no longer usable.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	handle := c.current.Handle
	c.mu.Unlock()
	c.clear(handle)
}

// clear drops the current session if it still matches handle and notifies
// listeners. A session created concurrently after the failed call survives.
func (c *Coordinator) clear(handle gateway.SessionHandle) {
	c.mu.Lock()
	if c.current == nil || c.current.Handle != handle {
		c.mu.Unlock()
		return
	}
	c.current = nil
	info := c.infoLocked()
	c.mu.Unlock()
	c.notify(info)
}

// Info returns a snapshot of the current session state.
func (c *Coordinator) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infoLocked()
}

// infoLocked builds an Info snapshot. Callers must hold c.mu.
func (c *Coordinator) infoLocked() Info {
	if c.current == nil {
		return Info{Connected: false}
	}
	props := make(map[string]string, len(c.current.Properties))
	for k, v := range c.current.Properties {
		props[k] = v
	}
	return Info{
		Connected:  true,
		Handle:     c.current.Handle,
		Properties: props,
		CreatedAt:  c.current.CreatedAt,
		LastUsedAt: c.current.LastUsedAt,
	}
}

// OnSessionChange registers a listener called synchronously with an Info
// snapshot on every session change.
func (c *Coordinator) OnSessionChange(l Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// notify calls listeners over a stable snapshot of the collection so
// registration during notification cannot corrupt iteration.
func (c *Coordinator) notify(info Info) {
	c.listenersMu.RLock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		l(info)
	}
}

// StartKeepalive launches the background validation loop when the interval
// is configured. Repeated validation failures clear the session so the next
// GetSession recreates it.
func (c *Coordinator) StartKeepalive() {
	if c.opts.KeepaliveInterval <= 0 || c.keepaliveStop != nil {
		return
	}
	c.keepaliveStop = make(chan struct{})
	c.keepaliveWG.Add(1)
	go c.keepaliveLoop()
	c.logger.Info("session keepalive started",
		logging.Duration("interval", c.opts.KeepaliveInterval))
}

// StopKeepalive stops the background validation loop.
func (c *Coordinator) StopKeepalive() {
	if c.keepaliveStop == nil {
		return
	}
	close(c.keepaliveStop)
	c.keepaliveWG.Wait()
	c.keepaliveStop = nil
	c.logger.Info("session keepalive stopped")
}

func (c *Coordinator) keepaliveLoop() {
	defer c.keepaliveWG.Done()

	ticker := time.NewTicker(c.opts.KeepaliveInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-c.keepaliveStop:
			return
		case <-ticker.C:
			c.mu.Lock()
			hasSession := c.current != nil
			c.mu.Unlock()
			if !hasSession {
				failures = 0
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok := c.validateOnce(ctx)
			cancel()

			if ok {
				if failures > 0 {
					c.logger.Info("session keepalive recovered", logging.Int("previousFailures", failures))
				}
				failures = 0
				continue
			}

			failures++
			c.logger.Warn("session keepalive check failed", logging.Int("failureCount", failures))
			if failures >= c.opts.KeepaliveFailureThreshold {
				c.Invalidate()
				failures = 0
			}
		}
	}
}

// validateOnce probes the session without clearing it; the keepalive loop
// decides when the failure threshold is reached.
func (c *Coordinator) validateOnce(ctx context.Context) bool {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return false
	}
	handle := c.current.Handle
	c.mu.Unlock()

	_, err := c.gw.GetSessionInfo(ctx, handle)
	return err == nil
}

// SessionError represents a failed session operation.
type SessionError struct {
	Code    string
	Message string
	Cause   error
}

// Error codes.
const (
	CodeCreationFailed = "SESSION_CREATION_FAILED"
)

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SessionError) Unwrap() error {
	return e.Cause
}
