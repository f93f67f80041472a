package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Purpose identifies which logical connection a slot serves
type Purpose string

const (
	// PurposePublish is the publish-side connection slot
	PurposePublish Purpose = "publish"
	// PurposeConsume is the consume-side connection slot
	PurposeConsume Purpose = "consume"
)

// Default lifecycle intervals
const (
	defaultMaxConnectionLifetime = 30 * time.Minute
	defaultHeartbeat             = 10 * time.Second
	defaultDialTimeout           = 10 * time.Second
)

// Settings holds the immutable connection configuration. It is read-only
// after the manager is constructed.
type Settings struct {
	URI                     string
	ConnectionName          string
	MaxConnectionLifetime   time.Duration
	HealthCheckInterval     time.Duration // 0 disables the background sweep
	SeparateConnections     bool
	Heartbeat               time.Duration
	NetworkRecoveryInterval time.Duration // dial timeout per connection attempt
}

func (s Settings) withDefaults() Settings {
	if s.ConnectionName == "" {
		s.ConnectionName = "bus6"
	}
	if s.MaxConnectionLifetime <= 0 {
		s.MaxConnectionLifetime = defaultMaxConnectionLifetime
	}
	if s.Heartbeat <= 0 {
		s.Heartbeat = defaultHeartbeat
	}
	if s.NetworkRecoveryInterval <= 0 {
		s.NetworkRecoveryInterval = defaultDialTimeout
	}
	return s
}

// connectionSlot is the manager's record of one connection purpose. A slot
// holds at most one live handle; the handle is never referenced after the
// slot disposes it.
type connectionSlot struct {
	conn      Connection
	createdAt time.Time
}

func (s *connectionSlot) valid(now time.Time, maxLifetime time.Duration) bool {
	return s.conn != nil && !s.conn.IsClosed() && now.Sub(s.createdAt) < maxLifetime
}

// SlotInfo describes the state of one connection slot
type SlotInfo struct {
	Purpose Purpose
	Open    bool
	Age     time.Duration
}

// ConnectionManager owns the long-lived broker connections, one per
// purpose (or a single shared slot), creates them lazily and recycles
// handles that are closed or older than the configured max lifetime.
type ConnectionManager struct {
	settings Settings
	dial     DialFunc
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	slots    map[Purpose]*connectionSlot
	disposed bool

	healthStop chan struct{}
	healthDone chan struct{}
}

// ManagerOption configures the ConnectionManager
type ManagerOption func(*ConnectionManager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(cm *ConnectionManager) {
		cm.logger = logger
	}
}

// WithDialFunc replaces the broker dialer, primarily for tests
func WithDialFunc(dial DialFunc) ManagerOption {
	return func(cm *ConnectionManager) {
		cm.dial = dial
	}
}

// NewConnectionManager creates a new connection manager. No connection is
// established until the first acquisition. When a health-check interval is
// configured the background sweep starts immediately and runs until Close.
func NewConnectionManager(settings Settings, options ...ManagerOption) *ConnectionManager {
	cm := &ConnectionManager{
		settings: settings.withDefaults(),
		dial:     defaultDial,
		logger:   slog.Default(),
		now:      time.Now,
		slots:    make(map[Purpose]*connectionSlot),
	}

	for _, opt := range options {
		opt(cm)
	}

	if cm.settings.HealthCheckInterval > 0 {
		cm.healthStop = make(chan struct{})
		cm.healthDone = make(chan struct{})
		go cm.healthLoop()
	}

	return cm
}

// AcquirePublishConnection returns a valid, open publish-side connection,
// creating or replacing the slot's handle as needed.
func (cm *ConnectionManager) AcquirePublishConnection(ctx context.Context) (Connection, error) {
	return cm.acquire(ctx, PurposePublish)
}

// AcquireConsumeConnection returns a valid, open consume-side connection.
// When separate connections are disabled it delegates to the publish slot.
func (cm *ConnectionManager) AcquireConsumeConnection(ctx context.Context) (Connection, error) {
	if !cm.settings.SeparateConnections {
		return cm.acquire(ctx, PurposePublish)
	}
	return cm.acquire(ctx, PurposeConsume)
}

func (cm *ConnectionManager) acquire(ctx context.Context, purpose Purpose) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{
			Kind:      ConnectionFailure,
			Op:        "acquire " + string(purpose),
			URL:       SanitizeURL(cm.settings.URI),
			Err:       err,
			Timestamp: cm.now(),
		}
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.disposed {
		return nil, &ConnectionError{
			Kind:      ConnectionDisposed,
			Op:        "acquire " + string(purpose),
			URL:       SanitizeURL(cm.settings.URI),
			Err:       ErrManagerDisposed,
			Timestamp: cm.now(),
		}
	}

	slot, ok := cm.slots[purpose]
	if !ok {
		slot = &connectionSlot{}
		cm.slots[purpose] = slot
	}

	// Fast path: an open handle younger than the max lifetime is reused
	// without any network activity.
	if slot.valid(cm.now(), cm.settings.MaxConnectionLifetime) {
		return slot.conn, nil
	}

	if slot.conn != nil {
		if err := slot.conn.Close(); err != nil {
			cm.logger.Warn("failed to dispose stale connection",
				"purpose", purpose,
				"error", err)
		}
		slot.conn = nil
	}

	conn, err := cm.dial(cm.settings)
	if err != nil {
		return nil, &ConnectionError{
			Kind:      classifyDialError(err),
			Op:        "connect " + string(purpose),
			URL:       SanitizeURL(cm.settings.URI),
			Err:       err,
			Timestamp: cm.now(),
		}
	}

	slot.conn = conn
	slot.createdAt = cm.now()

	cm.logger.Info("connected to broker",
		"purpose", purpose,
		"url", SanitizeURL(cm.settings.URI))

	return conn, nil
}

// Snapshot reports the state of every slot the manager currently holds
func (cm *ConnectionManager) Snapshot() []SlotInfo {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := cm.now()
	infos := make([]SlotInfo, 0, len(cm.slots))
	for purpose, slot := range cm.slots {
		info := SlotInfo{Purpose: purpose}
		if slot.conn != nil {
			info.Open = !slot.conn.IsClosed()
			info.Age = now.Sub(slot.createdAt)
		}
		infos = append(infos, info)
	}
	return infos
}

// IsDisposed reports whether the manager has been shut down
func (cm *ConnectionManager) IsDisposed() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.disposed
}

// Close disposes all held connections and stops the health sweep. It is
// idempotent; subsequent acquisitions fail fast.
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	if cm.disposed {
		cm.mu.Unlock()
		return nil
	}
	cm.disposed = true

	for purpose, slot := range cm.slots {
		if slot.conn == nil {
			continue
		}
		if err := slot.conn.Close(); err != nil {
			cm.logger.Warn("failed to close connection on shutdown",
				"purpose", purpose,
				"error", err)
		}
		slot.conn = nil
	}
	cm.mu.Unlock()

	if cm.healthStop != nil {
		close(cm.healthStop)
		<-cm.healthDone
	}

	cm.logger.Info("connection manager closed")
	return nil
}

// healthLoop periodically clears slots whose handle is closed so the next
// acquisition recreates them lazily. It never dials.
func (cm *ConnectionManager) healthLoop() {
	defer close(cm.healthDone)

	ticker := time.NewTicker(cm.settings.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.sweepDeadConnections()
		case <-cm.healthStop:
			return
		}
	}
}

func (cm *ConnectionManager) sweepDeadConnections() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.disposed {
		return
	}

	for purpose, slot := range cm.slots {
		if slot.conn == nil || !slot.conn.IsClosed() {
			continue
		}
		if err := slot.conn.Close(); err != nil {
			cm.logger.Warn("failed to dispose dead connection",
				"purpose", purpose,
				"error", err)
		}
		slot.conn = nil
		cm.logger.Info("cleared dead connection", "purpose", purpose)
	}
}
