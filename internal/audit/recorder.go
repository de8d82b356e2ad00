package audit

import (
	"context"
	"sync"
	"time"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/influxdb"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/logging"
)

// Actions recorded by the service.
const (
	ActionRegister    = "register"
	ActionLogin       = "login"
	ActionLoginFailed = "login_failed"
	ActionRefresh     = "refresh"
	ActionLogout      = "logout"
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
)

// Entity types.
const (
	EntityUser    = "user"
	EntityTenant  = "tenant"
	EntitySession = "session"
)

// Sources.
const (
	SourceAPI    = "api"
	SourceSystem = "system"
)

// Event is something worth recording. UserID is the acting user, EntityID
// the affected one.
type Event struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     string
	Source     string
	Details    map[string]any
}

// Recorder records events. Recording never fails the caller; problems are
// logged by the implementation.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Nop discards every event.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Event) {}

// Publisher broadcasts an event to other services (MQTT).
type Publisher interface {
	PublishEvent(action string, v any) error
}

// Counter counts events in a time-series store (InfluxDB).
type Counter interface {
	WriteAuthEvent(e influxdb.AuthEvent)
}

// FanOut writes every event to the audit repository and, when configured,
// to a Publisher and a Counter.
//
// Publishing runs in the background so a slow broker never delays a
// response; call Wait before shutting the publisher down.
type FanOut struct {
	repo      Repository
	publisher Publisher
	counter   Counter
	logger    *logging.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// Option configures a FanOut.
type Option func(*FanOut)

// WithPublisher adds an event publisher.
func WithPublisher(p Publisher) Option {
	return func(f *FanOut) { f.publisher = p }
}

// WithCounter adds an event counter.
func WithCounter(c Counter) Option {
	return func(f *FanOut) { f.counter = c }
}

// NewFanOut creates a FanOut over repo.
func NewFanOut(repo Repository, logger *logging.Logger, opts ...Option) *FanOut {
	if logger == nil {
		logger = logging.Discard()
	}
	f := &FanOut{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Record implements Recorder.
func (f *FanOut) Record(ctx context.Context, e Event) {
	if e.Source == "" {
		e.Source = SourceAPI
	}

	entry := &Entry{
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		UserID:     e.UserID,
		Source:     e.Source,
		Details:    e.Details,
		CreatedAt:  f.now(),
	}

	// The entry outlives a cancelled request.
	if err := f.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		f.logger.Warn("failed to write audit log",
			"action", e.Action,
			"entity_type", e.EntityType,
			"error", err,
		)
	}

	if f.counter != nil {
		f.counter.WriteAuthEvent(influxdb.AuthEvent{
			Action:     e.Action,
			EntityType: e.EntityType,
			Source:     e.Source,
			Time:       entry.CreatedAt,
		})
	}

	if f.publisher != nil {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			if err := f.publisher.PublishEvent(entry.Action, entry); err != nil {
				f.logger.Warn("failed to publish auth event",
					"action", entry.Action,
					"error", err,
				)
			}
		}()
	}
}

// Wait blocks until in-flight publishes finish.
func (f *FanOut) Wait() {
	f.wg.Wait()
}
