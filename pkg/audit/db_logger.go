package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/budgetup/budgetup/pkg/observability"
)

const (
	defaultBufferSize   = 1024
	defaultWriteTimeout = 5 * time.Second
)

// DBLogger writes audit events to PostgreSQL asynchronously. Events are
// enqueued onto a buffered channel and drained by a single worker; a
// full buffer drops the event rather than stalling the request that
// produced it.
type DBLogger struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.Metrics

	events    chan *Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewDBLogger creates a new asynchronous database audit logger and
// starts its worker.
func NewDBLogger(db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	l := &DBLogger{
		db:      db,
		logger:  logger,
		metrics: metrics,
		events:  make(chan *Event, defaultBufferSize),
		done:    make(chan struct{}),
	}

	go l.worker()

	return l, nil
}

// Log enqueues an event for background writing. It never blocks: if the
// buffer is full the event is dropped and counted.
func (l *DBLogger) Log(ctx context.Context, event *Event) {
	if event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Result == "" {
		event.Result = EventStatusSuccess
	}

	select {
	case l.events <- event:
	default:
		l.observe("dropped")
		l.logger.WithField("action", string(event.Action)).Warn("audit buffer full, event dropped")
	}
}

// Close stops accepting events, drains the buffer, and waits for the
// worker to finish.
func (l *DBLogger) Close() error {
	l.closeOnce.Do(func() {
		close(l.events)
		<-l.done
	})
	return nil
}

func (l *DBLogger) worker() {
	defer close(l.done)

	for event := range l.events {
		l.write(event)
	}
}

func (l *DBLogger) write(event *Event) {
	// A panicking driver must not take the worker down with it.
	defer observability.RecoverPanic(l.logger, "audit writer")

	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()

	metadataJSON := []byte("{}")
	if event.Metadata != nil {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			l.observe("failed")
			l.logger.WithError(err).Error("failed to marshal audit metadata")
			return
		}
		metadataJSON = data
	}

	query := `
		INSERT INTO audit_logs (organization_id, actor_id, action, resource, record_id, result, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := l.db.ExecContext(ctx, query,
		event.OrganizationID, event.ActorID, event.Action, event.Resource,
		nullIfEmpty(event.RecordID), event.Result, metadataJSON, event.CreatedAt,
	)
	if err != nil {
		l.observe("failed")
		l.logger.WithError(err).WithField("action", string(event.Action)).Error("failed to write audit event")
		return
	}

	l.observe("written")
}

func (l *DBLogger) observe(result string) {
	if l.metrics != nil {
		l.metrics.ObserveAuditEvent(result)
	}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
