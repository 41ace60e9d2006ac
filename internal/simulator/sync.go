package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/broker"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/ctxutil"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

type jobState int

const (
	stateRunning jobState = iota
	stateCancelled
)

// Registry tracks sync jobs by connection id. Cancellation is a state
// transition consumed exactly once by the simulator; finished jobs are
// forgotten so a reused connection id never observes stale state.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]jobState
}

func NewRegistry() *Registry {
	return &Registry{jobs: map[string]jobState{}}
}

func (r *Registry) start(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		r.jobs[id] = stateRunning
	}
}

// Cancel marks the connection's job cancelled. Safe to call before the job
// reaches its cancellation check; a job already past it cannot be stopped.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = stateCancelled
}

// consumeCancelled reports and clears a pending cancellation.
func (r *Registry) consumeCancelled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobs[id] == stateCancelled {
		delete(r.jobs, id)
		return true
	}
	return false
}

func (r *Registry) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// TicketSeeder inserts demo rows for the ticket-clustering demo. Returns
// the number of rows inserted.
type TicketSeeder interface {
	SeedDemoTickets(ctx context.Context, tenantID string, count int) (int, error)
}

// ConnectorTicketSystem is the one connector type that seeds demo data
// before reporting sync progress.
const ConnectorTicketSystem = "ticket_system"

const defaultSyncEstimate = 120

// SyncSimulator plays back a cancellable multi-step sync job as status
// messages on the data source status queue.
type SyncSimulator struct {
	log      *logger.Logger
	pub      broker.Publisher
	registry *Registry
	seeder   TicketSeeder
	queue    string

	// progressOffsets are the sleeps before each intermediate progress
	// message; finalOffset is the sleep before the terminal message.
	progressOffsets []time.Duration
	finalOffset     time.Duration
	verifyDelay     time.Duration
}

func NewSyncSimulator(log *logger.Logger, pub broker.Publisher, registry *Registry, seeder TicketSeeder, queue string) *SyncSimulator {
	return &SyncSimulator{
		log:             log.With("service", "SyncSimulator"),
		pub:             pub,
		registry:        registry,
		seeder:          seeder,
		queue:           queue,
		progressOffsets: []time.Duration{3 * time.Second, 6 * time.Second},
		finalOffset:     10 * time.Second,
		verifyDelay:     1 * time.Second,
	}
}

// Registry exposes the cancellation surface to the dispatcher.
func (s *SyncSimulator) Registry() *Registry { return s.registry }

// Run plays one sync job to completion, failure or cancellation. Blocking;
// callers run it on its own goroutine.
func (s *SyncSimulator) Run(ctx context.Context, p domain.WebhookPayload) {
	id := p.ConnectionID
	s.registry.start(id)

	var seedErr error
	if p.ConnectorType == ConnectorTicketSystem && s.seeder != nil {
		if _, err := s.seeder.SeedDemoTickets(ctx, p.TenantID, p.TicketCount); err != nil {
			seedErr = err
			s.log.Error("ticket demo seeding failed",
				"request_id", ctxutil.CorrelationID(ctx),
				"connection_id", id,
				"error", err,
			)
		}
	}

	estimate := p.SyncEstimate
	if estimate <= 0 {
		estimate = defaultSyncEstimate
	}

	zero := 0
	s.publish(ctx, domain.DataSourceStatus{
		Type:               domain.StatusTypeSync,
		ConnectionID:       id,
		TenantID:           p.TenantID,
		Status:             domain.SyncStarted,
		Timestamp:          domain.Now(),
		DocumentsProcessed: &zero,
		EstimatedTotal:     &estimate,
	})

	for i, offset := range s.progressOffsets {
		time.Sleep(offset)
		// Monotonically increasing fraction of the estimate.
		processed := estimate * (i + 1) / (len(s.progressOffsets) + 1)
		s.publish(ctx, domain.DataSourceStatus{
			Type:               domain.StatusTypeSync,
			ConnectionID:       id,
			TenantID:           p.TenantID,
			Status:             domain.SyncProgress,
			Timestamp:          domain.Now(),
			DocumentsProcessed: &processed,
			EstimatedTotal:     &estimate,
		})
	}

	time.Sleep(s.finalOffset)

	if s.registry.consumeCancelled(id) {
		s.log.Info("sync cancelled, suppressing terminal message",
			"request_id", ctxutil.CorrelationID(ctx),
			"connection_id", id,
		)
		return
	}
	defer s.registry.finish(id)

	if seedErr != nil {
		s.publish(ctx, domain.DataSourceStatus{
			Type:         domain.StatusTypeSync,
			ConnectionID: id,
			TenantID:     p.TenantID,
			Status:       domain.SyncFailed,
			Timestamp:    domain.Now(),
			ErrorMessage: seedErr.Error(),
		})
		return
	}

	s.publish(ctx, domain.DataSourceStatus{
		Type:               domain.StatusTypeSync,
		ConnectionID:       id,
		TenantID:           p.TenantID,
		Status:             domain.SyncCompleted,
		Timestamp:          domain.Now(),
		DocumentsProcessed: &estimate,
	})
}

// Verify simulates credential verification for a data source connection.
func (s *SyncSimulator) Verify(ctx context.Context, p domain.WebhookPayload) {
	if s.verifyDelay > 0 {
		time.Sleep(s.verifyDelay)
	}

	if p.Scenario == ScenarioFailure {
		s.publish(ctx, domain.DataSourceStatus{
			Type:              domain.StatusTypeVerification,
			ConnectionID:      p.ConnectionID,
			TenantID:          p.TenantID,
			Status:            domain.VerificationFailed,
			Timestamp:         domain.Now(),
			VerificationError: "invalid credentials: authentication rejected by the remote system",
		})
		return
	}

	s.publish(ctx, domain.DataSourceStatus{
		Type:         domain.StatusTypeVerification,
		ConnectionID: p.ConnectionID,
		TenantID:     p.TenantID,
		Status:       domain.VerificationSuccess,
		Timestamp:    domain.Now(),
		VerificationOptions: map[string]any{
			"folders":              []string{"General", "Support", "Billing"},
			"supports_incremental": true,
		},
	})
}

func (s *SyncSimulator) publish(ctx context.Context, msg domain.DataSourceStatus) {
	if err := s.pub.Publish(ctx, s.queue, msg); err != nil {
		s.log.Error("data source status publish failed",
			"request_id", ctxutil.CorrelationID(ctx),
			"connection_id", msg.ConnectionID,
			"status", msg.Status,
			"error", err,
		)
	}
}
