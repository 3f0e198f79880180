package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/events"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
)

// DefaultSweepInterval is the default interval between consistency sweeps.
const DefaultSweepInterval = 15 * time.Minute

// Reconciler periodically repairs the two denormalized project fields.
// The assignment and revenue flows commit their triggers before their
// dependent writes, so a crash mid-sequence can leave a stale revenue
// figure or a dangling primary-client pointer; the sweep closes those
// windows. It also flips pending invoices past their due date to overdue.
type Reconciler struct {
	db       *gorm.DB
	interval time.Duration
	logger   *logrus.Entry

	stopChan chan struct{}
	doneChan chan struct{}

	mu        sync.Mutex
	running   bool
	lastSweep time.Time
	lastError error
	lastStats SweepStats
}

// SweepStats reports what a single sweep repaired.
type SweepStats struct {
	RevenueRepaired int   `json:"revenueRepaired"`
	PrimaryRepaired int   `json:"primaryRepaired"`
	MarkedOverdue   int64 `json:"markedOverdue"`
}

// NewReconciler creates a new consistency reconciler
func NewReconciler(db *gorm.DB, interval time.Duration, logger *logrus.Logger) *Reconciler {
	if interval == 0 {
		interval = DefaultSweepInterval
	}
	return &Reconciler{
		db:       db,
		interval: interval,
		logger:   logger.WithField("component", "workers.reconciler"),
	}
}

// Start begins the sweep loop. The loop channels are created per start so
// a stopped reconciler can be started again.
func (r *Reconciler) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.doneChan = make(chan struct{})
	stop, done := r.stopChan, r.doneChan
	r.mu.Unlock()

	go r.run(stop, done)
	r.logger.WithField("interval", r.interval.String()).Info("Reconciler started")
}

// Stop stops the sweep loop and waits for it to drain.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop, done := r.stopChan, r.doneChan
	r.mu.Unlock()

	close(stop)
	<-done
	r.logger.Info("Reconciler stopped")
}

// ForceSweep triggers an immediate sweep, for the admin trigger endpoint.
func (r *Reconciler) ForceSweep() (*SweepStats, error) {
	return r.sweep()
}

// LastSweep returns the time of the last completed sweep
func (r *Reconciler) LastSweep() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSweep
}

// LastStats returns what the last completed sweep repaired
func (r *Reconciler) LastStats() SweepStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStats
}

// LastError returns the last error encountered during a sweep
func (r *Reconciler) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// IsRunning returns whether the reconciler loop is active
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := r.sweep(); err != nil {
				r.logger.WithError(err).Warn("Consistency sweep failed")
			}
		}
	}
}

func (r *Reconciler) sweep() (*SweepStats, error) {
	stats := &SweepStats{}

	projectRepo := repository.NewProjectRepository(r.db)
	invoiceRepo := repository.NewInvoiceRepository(r.db)

	marked, err := invoiceRepo.MarkOverdue(time.Now().UTC())
	if err != nil {
		return nil, r.finish(stats, fmt.Errorf("failed to mark overdue invoices: %w", err))
	}
	stats.MarkedOverdue = marked

	ids, err := projectRepo.ListIDs()
	if err != nil {
		return nil, r.finish(stats, fmt.Errorf("failed to list projects: %w", err))
	}

	for _, id := range ids {
		revenueFixed, primaryFixed, err := r.reconcileProject(id)
		if err != nil {
			r.logger.WithError(err).WithField("project_id", id).Warn("Failed to reconcile project")
			continue
		}
		if revenueFixed {
			stats.RevenueRepaired++
		}
		if primaryFixed {
			stats.PrimaryRepaired++
		}
	}

	if stats.RevenueRepaired > 0 || stats.PrimaryRepaired > 0 || stats.MarkedOverdue > 0 {
		ctx := context.Background()
		pub := events.GetPublisher()
		pub.ProjectsChanged(ctx, "")
		pub.BillingChanged(ctx, "")

		r.logger.WithFields(logrus.Fields{
			"revenue_repaired": stats.RevenueRepaired,
			"primary_repaired": stats.PrimaryRepaired,
			"marked_overdue":   stats.MarkedOverdue,
		}).Info("Consistency sweep repaired drift")
	}

	return stats, r.finish(stats, nil)
}

func (r *Reconciler) finish(stats *SweepStats, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSweep = time.Now()
	r.lastError = err
	r.lastStats = *stats
	return err
}

func (r *Reconciler) reconcileProject(id uuid.UUID) (revenueFixed, primaryFixed bool, err error) {
	err = r.db.Transaction(func(tx *gorm.DB) error {
		projectRepo := repository.NewProjectRepository(tx)
		assignmentRepo := repository.NewAssignmentRepository(tx)
		clientRepo := repository.NewClientRepository(tx)
		invoiceRepo := repository.NewInvoiceRepository(tx)

		project, err := projectRepo.GetByID(id)
		if err != nil {
			return err
		}

		// Revenue drift.
		total, err := invoiceRepo.SumByProject(id)
		if err != nil {
			return err
		}
		if total != project.RevenueCents {
			if err := projectRepo.SetRevenue(id, total); err != nil {
				return err
			}
			revenueFixed = true
		}

		// Primary pointer drift: dangling id, or stale cached name.
		if project.ClientID == nil {
			if project.ClientName != models.NoClient {
				if err := projectRepo.SetPrimaryClient(id, nil, models.NoClient); err != nil {
					return err
				}
				primaryFixed = true
			}
			return nil
		}

		assigned, err := assignmentRepo.Exists(*project.ClientID, id)
		if err != nil {
			return err
		}
		if !assigned {
			replacement, err := assignmentRepo.FirstRemainingForProject(id)
			switch {
			case err == nil:
				client, err := clientRepo.GetByID(replacement.ClientID)
				if err != nil {
					return err
				}
				if err := projectRepo.SetPrimaryClient(id, &replacement.ClientID, client.CompanyName); err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := projectRepo.SetPrimaryClient(id, nil, models.NoClient); err != nil {
					return err
				}
			default:
				return err
			}
			primaryFixed = true
			return nil
		}

		client, err := clientRepo.GetByID(*project.ClientID)
		if err != nil {
			return err
		}
		if client.CompanyName != project.ClientName {
			if err := projectRepo.SetPrimaryClient(id, project.ClientID, client.CompanyName); err != nil {
				return err
			}
			primaryFixed = true
		}
		return nil
	})
	return revenueFixed, primaryFixed, err
}
