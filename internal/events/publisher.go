package events

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Invalidation subjects. The admin UI subscribes to these to decide which
// views are stale and must re-fetch; the service never pushes data, only
// staleness signals.
const (
	SubjectClientsChanged     = "agency.clients.changed"
	SubjectProjectsChanged    = "agency.projects.changed"
	SubjectAssignmentsChanged = "agency.project.assignments.changed"
	SubjectBillingChanged     = "agency.billing.changed"
	SubjectContactsChanged    = "agency.contacts.changed"

	streamName     = "AGENCY_EVENTS"
	streamSubjects = "agency.>"
)

// InvalidationEvent names the stale view and the entities involved.
type InvalidationEvent struct {
	Subject   string    `json:"subject"`
	ProjectID string    `json:"project_id,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	publisher     *Publisher
	publisherOnce sync.Once
	publisherMu   sync.RWMutex
)

// Publisher emits view-invalidation events over NATS JetStream.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// InitPublisher initializes the singleton NATS publisher. Absence of
// NATS_URL disables publishing entirely; mutations still succeed.
func InitPublisher(logger *logrus.Logger) error {
	var initErr error
	publisherOnce.Do(func() {
		natsURL := os.Getenv("NATS_URL")
		if natsURL == "" {
			logger.Warn("NATS_URL not set, event publishing disabled")
			return
		}

		opts := []nats.Option{
			nats.Name("agency-service"),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2 * time.Second),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				logger.WithError(err).Warn("NATS disconnected")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
			}),
		}

		conn, err := nats.Connect(natsURL, opts...)
		if err != nil {
			initErr = err
			return
		}

		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			initErr = err
			return
		}

		if err := ensureStream(js); err != nil {
			logger.WithError(err).Warn("Failed to ensure AGENCY_EVENTS stream")
		}

		publisherMu.Lock()
		publisher = &Publisher{
			conn:   conn,
			js:     js,
			logger: logger.WithField("component", "events.publisher"),
		}
		publisherMu.Unlock()

		logger.Info("NATS events publisher initialized for agency-service")
	})
	return initErr
}

// GetPublisher returns the singleton publisher instance, or nil when
// publishing is disabled.
func GetPublisher() *Publisher {
	publisherMu.RLock()
	defer publisherMu.RUnlock()
	return publisher
}

func ensureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{streamSubjects},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	})
	return err
}

// publish is fire-and-forget: a failed publish is logged and swallowed so
// a dropped invalidation signal never fails the mutation that caused it.
func (p *Publisher) publish(ctx context.Context, event InvalidationEvent) {
	if p == nil || p.js == nil {
		return
	}
	event.Timestamp = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", event.Subject).Error("Failed to marshal event")
		return
	}
	if _, err := p.js.Publish(event.Subject, data, nats.Context(ctx)); err != nil {
		p.logger.WithError(err).WithField("subject", event.Subject).Warn("Failed to publish event")
	}
}

// ClientsChanged signals that client list views are stale.
func (p *Publisher) ClientsChanged(ctx context.Context, clientID string) {
	p.publish(ctx, InvalidationEvent{Subject: SubjectClientsChanged, ClientID: clientID})
}

// ProjectsChanged signals that project list/detail views are stale.
func (p *Publisher) ProjectsChanged(ctx context.Context, projectID string) {
	p.publish(ctx, InvalidationEvent{Subject: SubjectProjectsChanged, ProjectID: projectID})
}

// AssignmentsChanged signals that a project's assigned-clients and
// available-clients views are stale.
func (p *Publisher) AssignmentsChanged(ctx context.Context, projectID string) {
	p.publish(ctx, InvalidationEvent{Subject: SubjectAssignmentsChanged, ProjectID: projectID})
}

// BillingChanged signals that invoice lists and billing totals are stale.
func (p *Publisher) BillingChanged(ctx context.Context, projectID string) {
	p.publish(ctx, InvalidationEvent{Subject: SubjectBillingChanged, ProjectID: projectID})
}

// ContactsChanged signals that a client's contact list is stale.
func (p *Publisher) ContactsChanged(ctx context.Context, clientID string) {
	p.publish(ctx, InvalidationEvent{Subject: SubjectContactsChanged, ClientID: clientID})
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close closes the publisher connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
