package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the subscription.
const (
	JobTypeAlertCheck      = "alert_check"
	JobTypeReadingsRefresh = "readings_refresh"
	JobTypeHealthCheck     = "health_check"
)

var (
	ErrUnknownJobType   = errors.New("unknown job type")
	errMalformedMessage = errors.New("malformed job message")
	errAllChecksFailed  = errors.New("every alert check failed")
)

// JobMessage is the payload of an on-demand job, e.g.
// {"job_type":"alert_check","user_id":"usr_123"}.
type JobMessage struct {
	JobType string `json:"job_type"`

	// UserID limits an alert_check to one user. Empty means all users.
	UserID string `json:"user_id,omitempty"`
}

// Disposition tells the transport what to do with a delivered message.
type Disposition int

const (
	Ack Disposition = iota
	Nack
)

func (d Disposition) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// Dispatcher routes job messages to a Job.
type Dispatcher struct {
	job      *Job
	metrics  *Metrics
	log      zerolog.Logger
	handlers map[string]func(context.Context, JobMessage) error
}

// NewDispatcher builds a dispatcher for job. metrics may be nil.
func NewDispatcher(job *Job, metrics *Metrics, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{job: job, metrics: metrics, log: log}
	d.handlers = map[string]func(context.Context, JobMessage) error{
		JobTypeAlertCheck:      d.alertCheck,
		JobTypeReadingsRefresh: func(ctx context.Context, _ JobMessage) error { return job.RefreshReadings(ctx) },
		JobTypeHealthCheck:     func(ctx context.Context, _ JobMessage) error { return job.HealthCheck(ctx) },
	}
	return d
}

// Dispatch runs the job named by msg.
func (d *Dispatcher) Dispatch(ctx context.Context, msg JobMessage) error {
	handle, ok := d.handlers[msg.JobType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
	return handle(ctx, msg)
}

// Handle decodes and dispatches a raw payload. Payloads that can never
// succeed are acked; failed jobs are nacked for redelivery.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) Disposition {
	var msg JobMessage
	err := json.Unmarshal(data, &msg)
	if err != nil {
		err = fmt.Errorf("%w: %v", errMalformedMessage, err)
	} else {
		err = d.Dispatch(ctx, msg)
	}

	disposition := Ack
	event := d.log.Info()
	switch {
	case err == nil:
	case errors.Is(err, errMalformedMessage), errors.Is(err, ErrUnknownJobType):
		event = d.log.Warn().Err(err)
	default:
		disposition = Nack
		event = d.log.Error().Err(err)
	}
	event.Str("job_type", msg.JobType).Stringer("disposition", disposition).Msg("job message handled")

	if d.metrics != nil {
		d.metrics.Messages.WithLabelValues(jobTypeLabel(msg.JobType, d.handlers), disposition.String()).Inc()
	}
	return disposition
}

// alertCheck treats a run already in progress as success since the active
// run covers the request.
func (d *Dispatcher) alertCheck(ctx context.Context, msg JobMessage) error {
	if msg.UserID != "" {
		res, err := d.job.CheckUser(ctx, msg.UserID)
		if err != nil {
			return err
		}
		d.log.Info().
			Str("user_id", msg.UserID).
			Int("alerts_created", res.AlertsCreated).
			Msg("user alert check completed")
		return nil
	}

	result, err := d.job.RunAlertChecks(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		return nil
	case err != nil:
		return err
	case result.UsersTotal > 0 && result.UsersChecked == 0:
		return fmt.Errorf("%w: %d users", errAllChecksFailed, result.UsersFailed)
	}
	return nil
}

func jobTypeLabel(jobType string, known map[string]func(context.Context, JobMessage) error) string {
	if _, ok := known[jobType]; ok {
		return jobType
	}
	return "unknown"
}

// SubscriberConfig configures a Subscriber. Zero limits take the defaults.
type SubscriberConfig struct {
	ProjectID      string
	Subscription   string
	MaxOutstanding int
	MaxExtension   time.Duration
	Dispatcher     *Dispatcher
	Logger         zerolog.Logger
}

// Subscriber feeds Pub/Sub deliveries to a Dispatcher.
type Subscriber struct {
	client     *pubsub.Client
	sub        *pubsub.Subscriber
	name       string
	dispatcher *Dispatcher
	log        zerolog.Logger
}

func NewSubscriber(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	if cfg.MaxOutstanding <= 0 {
		cfg.MaxOutstanding = 10
	}
	if cfg.MaxExtension <= 0 {
		cfg.MaxExtension = 10 * time.Minute
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	sub := client.Subscriber(cfg.Subscription)
	sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	sub.ReceiveSettings.MaxExtension = cfg.MaxExtension

	return &Subscriber{
		client:     client,
		sub:        sub,
		name:       cfg.Subscription,
		dispatcher: cfg.Dispatcher,
		log:        cfg.Logger,
	}, nil
}

// Run receives messages until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	s.log.Info().Str("subscription", s.name).Msg("receiving job messages")
	return s.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		s.log.Debug().Str("message_id", m.ID).Int("attempt", deliveryAttempt(m)).Msg("job message received")
		if s.dispatcher.Handle(ctx, m.Data) == Nack {
			m.Nack()
			return
		}
		m.Ack()
	})
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}

func deliveryAttempt(m *pubsub.Message) int {
	if m.DeliveryAttempt == nil {
		return 1
	}
	return *m.DeliveryAttempt
}
