package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/metrics"
	"github.com/schemafence/schemafence/internal/models"
)

// AuditJob is a single audit entry queued for asynchronous recording.
// SchemaName travels with the job because the worker writes outside any
// request context.
type AuditJob struct {
	TenantID     uuid.UUID
	SchemaName   string
	Actor        uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	Detail       map[string]any
	IP           string
	UserAgent    string
}

// auditWriteTimeout bounds each individual ledger write so one stuck
// insert cannot stall the whole queue.
const auditWriteTimeout = 10 * time.Second

// AuditWorker buffers audit entries and writes them via a single worker
// goroutine. The ledger is best-effort by design: a full queue drops the
// entry with a warning and a metric rather than blocking the request path.
type AuditWorker struct {
	recorder AuditRecorder
	log      *logrus.Logger
	jobs     chan *AuditJob
}

// NewAuditWorker creates an AuditWorker with the given queue capacity.
func NewAuditWorker(recorder AuditRecorder, log *logrus.Logger, queueSize int) *AuditWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &AuditWorker{
		recorder: recorder,
		log:      log,
		jobs:     make(chan *AuditJob, queueSize),
	}
}

// Enqueue adds an audit job. Non-blocking; drops the job if the queue is full.
func (w *AuditWorker) Enqueue(job *AuditJob) {
	select {
	case w.jobs <- job:
	default:
		metrics.AuditDropsTotal.Inc()
		w.log.WithFields(logrus.Fields{
			"action":    job.Action,
			"tenant_id": job.TenantID,
		}).Warn("audit queue full, dropping entry")
	}
}

// Run processes audit jobs until the context is cancelled, then drains
// remaining jobs.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case job := <-w.jobs:
			w.process(job)
		}
	}
}

func (w *AuditWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
		default:
			return
		}
	}
}

func (w *AuditWorker) process(job *AuditJob) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	entry := &models.AuditEntry{
		TenantID:     job.TenantID,
		Actor:        job.Actor,
		Action:       job.Action,
		ResourceType: job.ResourceType,
		ResourceID:   job.ResourceID,
		Detail:       job.Detail,
		IP:           job.IP,
		UserAgent:    job.UserAgent,
	}

	if err := w.recorder.Record(ctx, job.SchemaName, entry); err != nil {
		metrics.AuditDropsTotal.Inc()
		w.log.WithError(err).WithFields(logrus.Fields{
			"action":    job.Action,
			"tenant_id": job.TenantID,
		}).Warn("audit record failed")
	}
}
