package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/metrics"
	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/notify"
	"github.com/schemafence/schemafence/internal/objstore"
	"github.com/schemafence/schemafence/internal/ws"
)

type jobKind int

const (
	jobProvision jobKind = iota
	jobDeprovision
)

type provisionJob struct {
	kind     jobKind
	tenantID uuid.UUID
	actor    uuid.UUID
}

// jobTimeout bounds a single provisioning or deprovisioning run.
const jobTimeout = 5 * time.Minute

// Provisioner executes tenant schema creation and destruction on a
// bounded worker pool. There is no automatic retry: a failed provision
// leaves the tenant in failed for an explicit retry, a failed deletion
// leaves it in deleting for operator attention. Status stays inspectable
// throughout either run.
type Provisioner struct {
	tenants   TenantRegistry
	members   MembershipStore
	schemas   SchemaManager
	deletions DeletionLedger
	recorder  AuditRecorder
	sessions  SessionInvalidator
	artifacts objstore.ArtifactStore
	notifier  notify.Notifier
	hub       Broadcaster
	log       *logrus.Logger

	jobs    chan provisionJob
	workers int
}

// NewProvisioner creates a Provisioner with the given worker count and
// queue capacity.
func NewProvisioner(
	tenants TenantRegistry,
	members MembershipStore,
	schemas SchemaManager,
	deletions DeletionLedger,
	recorder AuditRecorder,
	sessions SessionInvalidator,
	artifacts objstore.ArtifactStore,
	notifier notify.Notifier,
	hub Broadcaster,
	log *logrus.Logger,
	workers, queueSize int,
) *Provisioner {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Provisioner{
		tenants:   tenants,
		members:   members,
		schemas:   schemas,
		deletions: deletions,
		recorder:  recorder,
		sessions:  sessions,
		artifacts: artifacts,
		notifier:  notifier,
		hub:       hub,
		log:       log,
		jobs:      make(chan provisionJob, queueSize),
		workers:   workers,
	}
}

// EnqueueProvision queues a provisioning run. Returns false if the queue
// is full; the tenant stays pending and the caller decides what to do.
func (p *Provisioner) EnqueueProvision(tenantID, actor uuid.UUID) bool {
	return p.enqueue(provisionJob{kind: jobProvision, tenantID: tenantID, actor: actor})
}

// EnqueueDeprovision queues a deletion run.
func (p *Provisioner) EnqueueDeprovision(tenantID, actor uuid.UUID) bool {
	return p.enqueue(provisionJob{kind: jobDeprovision, tenantID: tenantID, actor: actor})
}

func (p *Provisioner) enqueue(job provisionJob) bool {
	select {
	case p.jobs <- job:
		metrics.ProvisionQueueDepth.Set(float64(len(p.jobs)))
		return true
	default:
		return false
	}
}

// Run processes jobs on the worker pool until ctx is cancelled, then
// drains the queue so accepted work always completes.
func (p *Provisioner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}
	wg.Wait()
}

func (p *Provisioner) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case job := <-p.jobs:
			p.dispatch(job)
		}
	}
}

func (p *Provisioner) drain() {
	for {
		select {
		case job := <-p.jobs:
			p.dispatch(job)
		default:
			return
		}
	}
}

func (p *Provisioner) dispatch(job provisionJob) {
	metrics.ProvisionQueueDepth.Set(float64(len(p.jobs)))

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	switch job.kind {
	case jobProvision:
		p.provision(ctx, job)
	case jobDeprovision:
		p.deprovision(ctx, job)
	}
}

// provision runs pending|failed -> provisioning -> ready|failed.
func (p *Provisioner) provision(ctx context.Context, job provisionJob) {
	log := p.log.WithField("tenant_id", job.tenantID)

	tenant, err := p.tenants.GetByID(ctx, job.tenantID)
	if err != nil {
		log.WithError(err).Error("provision: tenant lookup failed")
		return
	}

	// A pending tenant has never been provisioned; a failed one is a
	// retry. The distinction decides whether org.created is written below.
	firstProvision := tenant.Status == models.TenantPending

	if err := p.tenants.UpdateStatus(ctx, tenant.ID, models.TenantProvisioning, ""); err != nil {
		// Duplicate job or concurrent run; the transition check already
		// decided this run must not proceed.
		log.WithError(err).Warn("provision: skipping, transition refused")
		return
	}
	tenant.Status = models.TenantProvisioning
	p.broadcast(ws.EventTenantProvisioning, tenant)

	start := time.Now()
	provisionErr := p.schemas.Create(ctx, tenant.SchemaName)
	metrics.ProvisionDuration.Observe(time.Since(start).Seconds())

	if provisionErr != nil {
		log.WithError(provisionErr).Error("provision: schema creation failed")
		metrics.ProvisionsTotal.WithLabelValues("failure").Inc()

		if err := p.tenants.UpdateStatus(ctx, tenant.ID, models.TenantFailed, provisionErr.Error()); err != nil {
			log.WithError(err).Error("provision: failed to mark tenant failed")
		}
		tenant.Status = models.TenantFailed
		p.broadcast(ws.EventTenantFailed, tenant)
		// No ledger entry: the tenant schema does not exist, so there is
		// no audit table to write to. The failure is durable in the
		// registry's last_error column.
		return
	}

	if err := p.tenants.UpdateStatus(ctx, tenant.ID, models.TenantReady, ""); err != nil {
		log.WithError(err).Error("provision: failed to mark tenant ready")
		return
	}
	metrics.ProvisionsTotal.WithLabelValues("success").Inc()
	tenant.Status = models.TenantReady

	if users, err := p.members.ActiveUserIDs(ctx, tenant.ID); err == nil {
		p.notifier.TenantReady(ctx, tenant, users)
	}
	p.broadcast(ws.EventTenantReady, tenant)

	// org.created is deferred to this point: the schema, and with it the
	// audit table, only now exists. Retries of a failed tenant skip it so
	// the ledger records creation once.
	if firstProvision {
		p.recordLifecycleAudit(ctx, tenant, job.actor, models.ActionOrgCreated,
			map[string]any{"name": tenant.Name, "slug": tenant.Slug})
	}
	p.recordLifecycleAudit(ctx, tenant, job.actor, models.ActionOrgProvisioned, nil)

	log.WithField("schema", tenant.SchemaName).Info("tenant provisioned")
}

// deprovision destroys a tenant. Order is fixed: the deletion audit row
// is written first and its failure aborts the run; the schema drop is the
// point of no return; everything around them is collected best-effort and
// flips the partial flag.
func (p *Provisioner) deprovision(ctx context.Context, job provisionJob) {
	log := p.log.WithField("tenant_id", job.tenantID)

	tenant, err := p.tenants.GetByID(ctx, job.tenantID)
	if err != nil {
		log.WithError(err).Error("deprovision: tenant lookup failed")
		return
	}
	if tenant.Status != models.TenantDeleting {
		log.WithField("status", tenant.Status).Warn("deprovision: skipping, tenant not in deleting")
		return
	}

	users, err := p.members.ActiveUserIDs(ctx, tenant.ID)
	if err != nil {
		log.WithError(err).Error("deprovision: member enumeration failed, aborting")
		metrics.DeletionsTotal.WithLabelValues("aborted").Inc()
		return
	}

	// Step 1: the global evidence row. Without it the deletion is not
	// allowed to happen.
	rec := &models.DeletionRecord{
		TenantID:    tenant.ID,
		TenantName:  tenant.Name,
		Slug:        tenant.Slug,
		SchemaName:  tenant.SchemaName,
		Actor:       job.actor,
		MemberCount: len(users),
		Detail:      map[string]any{"retention_days": tenant.RetentionDays},
	}
	recID, err := p.deletions.Record(ctx, rec)
	if err != nil {
		log.WithError(err).Error("deprovision: deletion record write failed, aborting")
		metrics.DeletionsTotal.WithLabelValues("aborted").Inc()
		return
	}
	rec.ID = recID

	p.broadcast(ws.EventTenantDeleting, tenant)

	var result *multierror.Error
	stepErrs := map[string]any{}
	collect := func(step string, err error) {
		if err != nil {
			result = multierror.Append(result, err)
			stepErrs[step] = err.Error()
		}
	}

	// Step 2: tell members before their access disappears.
	p.notifier.TenantDeleted(ctx, tenant.Name, tenant.Slug, users)

	// Step 3: revoke live sessions.
	for _, u := range users {
		collect("invalidate_sessions", p.sessions.InvalidateUser(ctx, u))
	}

	// Step 4: soft-remove memberships; history rows survive.
	_, err = p.members.RemoveAllForTenant(ctx, tenant.ID)
	collect("remove_memberships", err)

	// Step 5: stored artifacts.
	collect("remove_artifacts", p.artifacts.RemoveTenant(ctx, tenant.Slug))

	// Last entry in the tenant's own ledger, written synchronously so it
	// lands before the table ceases to exist.
	p.recordLifecycleAudit(ctx, tenant, job.actor, models.ActionOrgDeleted, nil)

	// Step 6: the drop. The schema name is re-read from the registry,
	// never taken from the job, and re-validated inside the store.
	fresh, err := p.tenants.GetByID(ctx, tenant.ID)
	if err != nil {
		log.WithError(err).Error("deprovision: re-reading tenant before drop failed")
		p.markPartial(ctx, rec, map[string]any{"pre_drop_read": err.Error()})
		metrics.DeletionsTotal.WithLabelValues("failed").Inc()
		return
	}
	if err := p.schemas.Drop(ctx, fresh.SchemaName); err != nil {
		log.WithError(err).Error("deprovision: schema drop failed, tenant left in deleting")
		stepErrs["drop_schema"] = err.Error()
		p.markPartial(ctx, rec, stepErrs)
		metrics.DeletionsTotal.WithLabelValues("failed").Inc()
		return
	}

	// Step 7: remove the registry row.
	collect("delete_registry_row", p.tenants.DeleteRow(ctx, tenant.ID))

	// Step 8: users whose default pointed here get repointed or cleared.
	for _, u := range users {
		collect("repoint_defaults", p.members.RepointDefault(ctx, u, tenant.ID))
	}

	tenant.Status = models.TenantDeleting
	p.broadcast(ws.EventTenantDeleted, tenant)

	if result.ErrorOrNil() != nil {
		log.WithError(result).Warn("deprovision: completed with partial failures")
		p.markPartial(ctx, rec, stepErrs)
		metrics.DeletionsTotal.WithLabelValues("partial").Inc()
		return
	}

	metrics.DeletionsTotal.WithLabelValues("clean").Inc()
	log.WithField("schema", rec.SchemaName).Info("tenant deleted")
}

func (p *Provisioner) markPartial(ctx context.Context, rec *models.DeletionRecord, stepErrs map[string]any) {
	if err := p.deletions.MarkPartial(ctx, rec, stepErrs); err != nil {
		p.log.WithError(err).WithField("tenant_id", rec.TenantID).
			Error("deprovision: failed to record partial-failure row")
	}
}

// recordLifecycleAudit writes a lifecycle entry synchronously. Lifecycle
// runs are rare and already asynchronous, so there is no queue between
// them and the ledger.
func (p *Provisioner) recordLifecycleAudit(ctx context.Context, tenant *models.Tenant, actor uuid.UUID, action string, detail map[string]any) {
	entry := &models.AuditEntry{
		TenantID:     tenant.ID,
		Actor:        actor,
		Action:       action,
		ResourceType: "tenant",
		ResourceID:   tenant.ID.String(),
		Detail:       detail,
	}
	if err := p.recorder.Record(ctx, tenant.SchemaName, entry); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenant.ID,
			"action":    action,
		}).Warn("lifecycle audit write failed")
	}
}

func (p *Provisioner) broadcast(eventType string, tenant *models.Tenant) {
	if p.hub == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"slug":   tenant.Slug,
		"status": tenant.Status,
	})
	if err != nil {
		return
	}

	p.hub.BroadcastEvent(eventType, tenant.ID.String(), payload)
}
