package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/schemafence/schemafence/internal/models"
)

// mockTenantRegistry records calls and returns configured responses.
type mockTenantRegistry struct {
	mu    sync.Mutex
	calls []string

	create         func(ctx context.Context, name string, createdBy uuid.UUID, retentionDays int, settings map[string]any) (*models.Tenant, error)
	getByID        func(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	getBySlug      func(ctx context.Context, slug string) (*models.Tenant, error)
	updateStatus   func(ctx context.Context, id uuid.UUID, status, lastError string) error
	updateSettings func(ctx context.Context, id uuid.UUID, req models.UpdateTenantRequest) (*models.Tenant, error)
	deleteRow      func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTenantRegistry) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockTenantRegistry) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func (m *mockTenantRegistry) Create(ctx context.Context, name string, createdBy uuid.UUID, retentionDays int, settings map[string]any) (*models.Tenant, error) {
	m.record("Create")
	return m.create(ctx, name, createdBy, retentionDays, settings)
}

func (m *mockTenantRegistry) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	m.record("GetByID")
	return m.getByID(ctx, id)
}

func (m *mockTenantRegistry) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	m.record("GetBySlug")
	return m.getBySlug(ctx, slug)
}

func (m *mockTenantRegistry) UpdateStatus(ctx context.Context, id uuid.UUID, status, lastError string) error {
	m.record("UpdateStatus:" + status)
	return m.updateStatus(ctx, id, status, lastError)
}

func (m *mockTenantRegistry) UpdateSettings(ctx context.Context, id uuid.UUID, req models.UpdateTenantRequest) (*models.Tenant, error) {
	m.record("UpdateSettings")
	return m.updateSettings(ctx, id, req)
}

func (m *mockTenantRegistry) DeleteRow(ctx context.Context, id uuid.UUID) error {
	m.record("DeleteRow")
	return m.deleteRow(ctx, id)
}

// mockMembershipStore records calls and returns configured responses.
// Unconfigured methods succeed with zero values.
type mockMembershipStore struct {
	mu    sync.Mutex
	calls []string

	add                func(ctx context.Context, tenantID, userID uuid.UUID, role string, invitedBy *uuid.UUID) (*models.Membership, error)
	get                func(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error)
	list               func(ctx context.Context, tenantID uuid.UUID, includeRemoved bool) ([]models.Membership, error)
	remove             func(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error)
	changeRole         func(ctx context.Context, tenantID, userID uuid.UUID, role string) (*models.Membership, error)
	activeUserIDs      func(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)
	removeAllForTenant func(ctx context.Context, tenantID uuid.UUID) (int, error)
	getDefaultTenant   func(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	repointDefault     func(ctx context.Context, userID, deletedTenantID uuid.UUID) error
}

func (m *mockMembershipStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockMembershipStore) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func (m *mockMembershipStore) Add(ctx context.Context, tenantID, userID uuid.UUID, role string, invitedBy *uuid.UUID) (*models.Membership, error) {
	m.record("Add")
	if m.add == nil {
		return &models.Membership{TenantID: tenantID, UserID: userID, Role: role, Status: models.MemberActive}, nil
	}
	return m.add(ctx, tenantID, userID, role, invitedBy)
}

func (m *mockMembershipStore) Get(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error) {
	m.record("Get")
	if m.get == nil {
		return nil, models.ErrMemberNotFound
	}
	return m.get(ctx, tenantID, userID)
}

func (m *mockMembershipStore) List(ctx context.Context, tenantID uuid.UUID, includeRemoved bool) ([]models.Membership, error) {
	m.record("List")
	if m.list == nil {
		return nil, nil
	}
	return m.list(ctx, tenantID, includeRemoved)
}

func (m *mockMembershipStore) Remove(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error) {
	m.record("Remove")
	if m.remove == nil {
		return &models.Membership{TenantID: tenantID, UserID: userID, Status: models.MemberRemoved}, nil
	}
	return m.remove(ctx, tenantID, userID)
}

func (m *mockMembershipStore) ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role string) (*models.Membership, error) {
	m.record("ChangeRole")
	if m.changeRole == nil {
		return &models.Membership{TenantID: tenantID, UserID: userID, Role: role, Status: models.MemberActive}, nil
	}
	return m.changeRole(ctx, tenantID, userID, role)
}

func (m *mockMembershipStore) GetDefaultTenant(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	m.record("GetDefaultTenant")
	if m.getDefaultTenant == nil {
		return uuid.Nil, nil
	}
	return m.getDefaultTenant(ctx, userID)
}

func (m *mockMembershipStore) ActiveUserIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	m.record("ActiveUserIDs")
	if m.activeUserIDs == nil {
		return nil, nil
	}
	return m.activeUserIDs(ctx, tenantID)
}

func (m *mockMembershipStore) RemoveAllForTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	m.record("RemoveAllForTenant")
	if m.removeAllForTenant == nil {
		return 0, nil
	}
	return m.removeAllForTenant(ctx, tenantID)
}

func (m *mockMembershipStore) SetDefaultTenant(ctx context.Context, userID, tenantID uuid.UUID) error {
	m.record("SetDefaultTenant")
	return nil
}

func (m *mockMembershipStore) RepointDefault(ctx context.Context, userID, deletedTenantID uuid.UUID) error {
	m.record("RepointDefault")
	if m.repointDefault == nil {
		return nil
	}
	return m.repointDefault(ctx, userID, deletedTenantID)
}

// mockSchemaManager records calls and returns configured errors.
type mockSchemaManager struct {
	mu    sync.Mutex
	calls []string

	createErr error
	dropErr   error
	exists    bool
	existsErr error
}

func (m *mockSchemaManager) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockSchemaManager) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func (m *mockSchemaManager) Create(ctx context.Context, schemaName string) error {
	m.record("Create:" + schemaName)
	return m.createErr
}

func (m *mockSchemaManager) Drop(ctx context.Context, schemaName string) error {
	m.record("Drop:" + schemaName)
	return m.dropErr
}

func (m *mockSchemaManager) Exists(ctx context.Context, schemaName string) (bool, error) {
	m.record("Exists")
	return m.exists, m.existsErr
}

// mockAuditRecorder records written entries.
type mockAuditRecorder struct {
	mu      sync.Mutex
	entries []models.AuditEntry

	err error
}

func (m *mockAuditRecorder) Record(ctx context.Context, schemaName string, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return m.err
}

func (m *mockAuditRecorder) getEntries() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]models.AuditEntry, len(m.entries))
	copy(cp, m.entries)
	return cp
}

// mockAuditEnqueuer records enqueued jobs synchronously.
type mockAuditEnqueuer struct {
	mu   sync.Mutex
	jobs []AuditJob
}

func (m *mockAuditEnqueuer) Enqueue(job *AuditJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, *job)
}

func (m *mockAuditEnqueuer) getJobs() []AuditJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]AuditJob, len(m.jobs))
	copy(cp, m.jobs)
	return cp
}

// mockDeletionLedger records deletion rows.
type mockDeletionLedger struct {
	mu       sync.Mutex
	records  []models.DeletionRecord
	partials []map[string]any

	recordErr error
}

func (m *mockDeletionLedger) Record(ctx context.Context, rec *models.DeletionRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return 0, m.recordErr
	}
	m.records = append(m.records, *rec)
	return int64(len(m.records)), nil
}

func (m *mockDeletionLedger) MarkPartial(ctx context.Context, rec *models.DeletionRecord, stepErrors map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partials = append(m.partials, stepErrors)
	return nil
}

func (m *mockDeletionLedger) getRecords() []models.DeletionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]models.DeletionRecord, len(m.records))
	copy(cp, m.records)
	return cp
}

func (m *mockDeletionLedger) getPartials() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]map[string]any, len(m.partials))
	copy(cp, m.partials)
	return cp
}

// mockSessionInvalidator records invalidated users.
type mockSessionInvalidator struct {
	mu    sync.Mutex
	users []uuid.UUID

	err error
}

func (m *mockSessionInvalidator) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, userID)
	return m.err
}

func (m *mockSessionInvalidator) getUsers() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]uuid.UUID, len(m.users))
	copy(cp, m.users)
	return cp
}

// mockSecondFactor returns a configured verification result.
type mockSecondFactor struct {
	err error
}

func (m *mockSecondFactor) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	return m.err
}

// mockNotifier records notification calls.
type mockNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockNotifier) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockNotifier) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func (m *mockNotifier) TenantReady(ctx context.Context, tenant *models.Tenant, users []uuid.UUID) {
	m.record("TenantReady")
}

func (m *mockNotifier) TenantDeleted(ctx context.Context, name, slug string, users []uuid.UUID) {
	m.record("TenantDeleted")
}

func (m *mockNotifier) MemberAdded(ctx context.Context, tenant *models.Tenant, userID uuid.UUID, role string) {
	m.record("MemberAdded")
}

// mockArtifactStore records puts and removals.
type mockArtifactStore struct {
	mu      sync.Mutex
	puts    []string
	removed []string

	putErr    error
	removeErr error
}

func (m *mockArtifactStore) Put(ctx context.Context, slug, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts = append(m.puts, slug+"/"+name)
	return nil
}

func (m *mockArtifactStore) RemoveTenant(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, slug)
	return m.removeErr
}

// mockBroadcaster records broadcast event types.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (m *mockBroadcaster) BroadcastEvent(eventType, tenantID string, data json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

func (m *mockBroadcaster) getEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.events))
	copy(cp, m.events)
	return cp
}

// mockJobEnqueuer records enqueued jobs and returns a configured result.
type mockJobEnqueuer struct {
	mu           sync.Mutex
	provisions   []uuid.UUID
	deprovisions []uuid.UUID

	full bool
}

func (m *mockJobEnqueuer) EnqueueProvision(tenantID, actor uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return false
	}
	m.provisions = append(m.provisions, tenantID)
	return true
}

func (m *mockJobEnqueuer) EnqueueDeprovision(tenantID, actor uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return false
	}
	m.deprovisions = append(m.deprovisions, tenantID)
	return true
}

// mockAuditQuerier returns configured audit pages.
type mockAuditQuerier struct {
	query func(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

func (m *mockAuditQuerier) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	return m.query(ctx, opts)
}

// mockMFAStore keeps sealed seeds in memory.
type mockMFAStore struct {
	mu    sync.Mutex
	seeds map[uuid.UUID]string
}

func (m *mockMFAStore) Enroll(ctx context.Context, userID uuid.UUID, encryptedSeed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seeds == nil {
		m.seeds = make(map[uuid.UUID]string)
	}
	m.seeds[userID] = encryptedSeed
	return nil
}

func (m *mockMFAStore) EncryptedSeed(ctx context.Context, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seed, ok := m.seeds[userID]
	if !ok {
		return "", models.ErrSecondFactor
	}
	return seed, nil
}
