package testhelpers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/events"
	"tumulte/domain/interfaces"

	"github.com/google/uuid"
)

// InMemoryInstanceRepository stores instances in memory with the same
// conditional update semantics as the Postgres repository
type InMemoryInstanceRepository struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*entities.GamificationInstance
}

func NewInMemoryInstanceRepository(seed ...*entities.GamificationInstance) *InMemoryInstanceRepository {
	r := &InMemoryInstanceRepository{instances: make(map[uuid.UUID]*entities.GamificationInstance)}
	for _, inst := range seed {
		r.instances[inst.ID] = copyInstance(inst)
	}
	return r
}

func copyInstance(inst *entities.GamificationInstance) *entities.GamificationInstance {
	c := *inst
	return &c
}

func sameKey(inst *entities.GamificationInstance, key entities.InstanceKey) bool {
	if inst.EventID != key.EventID || inst.CampaignID != key.CampaignID {
		return false
	}
	if key.StreamerID == nil || inst.StreamerID == nil {
		return key.StreamerID == nil && inst.StreamerID == nil
	}
	return *key.StreamerID == *inst.StreamerID
}

func (r *InMemoryInstanceRepository) Create(_ context.Context, instance *entities.GamificationInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if instance.ID == uuid.Nil {
		instance.ID = uuid.New()
	}
	now := time.Now()
	instance.CreatedAt = now
	instance.UpdatedAt = now
	r.instances[instance.ID] = copyInstance(instance)
	return nil
}

func (r *InMemoryInstanceRepository) GetByID(_ context.Context, id uuid.UUID) (*entities.GamificationInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return nil, nil
	}
	return copyInstance(inst), nil
}

func (r *InMemoryInstanceRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.GamificationInstance, error) {
	return r.GetByID(ctx, id)
}

func (r *InMemoryInstanceRepository) GetOpenByKey(_ context.Context, key entities.InstanceKey) (*entities.GamificationInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range r.instances {
		if inst.IsOpen() && sameKey(inst, key) {
			return copyInstance(inst), nil
		}
	}
	return nil, nil
}

func (r *InMemoryInstanceRepository) GetOpenByCampaign(_ context.Context, campaignID uuid.UUID) ([]*entities.GamificationInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []*entities.GamificationInstance
	for _, inst := range r.instances {
		if inst.IsOpen() && inst.CampaignID == campaignID {
			open = append(open, copyInstance(inst))
		}
	}
	sortByCreation(open)
	return open, nil
}

func (r *InMemoryInstanceRepository) GetLatestCooldownEnd(_ context.Context, key entities.InstanceKey) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, inst := range r.instances {
		if inst.CooldownEndsAt == nil || !sameKey(inst, key) {
			continue
		}
		if latest == nil || inst.CooldownEndsAt.After(*latest) {
			t := *inst.CooldownEndsAt
			latest = &t
		}
	}
	return latest, nil
}

func (r *InMemoryInstanceRepository) GetExpirable(_ context.Context, now time.Time) ([]*entities.GamificationInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expirable []*entities.GamificationInstance
	for _, inst := range r.instances {
		if inst.IsOpen() && inst.IsExpiredAt(now) {
			expirable = append(expirable, copyInstance(inst))
		}
	}
	sortByCreation(expirable)
	return expirable, nil
}

func (r *InMemoryInstanceRepository) GetCampaignsWithArmed(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, inst := range r.instances {
		if inst.Status == entities.InstanceStatusArmed && inst.ExecutionStatus == entities.ExecutionStatusPending && !seen[inst.CampaignID] {
			seen[inst.CampaignID] = true
			ids = append(ids, inst.CampaignID)
		}
	}
	return ids, nil
}

func (r *InMemoryInstanceRepository) UpdateProgress(_ context.Context, id uuid.UUID, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok || !inst.IsOpen() {
		return errors.New("instance not found or not open")
	}
	inst.CurrentProgress = progress
	inst.UpdatedAt = time.Now()
	return nil
}

func (r *InMemoryInstanceRepository) TransitionStatus(_ context.Context, id uuid.UUID, from []entities.InstanceStatus, to entities.InstanceStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if inst.Status == s {
			inst.Status = to
			inst.UpdatedAt = at
			if to == entities.InstanceStatusArmed {
				inst.ArmedAt = &at
			}
			if to.IsTerminal() {
				inst.CompletedAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryInstanceRepository) ClaimForExecution(_ context.Context, id uuid.UUID, completedAt time.Time, cooldownEndsAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok || inst.Status != entities.InstanceStatusArmed || inst.ExecutionStatus != entities.ExecutionStatusPending {
		return false, nil
	}
	inst.Status = entities.InstanceStatusCompleted
	inst.CompletedAt = &completedAt
	inst.CooldownEndsAt = cooldownEndsAt
	inst.UpdatedAt = completedAt
	return true, nil
}

func (r *InMemoryInstanceRepository) RecordExecution(_ context.Context, id uuid.UUID, status entities.ExecutionStatus, executedAt time.Time, result *entities.ResultData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return errors.New("instance not found")
	}
	inst.ExecutionStatus = status
	inst.ExecutedAt = &executedAt
	inst.ResultData = result
	return nil
}

// All returns a snapshot of every stored instance
func (r *InMemoryInstanceRepository) All() []*entities.GamificationInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*entities.GamificationInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		all = append(all, copyInstance(inst))
	}
	sortByCreation(all)
	return all
}

func sortByCreation(list []*entities.GamificationInstance) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
}

// InMemoryContributionRepository stores contributions in memory and
// enforces redemption id uniqueness
type InMemoryContributionRepository struct {
	mu            sync.Mutex
	contributions []*entities.GamificationContribution
}

func NewInMemoryContributionRepository() *InMemoryContributionRepository {
	return &InMemoryContributionRepository{}
}

func (r *InMemoryContributionRepository) Create(_ context.Context, contribution *entities.GamificationContribution) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contributions {
		if c.TwitchRedemptionID == contribution.TwitchRedemptionID {
			return false, nil
		}
	}
	if contribution.ID == uuid.Nil {
		contribution.ID = uuid.New()
	}
	contribution.CreatedAt = time.Now()
	c := *contribution
	r.contributions = append(r.contributions, &c)
	return true, nil
}

func (r *InMemoryContributionRepository) GetByRedemptionID(_ context.Context, redemptionID string) (*entities.GamificationContribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contributions {
		if c.TwitchRedemptionID == redemptionID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryContributionRepository) GetByInstance(_ context.Context, instanceID uuid.UUID) ([]*entities.GamificationContribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*entities.GamificationContribution
	for _, c := range r.contributions {
		if c.InstanceID == instanceID {
			cp := *c
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (r *InMemoryContributionRepository) MarkRefunded(_ context.Context, id uuid.UUID, refundedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contributions {
		if c.ID == id {
			c.Refunded = true
			c.RefundedAt = &refundedAt
			return nil
		}
	}
	return errors.New("contribution not found")
}

// RecordingPublisher collects published events
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the events published so far
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// OfType returns the published events of the given type
func (p *RecordingPublisher) OfType(t events.EventType) []events.Event {
	var matched []events.Event
	for _, e := range p.Events() {
		if e.Type() == t {
			matched = append(matched, e)
		}
	}
	return matched
}

// FakeRepositories holds the repositories handed out by a FakeUnitOfWorkFactory.
// Nil fields are replaced by empty mocks.
type FakeRepositories struct {
	Events        interfaces.GamificationEventRepository
	Configs       interfaces.CampaignGamificationConfigRepository
	Rewards       interfaces.StreamerRewardRepository
	Campaigns     interfaces.CampaignRepository
	Streamers     interfaces.StreamerRepository
	Instances     interfaces.GamificationInstanceRepository
	Contributions interfaces.GamificationContributionRepository
	Reports       interfaces.PreFlightReportRepository
	EventSubs     interfaces.EventSubSubscriptionRepository
	Criticality   interfaces.CriticalityRuleRepository
	ItemRules     interfaces.ItemCategoryRuleRepository
}

// FakeUnitOfWorkFactory creates units of work that share one set of
// repositories. Transactions are serialized, which stands in for row locks,
// and events reach Publisher only on commit.
type FakeUnitOfWorkFactory struct {
	Repos     FakeRepositories
	Publisher *RecordingPublisher

	txMu      sync.Mutex
	mu        sync.Mutex
	begun     int
	committed int
}

func NewFakeUnitOfWorkFactory(repos FakeRepositories) *FakeUnitOfWorkFactory {
	if repos.Events == nil {
		repos.Events = &MockGamificationEventRepository{}
	}
	if repos.Configs == nil {
		repos.Configs = &MockCampaignGamificationConfigRepository{}
	}
	if repos.Rewards == nil {
		repos.Rewards = &MockStreamerRewardRepository{}
	}
	if repos.Campaigns == nil {
		repos.Campaigns = &MockCampaignRepository{}
	}
	if repos.Streamers == nil {
		repos.Streamers = &MockStreamerRepository{}
	}
	if repos.Instances == nil {
		repos.Instances = NewInMemoryInstanceRepository()
	}
	if repos.Contributions == nil {
		repos.Contributions = NewInMemoryContributionRepository()
	}
	if repos.Reports == nil {
		repos.Reports = &MockPreFlightReportRepository{}
	}
	if repos.EventSubs == nil {
		repos.EventSubs = &MockEventSubSubscriptionRepository{}
	}
	if repos.Criticality == nil {
		repos.Criticality = &MockCriticalityRuleRepository{}
	}
	if repos.ItemRules == nil {
		repos.ItemRules = &MockItemCategoryRuleRepository{}
	}
	return &FakeUnitOfWorkFactory{Repos: repos, Publisher: &RecordingPublisher{}}
}

func (f *FakeUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &fakeUnitOfWork{factory: f}
}

// Counts returns how many transactions were begun and committed
func (f *FakeUnitOfWorkFactory) Counts() (begun, committed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begun, f.committed
}

type fakeUnitOfWork struct {
	factory *FakeUnitOfWorkFactory
	active  bool
	pending []events.Event
}

func (u *fakeUnitOfWork) Begin(context.Context) error {
	if u.active {
		return errors.New("transaction already started")
	}
	u.factory.txMu.Lock()
	u.active = true
	u.factory.mu.Lock()
	u.factory.begun++
	u.factory.mu.Unlock()
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	if !u.active {
		return errors.New("no transaction to commit")
	}
	u.active = false
	u.factory.mu.Lock()
	u.factory.committed++
	u.factory.mu.Unlock()
	pending := u.pending
	u.pending = nil
	u.factory.txMu.Unlock()
	for _, e := range pending {
		_ = u.factory.Publisher.Publish(e)
	}
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.active = false
	u.pending = nil
	u.factory.txMu.Unlock()
	return nil
}

func (u *fakeUnitOfWork) Publish(event events.Event) error {
	u.pending = append(u.pending, event)
	return nil
}

func (u *fakeUnitOfWork) EventRepository() interfaces.GamificationEventRepository {
	return u.factory.Repos.Events
}

func (u *fakeUnitOfWork) ConfigRepository() interfaces.CampaignGamificationConfigRepository {
	return u.factory.Repos.Configs
}

func (u *fakeUnitOfWork) StreamerRewardRepository() interfaces.StreamerRewardRepository {
	return u.factory.Repos.Rewards
}

func (u *fakeUnitOfWork) CampaignRepository() interfaces.CampaignRepository {
	return u.factory.Repos.Campaigns
}

func (u *fakeUnitOfWork) StreamerRepository() interfaces.StreamerRepository {
	return u.factory.Repos.Streamers
}

func (u *fakeUnitOfWork) InstanceRepository() interfaces.GamificationInstanceRepository {
	return u.factory.Repos.Instances
}

func (u *fakeUnitOfWork) ContributionRepository() interfaces.GamificationContributionRepository {
	return u.factory.Repos.Contributions
}

func (u *fakeUnitOfWork) PreFlightReportRepository() interfaces.PreFlightReportRepository {
	return u.factory.Repos.Reports
}

func (u *fakeUnitOfWork) EventSubRepository() interfaces.EventSubSubscriptionRepository {
	return u.factory.Repos.EventSubs
}

func (u *fakeUnitOfWork) CriticalityRuleRepository() interfaces.CriticalityRuleRepository {
	return u.factory.Repos.Criticality
}

func (u *fakeUnitOfWork) ItemCategoryRuleRepository() interfaces.ItemCategoryRuleRepository {
	return u.factory.Repos.ItemRules
}

func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher {
	return u
}
