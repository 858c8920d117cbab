package interfaces

import "context"

// UnitOfWork groups repository operations in one database transaction.
// Events published on EventBus are delivered only after Commit.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	EventRepository() GamificationEventRepository
	ConfigRepository() CampaignGamificationConfigRepository
	StreamerRewardRepository() StreamerRewardRepository
	CampaignRepository() CampaignRepository
	StreamerRepository() StreamerRepository
	InstanceRepository() GamificationInstanceRepository
	ContributionRepository() GamificationContributionRepository
	PreFlightReportRepository() PreFlightReportRepository
	EventSubRepository() EventSubSubscriptionRepository
	CriticalityRuleRepository() CriticalityRuleRepository
	ItemCategoryRuleRepository() ItemCategoryRuleRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// TransactionalEventPublisher buffers events until the owning transaction ends
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes every buffered event
	Flush(ctx context.Context) error

	// Discard drops every buffered event
	Discard()
}
