package repository

import (
	"context"
	"fmt"

	"tumulte/database"
	"tumulte/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements interfaces.UnitOfWork over a pgx transaction
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher

	eventRepo            interfaces.GamificationEventRepository
	configRepo           interfaces.CampaignGamificationConfigRepository
	streamerRewardRepo   interfaces.StreamerRewardRepository
	campaignRepo         interfaces.CampaignRepository
	streamerRepo         interfaces.StreamerRepository
	instanceRepo         interfaces.GamificationInstanceRepository
	contributionRepo     interfaces.GamificationContributionRepository
	preFlightReportRepo  interfaces.PreFlightReportRepository
	eventSubRepo         interfaces.EventSubSubscriptionRepository
	criticalityRuleRepo  interfaces.CriticalityRuleRepository
	itemCategoryRuleRepo interfaces.ItemCategoryRuleRepository
}

// UnitOfWorkFactory creates repository units of work sharing one pool
type UnitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a UnitOfWork whose events go through transactionalPublisher
func (f *UnitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.eventRepo = NewGamificationEventRepositoryScoped(tx)
	u.configRepo = NewCampaignGamificationConfigRepositoryScoped(tx)
	u.streamerRewardRepo = NewStreamerRewardRepositoryScoped(tx)
	u.campaignRepo = NewCampaignRepositoryScoped(tx)
	u.streamerRepo = NewStreamerRepositoryScoped(tx)
	u.instanceRepo = NewGamificationInstanceRepositoryScoped(tx)
	u.contributionRepo = NewGamificationContributionRepositoryScoped(tx)
	u.preFlightReportRepo = NewPreFlightReportRepositoryScoped(tx)
	u.eventSubRepo = NewEventSubSubscriptionRepositoryScoped(tx)
	u.criticalityRuleRepo = NewCriticalityRuleRepositoryScoped(tx)
	u.itemCategoryRuleRepo = NewItemCategoryRuleRepositoryScoped(tx)

	return nil
}

// Commit commits the transaction and flushes the events published during it
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			return fmt.Errorf("failed to flush events: %w", err)
		}
	}

	return nil
}

// Rollback rolls back the transaction and drops pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	u.tx = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

const notStarted = "unit of work not started - call Begin() first"

func (u *unitOfWork) EventRepository() interfaces.GamificationEventRepository {
	if u.eventRepo == nil {
		panic(notStarted)
	}
	return u.eventRepo
}

func (u *unitOfWork) ConfigRepository() interfaces.CampaignGamificationConfigRepository {
	if u.configRepo == nil {
		panic(notStarted)
	}
	return u.configRepo
}

func (u *unitOfWork) StreamerRewardRepository() interfaces.StreamerRewardRepository {
	if u.streamerRewardRepo == nil {
		panic(notStarted)
	}
	return u.streamerRewardRepo
}

func (u *unitOfWork) CampaignRepository() interfaces.CampaignRepository {
	if u.campaignRepo == nil {
		panic(notStarted)
	}
	return u.campaignRepo
}

func (u *unitOfWork) StreamerRepository() interfaces.StreamerRepository {
	if u.streamerRepo == nil {
		panic(notStarted)
	}
	return u.streamerRepo
}

func (u *unitOfWork) InstanceRepository() interfaces.GamificationInstanceRepository {
	if u.instanceRepo == nil {
		panic(notStarted)
	}
	return u.instanceRepo
}

func (u *unitOfWork) ContributionRepository() interfaces.GamificationContributionRepository {
	if u.contributionRepo == nil {
		panic(notStarted)
	}
	return u.contributionRepo
}

func (u *unitOfWork) PreFlightReportRepository() interfaces.PreFlightReportRepository {
	if u.preFlightReportRepo == nil {
		panic(notStarted)
	}
	return u.preFlightReportRepo
}

func (u *unitOfWork) EventSubRepository() interfaces.EventSubSubscriptionRepository {
	if u.eventSubRepo == nil {
		panic(notStarted)
	}
	return u.eventSubRepo
}

func (u *unitOfWork) CriticalityRuleRepository() interfaces.CriticalityRuleRepository {
	if u.criticalityRuleRepo == nil {
		panic(notStarted)
	}
	return u.criticalityRuleRepo
}

func (u *unitOfWork) ItemCategoryRuleRepository() interfaces.ItemCategoryRuleRepository {
	if u.itemCategoryRuleRepo == nil {
		panic(notStarted)
	}
	return u.itemCategoryRuleRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic(notStarted)
	}
	return u.transactionalPublisher
}
