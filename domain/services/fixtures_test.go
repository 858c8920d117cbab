package services

import (
	"context"
	"sync/atomic"
	"time"

	"tumulte/domain/actions"
	"tumulte/domain/entities"
	"tumulte/domain/testhelpers"

	"github.com/google/uuid"
)

var (
	testCampaignID = uuid.MustParse("00000000-0000-0000-0000-00000000c001")
	testEventID    = uuid.MustParse("00000000-0000-0000-0000-00000000e001")
	testConfigID   = uuid.MustParse("00000000-0000-0000-0000-00000000f001")
	testOwnerID    = uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	testMemberID   = uuid.MustParse("00000000-0000-0000-0000-00000000a002")
)

const (
	testOwnerTwitchID  = "tw-owner"
	testMemberTwitchID = "tw-member"
	testConnectionID   = "vtt-conn-1"
)

func newTestEvent(minimumObjective int) *entities.GamificationEvent {
	return &entities.GamificationEvent{
		ID:                      testEventID,
		Slug:                    "critical-chaos",
		Name:                    "Critical Chaos",
		Description:             "Invert the last critical roll",
		Type:                    entities.EventTypeGroup,
		TriggerType:             entities.TriggerTypeManual,
		TriggerConfig:           &entities.ManualTriggerConfig{},
		ActionType:              entities.ActionTypeChatMessage,
		ActionConfig:            &entities.ChatMessageActionConfig{ChatMessage: &entities.ChatMessageConfig{Content: "boom"}},
		DefaultCost:             100,
		DefaultMinimumObjective: minimumObjective,
		DefaultDurationSeconds:  300,
		CooldownType:            entities.CooldownTypeNone,
	}
}

func newTestConfig() *entities.CampaignGamificationConfig {
	return &entities.CampaignGamificationConfig{
		ID:         testConfigID,
		CampaignID: testCampaignID,
		EventID:    testEventID,
		IsEnabled:  true,
	}
}

func newTestCampaign() *entities.Campaign {
	return &entities.Campaign{
		ID:              testCampaignID,
		Name:            "Curse of Strahd",
		OwnerStreamerID: testOwnerID,
		VTTConnectionID: testConnectionID,
	}
}

func newTestMembers() []*entities.Streamer {
	return []*entities.Streamer{
		{ID: testOwnerID, TwitchUserID: testOwnerTwitchID, TwitchLogin: "owner", IsActive: true},
		{ID: testMemberID, TwitchUserID: testMemberTwitchID, TwitchLogin: "member", IsActive: true},
	}
}

func newOpenInstance(objective int, expiresAt time.Time) *entities.GamificationInstance {
	return &entities.GamificationInstance{
		ID:              uuid.New(),
		CampaignID:      testCampaignID,
		EventID:         testEventID,
		Type:            entities.EventTypeGroup,
		Status:          entities.InstanceStatusActive,
		ObjectiveTarget: objective,
		StartsAt:        expiresAt.Add(-5 * time.Minute),
		ExpiresAt:       expiresAt,
		ExecutionStatus: entities.ExecutionStatusPending,
	}
}

func contribution(redemptionID string) ContributionInput {
	return ContributionInput{
		CampaignID:         testCampaignID,
		TwitchUserID:       "viewer-" + redemptionID,
		TwitchUsername:     "viewer",
		Amount:             1,
		TwitchRedemptionID: redemptionID,
	}
}

// countingAction counts executions of the chat_message action type
type countingAction struct {
	calls atomic.Int32
	delay time.Duration
}

func (a *countingAction) Type() entities.ActionType { return entities.ActionTypeChatMessage }

func (a *countingAction) Requires() []actions.Dependency { return nil }

func (a *countingAction) Execute(ctx context.Context, _ entities.ActionConfig, _ *entities.GamificationInstance, _ string) entities.ResultData {
	a.calls.Add(1)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	return entities.ResultData{Success: true, Message: "done"}
}

func newManager(factory *testhelpers.FakeUnitOfWorkFactory) *InstanceManager {
	return NewInstanceManager(factory, NewViewerObjectiveCalculator(), nil, nil, nil)
}
