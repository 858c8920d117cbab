package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tumulte/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSubjectMapper_RoundTrip(t *testing.T) {
	mapper := NewEventSubjectMapper()

	subject := mapper.MapEventToSubject(events.InstanceArmedEvent{})
	assert.Equal(t, "gamification.instance.armed", subject)
	assert.Equal(t, events.EventTypeInstanceArmed, mapper.MapSubjectToEventType(subject))
}

func TestEventSubjectMapper_AllSubjectsCoverEveryEvent(t *testing.T) {
	mapper := NewEventSubjectMapper()
	subjects := mapper.GetAllSubjects()

	for _, subject := range eventSubjects {
		assert.Contains(t, subjects, subject)
	}
	assert.Contains(t, subjects, "gamification.unknown.>")
}

type capturePublisher struct {
	subject string
	data    []byte
	err     error
}

func (c *capturePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

type publishCounter struct{ counts map[string]int }

func (p *publishCounter) RecordNATSMessagePublished(eventType string) {
	p.counts[eventType]++
}

func TestNATSEventPublisher_WrapsEventInEnvelope(t *testing.T) {
	client := &capturePublisher{}
	counter := &publishCounter{counts: map[string]int{}}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), counter)

	event := events.InstanceCreatedEvent{InstanceID: uuid.New(), CampaignID: uuid.New(), Objective: 7}
	require.NoError(t, publisher.Publish(event))

	assert.Equal(t, "gamification.instance.created", client.subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(client.data, &envelope))
	assert.Equal(t, "instance_created", envelope.EventType)
	assert.Equal(t, "tumulte", envelope.SourceService)
	assert.NotEmpty(t, envelope.EventID)

	var payload events.InstanceCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)

	assert.Equal(t, 1, counter.counts["instance_created"])
}

func TestNATSEventPublisher_NoStreamIsNotAnError(t *testing.T) {
	client := &capturePublisher{err: errors.New("nats: no response from stream")}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil)

	assert.NoError(t, publisher.Publish(events.InstanceExpiredEvent{}))
}

func TestNATSEventPublisher_PropagatesPublishError(t *testing.T) {
	client := &capturePublisher{err: errors.New("connection closed")}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil)

	assert.Error(t, publisher.Publish(events.InstanceExpiredEvent{}))
}

func TestMessageConsumer_DispatchRoutesBySubject(t *testing.T) {
	consumer := NewMessageConsumer(NewNATSClient("nats://localhost:4222"), nil)

	var got []byte
	consumer.RegisterHandler(SubjectDiceRolled, func(ctx context.Context, data []byte) error {
		got = data
		return nil
	})

	require.NoError(t, consumer.dispatch(context.Background(), SubjectDiceRolled, []byte(`{"a":1}`)))
	assert.Equal(t, []byte(`{"a":1}`), got)

	assert.Error(t, consumer.dispatch(context.Background(), SubjectRedemptionAdded, nil))
}

func TestIngressSubjects_IncludeCommandsAndStayDisjoint(t *testing.T) {
	ingress := IngressSubjects()
	for _, subject := range []string{
		SubjectTriggerManual,
		SubjectInstanceCancel,
		SubjectRewardEnabled,
		SubjectRewardDisabled,
		SubjectRewardCostUpdated,
	} {
		assert.Contains(t, ingress, subject)
	}

	outbound := NewEventSubjectMapper().GetAllSubjects()
	for _, subject := range ingress {
		assert.NotContains(t, outbound, subject)
	}
}
