package event

import (
	"encoding/json"
	"testing"
	"time"

	"settings-service/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublishing(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evt := &models.SettingsEvent{
		EventType:     models.EventTypeSettingsUpdated,
		UserID:        "u-1",
		Timestamp:     ts,
		ChangedFields: []string{"preferences.zenMode", "fontSize"},
		OldValues:     map[string]any{"fontSize": "15px"},
		NewValues:     map[string]any{"fontSize": "16px"},
	}

	msg, err := newPublishing(evt)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "settings.updated", msg.Type)
	assert.Equal(t, ts, msg.Timestamp)
	assert.NotEmpty(t, msg.MessageId)
	assert.Equal(t, "u-1", msg.Headers["user_id"])
	assert.Equal(t, "settings.updated", msg.Headers["event_type"])
	assert.Equal(t, "preferences.zenMode,fontSize", msg.Headers["changed_fields"])
	assert.NoError(t, msg.Headers.Validate())

	var decoded models.SettingsEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, evt.ChangedFields, decoded.ChangedFields)
	assert.Equal(t, "16px", decoded.NewValues["fontSize"])
}

func TestNewPublishingWithoutChanges(t *testing.T) {
	msg, err := newPublishing(&models.SettingsEvent{
		EventType: models.EventTypeSettingsDeleted,
		UserID:    "u-1",
	})
	require.NoError(t, err)

	assert.NotContains(t, msg.Headers, "changed_fields")
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "settings.deleted", routingKey(&models.SettingsEvent{EventType: models.EventTypeSettingsDeleted}))
}

func TestDisabledPublisherDropsEvents(t *testing.T) {
	p, err := NewEventPublisher("", nil)
	require.NoError(t, err)

	assert.NoError(t, p.PublishSettingsEvent(&models.SettingsEvent{
		EventType: models.EventTypeSettingsCreated,
		UserID:    "u-1",
	}))
	assert.NoError(t, p.Close())
}

func TestMockPublisherRecordsEvents(t *testing.T) {
	m := NewMockPublisher()
	require.NoError(t, m.PublishSettingsEvent(&models.SettingsEvent{EventType: models.EventTypeSettingsReset, UserID: "u-1"}))

	events := m.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeSettingsReset, events[0].EventType)

	m.ClearEvents()
	assert.Empty(t, m.GetEvents())
}
