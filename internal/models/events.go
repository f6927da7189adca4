package models

import (
	"time"
)

type EventType string

const (
	EventTypeSettingsCreated EventType = "settings.created"
	EventTypeSettingsUpdated EventType = "settings.updated"
	EventTypeSettingsReset   EventType = "settings.reset"
	EventTypeSettingsDeleted EventType = "settings.deleted"

	EventTypeUserRegistered EventType = "user.registered"
	EventTypeUserDeleted    EventType = "user.deleted"
)

type SettingsEvent struct {
	EventType     EventType      `json:"eventType"`
	UserID        string         `json:"userId"`
	Timestamp     time.Time      `json:"timestamp"`
	ChangedFields []string       `json:"changedFields,omitempty"`
	OldValues     map[string]any `json:"oldValues,omitempty"`
	NewValues     map[string]any `json:"newValues,omitempty"`
}

// BaseEvent is the envelope used by the auth service.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

type UserRegisterEvent struct {
	BaseEvent
	UserID      string            `json:"user_id"`
	Username    string            `json:"username"`
	Email       string            `json:"email"`
	ProfileData map[string]string `json:"profile_data"`
}

type UserDeletedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
}
