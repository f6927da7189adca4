package models

import (
	"settings-service/internal/settings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Metadata struct {
	CreatedAt int `json:"createdAt" bson:"createdAt"`
	UpdatedAt int `json:"updatedAt" bson:"updatedAt"`
	// Version is bumped on every update. Documents written before it existed
	// decode as zero.
	Version int64 `json:"version" bson:"version"`
}

// SettingsDocument is the stored settings of one user.
type SettingsDocument struct {
	ID       bson.ObjectID         `json:"id,omitempty" bson:"_id,omitempty"`
	UserID   string                `json:"userId" bson:"userId"`
	Settings settings.UserSettings `json:"settings" bson:"settings"`
	Metadata Metadata              `json:"metadata" bson:"metadata"`
}

// Clone returns a copy whose settings share no memory with d.
func (d *SettingsDocument) Clone() *SettingsDocument {
	out := *d
	out.Settings = d.Settings.Clone()
	return &out
}
