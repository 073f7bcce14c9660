package model

import "github.com/google/uuid"

// Account identifies an actor. Ephemeral ("guest") accounts are session-only;
// their workspaces never reach durable storage.
type Account struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact"`
	// Style is an opaque presentation hint chosen at registration.
	Style     string `json:"style,omitempty"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

// NewID returns a fresh UUIDv4 string. It is the default ID-generation
// capability injected into the engine and auth service.
func NewID() string {
	return uuid.NewString()
}
