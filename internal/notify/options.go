// Package notify implements the media-added notification pipeline: per-item
// eligibility filtering, retry-tracked readiness polling, payload building,
// and a rate-limited outbound send queue.
package notify

import (
	"github.com/notifyrr/notifyrr/internal/catalog"
)

// MentionType selects the content prefix of an outbound message.
type MentionType string

const (
	MentionEveryone MentionType = "everyone"
	MentionHere     MentionType = "here"
	MentionNone     MentionType = "none"
)

// ContentPrefix returns the literal message content for the mention type.
func (m MentionType) ContentPrefix() string {
	switch m {
	case MentionEveryone:
		return "@everyone"
	case MentionHere:
		return "@here"
	default:
		return ""
	}
}

// Subscriber is one webhook destination's immutable configuration snapshot.
// Owned by the configuration store; the pipeline only reads it.
type Subscriber struct {
	// Name identifies the subscriber in the API, CLI, and logs.
	Name string

	// UserID is the catalog user whose library visibility applies.
	UserID string

	Enabled       bool
	AnnounceOnAdd bool

	WebhookURL string

	AvatarURL            string
	Username             string
	EmbedColor           string // "#RRGGBB"
	Mention              MentionType
	ServerNameOverride   bool
	ServerURL            string
	ExcludeExternalLinks bool

	// Categories maps each media category to whether it is announced.
	Categories map[catalog.Category]bool
}

// WantsCategory reports whether the subscriber announces the given category.
func (s Subscriber) WantsCategory(c catalog.Category) bool {
	return s.Categories[c]
}

// ServerInfo is the server context read from the configuration store.
type ServerInfo struct {
	Name         string
	RemoteAccess bool
	InstanceID   string
}

// OptionsSource supplies the current configuration. It is consulted on every
// use rather than cached, so edits take effect on the next tick.
type OptionsSource interface {
	Subscribers() []Subscriber
	Server() ServerInfo
}
