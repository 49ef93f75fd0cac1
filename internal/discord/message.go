// Package discord implements the outbound webhook message model and client.
package discord

import (
	"fmt"
	"strconv"
	"time"
)

// Message is the webhook payload posted to Discord.
type Message struct {
	AvatarURL string  `json:"avatarUrl,omitempty"`
	Username  string  `json:"username,omitempty"`
	Content   string  `json:"content"`
	Embeds    []Embed `json:"embeds"`
}

// Embed is a single rich embed inside a message.
type Embed struct {
	Color       int        `json:"color"`
	Title       string     `json:"title,omitempty"`
	URL         string     `json:"url,omitempty"`
	Description string     `json:"description,omitempty"`
	Thumbnail   *Thumbnail `json:"thumbnail,omitempty"`
	Fields      []Field    `json:"fields,omitempty"`
	Footer      *Footer    `json:"footer,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Field is a name/value pair rendered inside an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Footer is the embed footer.
type Footer struct {
	Text    string `json:"text"`
	IconURL string `json:"iconUrl,omitempty"`
}

// Thumbnail is the embed thumbnail image.
type Thumbnail struct {
	URL string `json:"url"`
}

// ParseColor converts a "#RRGGBB" string to its 24-bit integer value.
func ParseColor(hex string) (int, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, fmt.Errorf("invalid color code %q: want #RRGGBB", hex)
	}
	v, err := strconv.ParseInt(hex[1:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color code %q: %w", hex, err)
	}
	return int(v), nil
}
