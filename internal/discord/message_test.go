package discord

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		hex     string
		want    int
		wantErr bool
	}{
		{"#1A2B3C", 1715004, false},
		{"#000000", 0, false},
		{"#FFFFFF", 16777215, false},
		{"#ffffff", 16777215, false},
		{"1A2B3C", 0, true},
		{"#1A2B", 0, true},
		{"#GGGGGG", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.hex)
		if tt.wantErr {
			assert.Error(t, err, tt.hex)
			continue
		}
		require.NoError(t, err, tt.hex)
		assert.Equal(t, tt.want, got, tt.hex)
	}
}

func TestMessage_JSONShape(t *testing.T) {
	msg := Message{
		AvatarURL: "https://example.com/avatar.png",
		Username:  "Notifier",
		Content:   "@everyone",
		Embeds: []Embed{{
			Color: 1715004,
			Title: "Arrival (2016)",
			Fields: []Field{
				{Name: "External Links", Value: "[TMDb](https://www.themoviedb.org/movie/329865)"},
			},
			Footer:    &Footer{Text: "From Jellyfin Server"},
			Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "https://example.com/avatar.png", decoded["avatarUrl"])
	assert.Equal(t, "@everyone", decoded["content"])

	embeds := decoded["embeds"].([]any)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]any)
	assert.Equal(t, float64(1715004), embed["color"])
	assert.Equal(t, "Arrival (2016)", embed["title"])
	assert.NotContains(t, embed, "url")
	assert.NotContains(t, embed, "thumbnail")
	assert.Contains(t, embed["footer"].(map[string]any), "text")
}
