package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/notifyrr/notifyrr/internal/catalog"
	"github.com/notifyrr/notifyrr/internal/discord"
)

const defaultServerName = "Jellyfin Server"

// ImageUploader uploads a local image file and returns its hosted URL.
// Best-effort: failures degrade the message (no thumbnail), nothing more.
type ImageUploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Builder turns a ready item plus subscriber configuration into an outbound
// webhook message.
type Builder struct {
	uploader ImageUploader
	logger   *slog.Logger
}

// NewBuilder creates a payload builder. The uploader may be nil, in which
// case local-only images are skipped.
func NewBuilder(uploader ImageUploader, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		uploader: uploader,
		logger:   logger.With("component", "builder"),
	}
}

// MediaAdded builds the announcement for a ready item. When fallback is true
// the item was promoted on retry exhaustion and its provider ids are not yet
// trustworthy, so external-link fields are suppressed.
func (b *Builder) MediaAdded(ctx context.Context, item *catalog.ItemSnapshot, sub Subscriber, srv ServerInfo, fallback bool) discord.Message {
	serverName := defaultServerName
	if sub.ServerNameOverride {
		serverName = srv.Name
	}

	embed := discord.Embed{
		Color:     b.parseColor(sub),
		Title:     fmt.Sprintf("%s has been added to %s", itemTitle(item), strings.TrimSpace(serverName)),
		Footer:    &discord.Footer{Text: "From " + serverName, IconURL: sub.AvatarURL},
		Timestamp: time.Now(),
	}

	if item.Category == catalog.CategorySong {
		embed.Description = b.artistDescription(item, sub, srv)
	} else if item.Overview != "" {
		embed.Description = item.Overview
	}

	linkable := srv.RemoteAccess && !sub.ExcludeExternalLinks
	if linkable {
		embed.URL = deepLink(sub, srv, item.ID)
	}

	if url := b.thumbnailURL(ctx, item, sub, linkable); url != "" {
		embed.Thumbnail = &discord.Thumbnail{URL: url}
	}

	if !fallback {
		embed.Fields = providerFields(item)
	}

	return discord.Message{
		AvatarURL: sub.AvatarURL,
		Username:  sub.Username,
		Content:   sub.Mention.ContentPrefix(),
		Embeds:    []discord.Embed{embed},
	}
}

// Test builds the fixed-content message for the direct test-notification path.
func (b *Builder) Test(sub Subscriber, srv ServerInfo) discord.Message {
	serverName := defaultServerName
	if sub.ServerNameOverride {
		serverName = srv.Name
	}

	return discord.Message{
		AvatarURL: sub.AvatarURL,
		Username:  sub.Username,
		Content:   sub.Mention.ContentPrefix(),
		Embeds: []discord.Embed{{
			Color:       b.parseColor(sub),
			Title:       "It worked!",
			Description: "This is a test notification from Jellyfin",
			Footer:      &discord.Footer{Text: "From " + serverName, IconURL: sub.AvatarURL},
			Timestamp:   time.Now(),
		}},
	}
}

func (b *Builder) parseColor(sub Subscriber) int {
	color, err := discord.ParseColor(sub.EmbedColor)
	if err != nil {
		b.logger.Warn("invalid embed color, using default", "subscriber", sub.Name, "color", sub.EmbedColor)
		return 0
	}
	return color
}

// itemTitle renders the category-specific display title.
func itemTitle(item *catalog.ItemSnapshot) string {
	switch item.Category {
	case catalog.CategoryEpisode:
		var num strings.Builder
		if item.SeasonNumber != nil {
			fmt.Fprintf(&num, "S%02d", *item.SeasonNumber)
		}
		if item.EpisodeNumber != nil {
			fmt.Fprintf(&num, "E%02d", *item.EpisodeNumber)
		}
		parts := []string{item.SeriesName}
		if num.Len() > 0 {
			parts = append(parts, num.String())
		}
		parts = append(parts, item.Name)
		return strings.Join(parts, " ")
	case catalog.CategorySeason:
		return fmt.Sprintf("%s %s", item.ParentName, item.Name)
	default:
		if item.Year != nil {
			return fmt.Sprintf("%s (%d)", item.Name, *item.Year)
		}
		return item.Name
	}
}

// artistDescription formats an audio item's artists, each hyperlinked to its
// first external provider when one exists.
func (b *Builder) artistDescription(item *catalog.ItemSnapshot, sub Subscriber, srv ServerInfo) string {
	if len(item.Artists) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(item.Artists))
	for _, artist := range item.Artists {
		s := artist.Name

		if len(artist.ProviderIDs) > 0 {
			key, value := firstProvider(artist.ProviderIDs)
			providerURL := fmt.Sprintf("https://theaudiodb.com/artist/%s", value)
			if key == "MusicBrainzArtist" {
				providerURL = fmt.Sprintf("https://musicbrainz.org/artist/%s", value)
			}
			s += fmt.Sprintf(" [(Music Brainz)](%s)", providerURL)
		}

		if srv.RemoteAccess && !sub.ExcludeExternalLinks {
			s += fmt.Sprintf(" [(Jellyfin)](%s)", deepLink(sub, srv, item.ID))
		}

		formatted = append(formatted, s)
	}

	return "By " + strings.Join(formatted, ", ")
}

// firstProvider picks a deterministic first entry from a provider-id map.
func firstProvider(ids map[string]string) (string, string) {
	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0], ids[keys[0]]
}

func deepLink(sub Subscriber, srv ServerInfo, itemID string) string {
	return fmt.Sprintf("%s/web/index.html#!/item?id=%s&serverId=%s",
		strings.TrimRight(sub.ServerURL, "/"), itemID, srv.InstanceID)
}

// thumbnailURL resolves the embed thumbnail. Preference order: the image's
// own remote URL, a server-relative URL when links are allowed, a relay
// upload of the local file. Upload failure just drops the thumbnail.
func (b *Builder) thumbnailURL(ctx context.Context, item *catalog.ItemSnapshot, sub Subscriber, linkable bool) string {
	img := item.PrimaryImage
	if img == nil {
		return ""
	}

	if !img.Local {
		return img.Path
	}
	if linkable {
		return fmt.Sprintf("%s/Items/%s/Images/Primary", strings.TrimRight(sub.ServerURL, "/"), item.ID)
	}
	if b.uploader == nil {
		return ""
	}

	url, err := b.uploader.Upload(ctx, img.Path)
	if err != nil {
		b.logger.Error("failed to upload image to relay", "item_id", item.ID, "error", err)
		return ""
	}
	return url
}

// providerFields renders one external-link field per recognized provider id.
// Unrecognized keys are skipped. Keys are matched case-insensitively and
// emitted in sorted order for stable output.
func providerFields(item *catalog.ItemSnapshot) []discord.Field {
	keys := make([]string, 0, len(item.ProviderIDs))
	for k := range item.ProviderIDs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []discord.Field
	for _, key := range keys {
		value := item.ProviderIDs[key]

		var link string
		switch strings.ToLower(key) {
		case "imdb":
			link = fmt.Sprintf("[IMDb](https://www.imdb.com/title/%s/)", value)
		case "tmdb":
			kind := "tv"
			if item.Category == catalog.CategoryMovie {
				kind = "movie"
			}
			link = fmt.Sprintf("[TMDb](https://www.themoviedb.org/%s/%s)", kind, value)
		case "musicbrainztrack":
			link = fmt.Sprintf("[MusicBrainz Track](https://musicbrainz.org/track/%s)", value)
		case "musicbrainzalbum":
			link = fmt.Sprintf("[MusicBrainz Album](https://musicbrainz.org/release/%s)", value)
		case "theaudiodbalbum":
			link = fmt.Sprintf("[TADb Album](https://theaudiodb.com/album/%s)", value)
		default:
			continue
		}

		fields = append(fields, discord.Field{Name: "External Links", Value: link})
	}
	return fields
}
