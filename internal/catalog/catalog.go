// Package catalog defines the media catalog collaborator: item snapshots,
// library views, and the client interface used to query them.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an item doesn't exist in the catalog.
var ErrNotFound = errors.New("item not found")

// Category is the closed set of announceable media categories.
type Category string

const (
	CategoryMovie   Category = "movie"
	CategoryEpisode Category = "episode"
	CategorySeries  Category = "series"
	CategorySeason  Category = "season"
	CategoryAlbum   Category = "album"
	CategorySong    Category = "song"
)

// AllCategories lists every announceable category.
var AllCategories = []Category{
	CategoryMovie,
	CategoryEpisode,
	CategorySeries,
	CategorySeason,
	CategoryAlbum,
	CategorySong,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMovie, CategoryEpisode, CategorySeries, CategorySeason, CategoryAlbum, CategorySong:
		return true
	}
	return false
}

// Artist is a music artist attached to an audio item.
type Artist struct {
	Name        string
	ProviderIDs map[string]string
}

// Image describes an item's primary image. Local reports whether Path is
// only reachable from the server's own network (a filesystem path or the
// catalog's private address) as opposed to a publicly hosted URL.
type Image struct {
	Path  string
	Local bool
}

// ItemSnapshot is the catalog's view of one library item at query time.
// Provider IDs arrive asynchronously after item creation, so early snapshots
// of the same item may have an empty ProviderIDs map.
type ItemSnapshot struct {
	ID          string
	Name        string
	Category    Category
	Virtual     bool
	Year        *int
	Overview    string
	ProviderIDs map[string]string

	// Hierarchy, populated for episodes and seasons.
	SeriesName    string
	ParentName    string
	SeasonNumber  *int
	EpisodeNumber *int

	// Artists, populated for audio items.
	Artists []Artist

	PrimaryImage *Image

	// ChapterImageExtraction is true when the item's library extracts
	// chapter images synchronously during scans. Metadata then appears
	// only after extraction finishes, which can take a long time.
	ChapterImageExtraction bool
}

// HasProviderIDs reports whether any external provider id has been resolved.
func (s *ItemSnapshot) HasProviderIDs() bool {
	return len(s.ProviderIDs) > 0
}

// View is a top-level library view visible to a catalog user.
type View struct {
	ID   string
	Name string
}

// ItemRef is a lightweight reference to an item inside a view.
type ItemRef struct {
	ID string
}

// Client is the catalog query interface.
type Client interface {
	// GetItem fetches the current snapshot of an item.
	// Returns ErrNotFound if the item doesn't exist (or was deleted).
	GetItem(ctx context.Context, id string) (*ItemSnapshot, error)

	// VisibleViews lists the top-level views visible to a catalog user.
	VisibleViews(ctx context.Context, userID string) ([]View, error)

	// ListItems recursively lists items of the given categories in a view.
	ListItems(ctx context.Context, userID, viewID string, categories []Category, recursive bool) ([]ItemRef, error)
}
