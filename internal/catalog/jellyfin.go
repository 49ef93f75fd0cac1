package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultFoldersCacheTTL = 5 * time.Minute

// JellyfinClient queries a Jellyfin-compatible server's REST API.
type JellyfinClient struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu             sync.Mutex
	folders        []virtualFolder
	foldersFetched time.Time
	foldersTTL     time.Duration
}

// JellyfinOption configures a JellyfinClient.
type JellyfinOption func(*JellyfinClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) JellyfinOption {
	return func(c *JellyfinClient) {
		c.httpClient = hc
	}
}

// WithFoldersCacheTTL sets how long library folder options are cached.
func WithFoldersCacheTTL(ttl time.Duration) JellyfinOption {
	return func(c *JellyfinClient) {
		c.foldersTTL = ttl
	}
}

// NewJellyfinClient creates a catalog client for the given server.
func NewJellyfinClient(baseURL, token string, opts ...JellyfinOption) *JellyfinClient {
	c := &JellyfinClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		foldersTTL: defaultFoldersCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// itemDTO mirrors the subset of Jellyfin's BaseItemDto we consume.
type itemDTO struct {
	ID               string            `json:"Id"`
	Name             string            `json:"Name"`
	Type             string            `json:"Type"`
	LocationType     string            `json:"LocationType"`
	Path             string            `json:"Path"`
	Overview         string            `json:"Overview"`
	ProductionYear   *int              `json:"ProductionYear"`
	ProviderIDs      map[string]string `json:"ProviderIds"`
	SeriesName       string            `json:"SeriesName"`
	ParentIndexNum   *int              `json:"ParentIndexNumber"`
	IndexNum         *int              `json:"IndexNumber"`
	ImageTags        map[string]string `json:"ImageTags"`
	ArtistItems      []artistDTO       `json:"ArtistItems"`
	SeasonName       string            `json:"SeasonName"`
	SeriesPrimaryTag string            `json:"SeriesPrimaryImageTag"`
}

type artistDTO struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type itemsResponse struct {
	Items []itemDTO `json:"Items"`
}

type virtualFolder struct {
	Name           string   `json:"Name"`
	Locations      []string `json:"Locations"`
	LibraryOptions struct {
		EnableChapterImageExtraction bool `json:"EnableChapterImageExtraction"`
	} `json:"LibraryOptions"`
}

// typeToCategory maps Jellyfin item type names onto the closed category set.
var typeToCategory = map[string]Category{
	"Movie":      CategoryMovie,
	"Episode":    CategoryEpisode,
	"Series":     CategorySeries,
	"Season":     CategorySeason,
	"MusicAlbum": CategoryAlbum,
	"Audio":      CategorySong,
}

// categoryToType is the inverse mapping, used for IncludeItemTypes filters.
var categoryToType = map[Category]string{
	CategoryMovie:   "Movie",
	CategoryEpisode: "Episode",
	CategorySeries:  "Series",
	CategorySeason:  "Season",
	CategoryAlbum:   "MusicAlbum",
	CategorySong:    "Audio",
}

// GetItem fetches the current snapshot of an item by id.
func (c *JellyfinClient) GetItem(ctx context.Context, id string) (*ItemSnapshot, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("fields", "Overview,ProviderIds,Path")

	var resp itemsResponse
	if err := c.get(ctx, "/Items", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrNotFound
	}

	return c.toSnapshot(ctx, resp.Items[0]), nil
}

// VisibleViews lists the top-level views visible to a catalog user.
func (c *JellyfinClient) VisibleViews(ctx context.Context, userID string) ([]View, error) {
	var resp itemsResponse
	if err := c.get(ctx, "/Users/"+url.PathEscape(userID)+"/Views", nil, &resp); err != nil {
		return nil, err
	}

	views := make([]View, 0, len(resp.Items))
	for _, it := range resp.Items {
		views = append(views, View{ID: it.ID, Name: it.Name})
	}
	return views, nil
}

// ListItems recursively lists items of the given categories in a view.
func (c *JellyfinClient) ListItems(ctx context.Context, userID, viewID string, categories []Category, recursive bool) ([]ItemRef, error) {
	types := make([]string, 0, len(categories))
	for _, cat := range categories {
		if t, ok := categoryToType[cat]; ok {
			types = append(types, t)
		}
	}

	q := url.Values{}
	q.Set("parentId", viewID)
	q.Set("includeItemTypes", strings.Join(types, ","))
	if recursive {
		q.Set("recursive", "true")
	}

	var resp itemsResponse
	if err := c.get(ctx, "/Users/"+url.PathEscape(userID)+"/Items", q, &resp); err != nil {
		return nil, err
	}

	refs := make([]ItemRef, 0, len(resp.Items))
	for _, it := range resp.Items {
		refs = append(refs, ItemRef{ID: it.ID})
	}
	return refs, nil
}

func (c *JellyfinClient) toSnapshot(ctx context.Context, dto itemDTO) *ItemSnapshot {
	s := &ItemSnapshot{
		ID:            dto.ID,
		Name:          dto.Name,
		Category:      typeToCategory[dto.Type],
		Virtual:       dto.LocationType == "Virtual",
		Year:          dto.ProductionYear,
		Overview:      dto.Overview,
		ProviderIDs:   dto.ProviderIDs,
		SeriesName:    dto.SeriesName,
		SeasonNumber:  dto.ParentIndexNum,
		EpisodeNumber: dto.IndexNum,
	}

	switch s.Category {
	case CategorySeason:
		s.ParentName = dto.SeriesName
	case CategoryEpisode:
		s.ParentName = dto.SeasonName
	}

	if len(dto.ArtistItems) > 0 {
		s.Artists = c.artistsWithProviders(ctx, dto.ArtistItems)
	}

	// Images served by the catalog live behind its private address, so the
	// builder must not embed this path directly. Local makes the builder
	// apply the remote-access policy or hand the path to the relay.
	if _, ok := dto.ImageTags["Primary"]; ok {
		s.PrimaryImage = &Image{
			Path:  fmt.Sprintf("%s/Items/%s/Images/Primary", c.baseURL, dto.ID),
			Local: true,
		}
	}

	if dto.Path != "" {
		s.ChapterImageExtraction = c.libraryExtractsChapterImages(ctx, dto.Path)
	}

	return s
}

// artistsWithProviders resolves each artist's provider ids with a second
// item lookup; the listing embedded in the audio item carries names only.
// A lookup failure degrades to plain names.
func (c *JellyfinClient) artistsWithProviders(ctx context.Context, dtos []artistDTO) []Artist {
	artists := make([]Artist, 0, len(dtos))
	ids := make([]string, 0, len(dtos))
	for _, a := range dtos {
		artists = append(artists, Artist{Name: a.Name})
		ids = append(ids, a.ID)
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("fields", "ProviderIds")

	var resp itemsResponse
	if err := c.get(ctx, "/Items", q, &resp); err != nil {
		return artists
	}

	providersByID := make(map[string]map[string]string, len(resp.Items))
	for _, it := range resp.Items {
		providersByID[it.ID] = it.ProviderIDs
	}
	for i, a := range dtos {
		if ids := providersByID[a.ID]; len(ids) > 0 {
			artists[i].ProviderIDs = ids
		}
	}
	return artists
}

// libraryExtractsChapterImages checks the library options of the folder
// containing the given path. Folder options are cached; a lookup failure is
// treated as "no extraction" rather than an error.
func (c *JellyfinClient) libraryExtractsChapterImages(ctx context.Context, itemPath string) bool {
	folders, err := c.virtualFolders(ctx)
	if err != nil {
		return false
	}

	for _, f := range folders {
		for _, loc := range f.Locations {
			if strings.HasPrefix(itemPath, loc) {
				return f.LibraryOptions.EnableChapterImageExtraction
			}
		}
	}
	return false
}

func (c *JellyfinClient) virtualFolders(ctx context.Context) ([]virtualFolder, error) {
	c.mu.Lock()
	if c.folders != nil && time.Since(c.foldersFetched) < c.foldersTTL {
		folders := c.folders
		c.mu.Unlock()
		return folders, nil
	}
	c.mu.Unlock()

	var folders []virtualFolder
	if err := c.get(ctx, "/Library/VirtualFolders", nil, &folders); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.folders = folders
	c.foldersFetched = time.Now()
	c.mu.Unlock()

	return folders, nil
}

func (c *JellyfinClient) get(ctx context.Context, path string, query url.Values, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("MediaBrowser Token=%q", c.token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog API error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ Client = (*JellyfinClient)(nil)
