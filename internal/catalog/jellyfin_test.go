package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJellyfinClient_GetItem(t *testing.T) {
	year := 2016
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Items":
			assert.Equal(t, "7", r.URL.Query().Get("ids"))
			_ = json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{{
				ID:             "7",
				Name:           "Arrival",
				Type:           "Movie",
				Overview:       "A linguist is recruited by the military.",
				ProductionYear: &year,
				ProviderIDs:    map[string]string{"Tmdb": "329865"},
				ImageTags:      map[string]string{"Primary": "abc123"},
			}}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewJellyfinClient(srv.URL, "token")
	item, err := client.GetItem(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, "Arrival", item.Name)
	assert.Equal(t, CategoryMovie, item.Category)
	assert.Equal(t, 2016, *item.Year)
	assert.Equal(t, map[string]string{"Tmdb": "329865"}, item.ProviderIDs)
	require.NotNil(t, item.PrimaryImage)
	assert.Equal(t, srv.URL+"/Items/7/Images/Primary", item.PrimaryImage.Path)
	assert.True(t, item.PrimaryImage.Local, "catalog-served images are server-held, not public")
	assert.False(t, item.Virtual)
}

func TestJellyfinClient_GetItem_AudioArtists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("ids") {
		case "s1":
			_ = json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{{
				ID:   "s1",
				Name: "Glory Box",
				Type: "Audio",
				ArtistItems: []artistDTO{
					{ID: "ar1", Name: "Portishead"},
					{ID: "ar2", Name: "Unknown"},
				},
			}}})
		case "ar1,ar2":
			assert.Equal(t, "ProviderIds", r.URL.Query().Get("fields"))
			_ = json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{
				{ID: "ar1", Name: "Portishead", ProviderIDs: map[string]string{"MusicBrainzArtist": "8f6bd1e4"}},
				{ID: "ar2", Name: "Unknown"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewJellyfinClient(srv.URL, "token")
	item, err := client.GetItem(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, item.Artists, 2)
	assert.Equal(t, "Portishead", item.Artists[0].Name)
	assert.Equal(t, map[string]string{"MusicBrainzArtist": "8f6bd1e4"}, item.Artists[0].ProviderIDs)
	assert.Empty(t, item.Artists[1].ProviderIDs)
}

func TestJellyfinClient_GetItem_ArtistLookupFailureKeepsNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") == "s1" {
			_ = json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{{
				ID:          "s1",
				Type:        "Audio",
				ArtistItems: []artistDTO{{ID: "ar1", Name: "Portishead"}},
			}}})
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewJellyfinClient(srv.URL, "token")
	item, err := client.GetItem(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, item.Artists, 1)
	assert.Equal(t, "Portishead", item.Artists[0].Name)
	assert.Empty(t, item.Artists[0].ProviderIDs)
}

func TestJellyfinClient_GetItem_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(itemsResponse{})
	}))
	defer srv.Close()

	client := NewJellyfinClient(srv.URL, "token")
	_, err := client.GetItem(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJellyfinClient_GetItem_Episode(t *testing.T) {
	season, episode := 2, 5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{{
			ID:             "ep1",
			Name:           "The Answer",
			Type:           "Episode",
			SeriesName:     "Severance",
			SeasonName:     "Season 2",
			ParentIndexNum: &season,
			IndexNum:       &episode,
			LocationType:   "Virtual",
		}}})
	}))
	defer srv.Close()

	client := NewJellyfinClient(srv.URL, "token")
	item, err := client.GetItem(context.Background(), "ep1")
	require.NoError(t, err)

	assert.Equal(t, CategoryEpisode, item.Category)
	assert.Equal(t, "Severance", item.SeriesName)
	assert.Equal(t, 2, *item.SeasonNumber)
	assert.Equal(t, 5, *item.EpisodeNumber)
	assert.True(t, item.Virtual)
}

func TestJellyfinClient_VisibleViews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Users/u1/Views", r.URL.Path)
		_ = json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{
			{ID: "v1", Name: "Movies"},
			{ID: "v2", Name: "Shows"},
		}})
	}))
	defer srv.Close()

	client := NewJellyfinClient(srv.URL, "token")
	views, err := client.VisibleViews(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, View{ID: "v1", Name: "Movies"}, views[0])
}

func TestJellyfinClient_ListItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Users/u1/Items", r.URL.Path)
		assert.Equal(t, "v1", r.URL.Query().Get("parentId"))
		assert.Equal(t, "Movie,Episode", r.URL.Query().Get("includeItemTypes"))
		assert.Equal(t, "true", r.URL.Query().Get("recursive"))
		_ = json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{{ID: "7"}}})
	}))
	defer srv.Close()

	client := NewJellyfinClient(srv.URL, "token")
	refs, err := client.ListItems(context.Background(), "u1", "v1", []Category{CategoryMovie, CategoryEpisode}, true)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "7", refs[0].ID)
}

func TestJellyfinClient_ChapterImageExtraction(t *testing.T) {
	folderCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Library/VirtualFolders":
			folderCalls++
			_, _ = w.Write([]byte(`[{"Name":"Movies","Locations":["/media/movies"],"LibraryOptions":{"EnableChapterImageExtraction":true}}]`))
		case "/Items":
			_ = json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{{
				ID:   "7",
				Name: "Arrival",
				Type: "Movie",
				Path: "/media/movies/Arrival (2016)/arrival.mkv",
			}}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewJellyfinClient(srv.URL, "token")

	item, err := client.GetItem(context.Background(), "7")
	require.NoError(t, err)
	assert.True(t, item.ChapterImageExtraction)

	// Second lookup hits the folder cache.
	_, err = client.GetItem(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, 1, folderCalls)
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range AllCategories {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Category("book").Valid())
	assert.False(t, Category("").Valid())
}
