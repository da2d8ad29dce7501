package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"critterdex/internal/common"
)

var testCreatures = []Creature{
	{ID: 1, Name: "emberling", Height: 6, Weight: 85, Categories: []string{"fire"}},
	{ID: 2, Name: "tidepup", Height: 5, Weight: 90, Categories: []string{"water"}},
	{ID: 3, Name: "embermaw", Height: 17, Weight: 905, Categories: []string{"fire", "flying"}},
	{ID: 4, Name: "leafkin", Height: 7, Weight: 69, Categories: []string{"grass"}},
}

// newCatalogServer serves a minimal creature API over the fixture data.
func newCatalogServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/creatures/", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		ref := strings.TrimPrefix(r.URL.Path, "/creatures/")
		for _, creature := range testCreatures {
			if creature.Name == ref || strconv.Itoa(creature.ID) == ref {
				_ = json.NewEncoder(w).Encode(creature)
				return
			}
		}
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/creatures", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		resp := listResponse{Count: len(testCreatures)}
		for i := offset; i < len(testCreatures) && i < offset+limit; i++ {
			resp.Results = append(resp.Results, NamedRef{Name: testCreatures[i].Name})
		}
		if offset+limit < len(testCreatures) {
			next := fmt.Sprintf("/creatures?offset=%d&limit=%d", offset+limit, limit)
			resp.Next = &next
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/categories/", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		name := strings.TrimPrefix(r.URL.Path, "/categories/")
		resp := categoryResponse{Name: name}
		for _, creature := range testCreatures {
			for _, cat := range creature.Categories {
				if cat == name {
					resp.Creatures = append(resp.Creatures, NamedRef{Name: creature.Name})
				}
			}
		}
		if len(resp.Creatures) == 0 {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestGetByID(t *testing.T) {
	srv, _ := newCatalogServer(t)
	c := NewClient(srv.URL, Options{})
	ctx := context.Background()

	creature, err := c.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "emberling", creature.Name)

	_, err = c.GetByID(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = c.GetByID(ctx, 0)
	assert.ErrorContains(t, err, "positive integer")
}

func TestGetByName_NormalizesInput(t *testing.T) {
	srv, _ := newCatalogServer(t)
	c := NewClient(srv.URL, Options{})
	ctx := context.Background()

	creature, err := c.GetByName(ctx, "  Emberling ")
	require.NoError(t, err)
	assert.Equal(t, 1, creature.ID)

	_, err = c.GetByName(ctx, "   ")
	assert.ErrorContains(t, err, "non-empty")
}

func TestList_ResolvesFullRecords(t *testing.T) {
	srv, _ := newCatalogServer(t)
	c := NewClient(srv.URL, Options{})
	ctx := context.Background()

	page, err := c.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Count)
	require.NotNil(t, page.Next)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "emberling", page.Results[0].Name)
	assert.Equal(t, []string{"water"}, page.Results[1].Categories)

	_, err = c.List(ctx, -1, 2)
	assert.ErrorContains(t, err, "pagination")
	_, err = c.List(ctx, 0, 0)
	assert.ErrorContains(t, err, "pagination")
}

func TestSearch_SubstringMatch(t *testing.T) {
	srv, _ := newCatalogServer(t)
	c := NewClient(srv.URL, Options{})
	ctx := context.Background()

	results, err := c.Search(ctx, "EMBER", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "emberling", results[0].Name)
	assert.Equal(t, "embermaw", results[1].Name)

	results, err = c.Search(ctx, "ember", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1, "limit caps the result count")

	results, err = c.Search(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = c.Search(ctx, " ", 10)
	assert.ErrorContains(t, err, "non-empty")
}

func TestListByCategory_LocalPagination(t *testing.T) {
	srv, _ := newCatalogServer(t)
	c := NewClient(srv.URL, Options{})
	ctx := context.Background()

	page, err := c.ListByCategory(ctx, "fire", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "emberling", page.Results[0].Name)

	page, err = c.ListByCategory(ctx, "fire", 1, 1)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "embermaw", page.Results[0].Name)

	page, err = c.ListByCategory(ctx, "fire", 10, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.Equal(t, 2, page.Total)

	_, err = c.ListByCategory(ctx, "void", 0, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDoRequest_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(testCreatures[0])
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, Options{})
	creature, err := c.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "emberling", creature.Name)
	assert.Equal(t, int64(3), calls.Load())
}

func TestClient_UsesCache(t *testing.T) {
	srv, requests := newCatalogServer(t)

	cache, err := OpenCache(context.Background(), filepath.Join(t.TempDir(), "cache.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	c := NewClient(srv.URL, Options{Cache: cache})
	ctx := context.Background()

	_, err = c.GetByName(ctx, "emberling")
	require.NoError(t, err)
	fetched := requests.Load()

	creature, err := c.GetByName(ctx, "emberling")
	require.NoError(t, err)
	assert.Equal(t, 1, creature.ID)
	assert.Equal(t, fetched, requests.Load(), "second lookup must be served from cache")

	// id lookups hit the same cache rows
	_, err = c.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, fetched, requests.Load())
}
