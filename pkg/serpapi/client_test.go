package serpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestMapsSearch_ParsesLocalResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "google_maps", r.URL.Query().Get("engine"))
		assert.Equal(t, "barber in Manchester UK", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Write([]byte(`{"local_results":[
			{"title":"Cut Above","address":"1 High St","phone":"+44 161 111 2222",
			 "rating":4.6,"reviews":120,"website":"","place_id":"abc123"}
		]}`))
	})

	results, err := c.MapsSearch(context.Background(), MapsQuery{
		Query: "barber", Location: "Manchester UK", Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Cut Above", results[0].Title)
	assert.Equal(t, 4.6, results[0].Rating)
	assert.Equal(t, 120, results[0].Reviews)
	assert.Equal(t, "abc123", results[0].PlaceID)
}

func TestMapsSearch_CapsLimitAt20(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("num"))
		w.Write([]byte(`{"local_results":[]}`))
	})

	results, err := c.MapsSearch(context.Background(), MapsQuery{
		Query: "cafes", Location: "Austin TX", Limit: 50,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMapsSearch_EmptyResultsIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	results, err := c.MapsSearch(context.Background(), MapsQuery{
		Query: "unicorn groomers", Location: "Nowhere", Limit: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_APIErrorPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Invalid API key"}`))
	})

	_, err := c.MapsSearch(context.Background(), MapsQuery{
		Query: "barber", Location: "Manchester UK",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestSearch_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.MapsSearch(context.Background(), MapsQuery{
		Query: "barber", Location: "Manchester UK",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestWebSearch_ParsesOrganicResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		w.Write([]byte(`{"organic_results":[
			{"title":"Jane Doe - Bid Manager - Acme | LinkedIn",
			 "link":"https://linkedin.com/in/janedoe","snippet":"Bid Manager at Acme"}
		]}`))
	})

	results, err := c.WebSearch(context.Background(), WebQuery{
		Query: `site:linkedin.com/in "Bid Manager"`, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://linkedin.com/in/janedoe", results[0].Link)
}

func TestWebSearch_TruncatesToLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results":[
			{"title":"a"},{"title":"b"},{"title":"c"}
		]}`))
	})

	results, err := c.WebSearch(context.Background(), WebQuery{Query: "x", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
