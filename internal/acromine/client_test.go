package acromine_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/vearutop/fetchcache"
	"github.com/vearutop/fetchcache/internal/acromine"
)

func dictionary(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")

		switch r.URL.Query().Get("sf") {
		case "BBC":
			_, _ = w.Write([]byte(`[{"sf": "BBC", "lfs": [` +
				`{"lf": "blood-brain barrier", "freq": 1011, "since": 1973, "vars": []},` +
				`{"lf": "British Broadcasting Corporation", "freq": 12, "since": 1990}]}]`))
		case "XYZ":
			_, _ = w.Write([]byte(`[]`))
		case "BROKEN":
			_, _ = w.Write([]byte(`<html>`))
		default:
			http.Error(w, "internal failure", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestClient_Lookup(t *testing.T) {
	c := acromine.NewClient(dictionary(t).URL, time.Second, nil)

	res, err := c.Lookup(context.Background(), "BBC")
	require.NoError(t, err)

	want := acromine.Result{
		Acronym: "BBC",
		Meanings: []acromine.Meaning{
			{LongForm: "blood-brain barrier", Frequency: 1011, Since: 1973},
			{LongForm: "British Broadcasting Corporation", Frequency: 12, Since: 1990},
		},
	}

	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"blood-brain barrier", "British Broadcasting Corporation"}, res.LongForms())
	assert.Positive(t, res.Size())
}

func TestClient_Lookup_errors(t *testing.T) {
	c := acromine.NewClient(dictionary(t).URL, time.Second, nil)
	ctx := context.Background()

	_, err := c.Lookup(ctx, "XYZ")
	assert.Equal(t, cache.ErrNotFound, err)

	_, err = c.Lookup(ctx, "BROKEN")
	assert.ErrorContains(t, err, "decode acromine response")

	_, err = c.Lookup(ctx, "FAIL")
	assert.EqualError(t, err, "acromine API error (500): internal failure")

	_, err = c.Lookup(ctx, " ")
	assert.Equal(t, cache.ErrEmptyKey, err)
}

func TestClient_Fetch(t *testing.T) {
	c := acromine.NewClient(dictionary(t).URL, time.Second, nil)
	f := cache.NewFetcher(c.Fetch, cache.FetcherConfig{Name: "acronyms"})
	ctx := context.Background()

	v, err := f.Get(ctx, acromine.NormalizeKey(" bbc "))
	require.NoError(t, err)
	assert.Equal(t, "BBC", v.(acromine.Result).Acronym)

	_, err = f.Get(ctx, "XYZ")
	assert.True(t, errors.Is(err, cache.ErrNotFound))
	assert.EqualError(t, err, `no results found for "XYZ"`)

	_, err = f.Get(ctx, "FAIL")
	assert.True(t, errors.Is(err, cache.ErrFetchFailed))
	assert.EqualError(t, err, `no results found for "FAIL"`)

	_, err = f.Storage().Read(ctx, "XYZ")
	assert.True(t, errors.Is(err, cache.ErrCacheItemNotFound), "failures are not cached")
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "NASA", acromine.NormalizeKey(" nasa\n"))
	assert.Equal(t, "", acromine.NormalizeKey("  "))
}
