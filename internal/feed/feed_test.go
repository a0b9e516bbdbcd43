package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhvmmv/Tyche-Betting/internal/logging"
)

const finishedPayload = `{
  "errors": [],
  "response": [{
    "fixture": {"id": 1379082, "status": {"short": "FT"}},
    "teams": {"home": {"name": "Chelsea"}, "away": {"name": "Arsenal"}},
    "goals": {"home": 2, "away": 0}
  }]
}`

func newTestClient(url string) *APIFootball {
	c := NewAPIFootball(url, "secret", 0, logging.Discard())
	c.baseWait = time.Millisecond
	return c
}

func TestFixtureFinished(t *testing.T) {
	for status, want := range map[string]bool{"FT": true, "AET": true, "PEN": true, "NS": false, "1H": false, "": false} {
		assert.Equal(t, want, Fixture{Status: status}.Finished(), status)
	}
}

func TestAPIFootball_ParsesFixture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fixtures", r.URL.Path)
		assert.Equal(t, "1379082", r.URL.Query().Get("id"))
		assert.Equal(t, "secret", r.Header.Get("x-apisports-key"))
		_, _ = w.Write([]byte(finishedPayload))
	}))
	defer srv.Close()

	f, err := newTestClient(srv.URL).Fixture(context.Background(), "1379082")
	require.NoError(t, err)
	assert.Equal(t, Fixture{ID: "1379082", Status: "FT", HomeScore: 2, AwayScore: 0, HomeTeam: "Chelsea", AwayTeam: "Arsenal"}, f)
	assert.True(t, f.Finished())
}

func TestAPIFootball_EmptyResponseIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [], "response": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fixture(context.Background(), "42")
	assert.ErrorIs(t, err, ErrFixtureNotFound)
}

func TestAPIFootball_NotStartedHasNullGoals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [], "response": [{"fixture": {"id": 7, "status": {"short": "NS"}},
			"teams": {"home": {"name": "A"}, "away": {"name": "B"}}, "goals": {"home": null, "away": null}}]}`))
	}))
	defer srv.Close()

	f, err := newTestClient(srv.URL).Fixture(context.Background(), "7")
	require.NoError(t, err)
	assert.False(t, f.Finished())
}

func TestAPIFootball_ProviderErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": {"token": "invalid key"}, "response": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fixture(context.Background(), "7")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAPIFootball_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(finishedPayload))
	}))
	defer srv.Close()

	f, err := newTestClient(srv.URL).Fixture(context.Background(), "1379082")
	require.NoError(t, err)
	assert.Equal(t, "FT", f.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIFootball_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fixture(context.Background(), "1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestCached_StoresOnlyFinishedFixtures(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	upstream := NewStatic(
		Fixture{ID: "1", Status: StatusFullTime, HomeScore: 1, AwayScore: 1},
		Fixture{ID: "2", Status: StatusNotStarted},
	)
	c := NewCached(upstream, rdb, time.Hour, logging.Discard())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f, err := c.Fixture(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 1, f.HomeScore)

		_, err = c.Fixture(ctx, "2")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, upstream.Calls("1"))
	assert.Equal(t, 3, upstream.Calls("2"))
	assert.True(t, mr.Exists(cacheKeyPrefix+"1"))
	assert.False(t, mr.Exists(cacheKeyPrefix+"2"))
}

func TestCached_PassesThroughErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	upstream := NewStatic()
	boom := errors.New("boom")
	upstream.Fail("9", boom)

	_, err := NewCached(upstream, rdb, time.Hour, logging.Discard()).Fixture(context.Background(), "9")
	assert.ErrorIs(t, err, boom)
}
