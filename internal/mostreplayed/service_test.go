package mostreplayed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/clipdesk/clipdesk/internal/db"
	"github.com/clipdesk/clipdesk/internal/logging"
	"github.com/clipdesk/clipdesk/internal/store"
)

func newService(t *testing.T, handler http.HandlerFunc) (*Service, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	svc := NewService(srv.URL, store.NewRepository(database.Conn()), logging.Discard())
	svc.SetLimit(rate.Inf, 1)
	return svc, &hits
}

func TestMarkers_FetchesOnceThenCaches(t *testing.T) {
	svc, hits := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "mostReplayed", r.URL.Query().Get("part"))
		assert.Equal(t, "ABC123", r.URL.Query().Get("id"))
		w.Write([]byte(`{"items":[{"mostReplayed":{"markers":[
			{"startMillis":0,"intensityScoreNormalized":0.5},
			{"startMillis":2500,"intensityScoreNormalized":1}
		]}}]}`))
	})
	ctx := context.Background()

	first, err := svc.Markers(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(2500), first[1].StartMillis)

	second, err := svc.Markers(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load(), "second lookup served from cache")
}

func TestMarkers_NoDataReturnsEmpty(t *testing.T) {
	cases := map[string]string{
		"null mostReplayed": `{"items":[{"mostReplayed":null}]}`,
		"no items":          `{"items":[]}`,
		"no items key":      `{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			markers, err := svc.Markers(context.Background(), "NONE")
			require.NoError(t, err)
			assert.NotNil(t, markers)
			assert.Empty(t, markers)
		})
	}
}

func TestMarkers_UpstreamError(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := svc.Markers(context.Background(), "ABC123")
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusTooManyRequests, upErr.StatusCode)
}

func TestMarkers_RateLimitHonorsContext(t *testing.T) {
	svc, hits := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	svc.SetLimit(rate.Every(1<<62), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Markers(ctx, "ABC123")
	assert.Error(t, err)
	assert.Zero(t, hits.Load())
}

func TestMarkers_ConcurrentMissesShareOneFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	svc, hits := newService(t, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		w.Write([]byte(`{"items":[{"mostReplayed":{"markers":[{"startMillis":0,"intensityScoreNormalized":1}]}}]}`))
	})

	var wg sync.WaitGroup
	results := make([][]store.Marker, 2)
	lookup := func(i int) {
		defer wg.Done()
		markers, err := svc.Markers(context.Background(), "ABC123")
		assert.NoError(t, err)
		results[i] = markers
	}

	wg.Add(2)
	go lookup(0)
	<-started
	go lookup(1)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.Len(t, results[0], 1)
	assert.Equal(t, results[0], results[1])
}
