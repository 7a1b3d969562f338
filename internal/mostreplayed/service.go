// Package mostreplayed looks up a video's most-replayed heat map, serving
// cached markers from the store and fetching misses from the upstream API.
package mostreplayed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/clipdesk/clipdesk/internal/logging"
	"github.com/clipdesk/clipdesk/internal/store"
)

const (
	maxResponseBytes = 4 << 20
	defaultTimeout   = 15 * time.Second

	// DefaultRate is the sustained upstream request rate.
	DefaultRate  = rate.Limit(1)
	DefaultBurst = 3
)

// UpstreamError is a non-2xx response from the upstream API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("most-replayed upstream failed (status %d): %s", e.StatusCode, e.Body)
}

// MarkerStore is the subset of store.Repository used for caching.
type MarkerStore interface {
	GetMarkers(ctx context.Context, videoID string) ([]store.Marker, error)
	SaveMarkers(ctx context.Context, videoID string, markers []store.Marker) error
}

type Service struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	store   MarkerStore
	logger  *slog.Logger

	// fetches collapses concurrent misses for the same video into one upstream call.
	fetches singleflight.Group
}

func NewService(baseURL string, markers MarkerStore, logger *slog.Logger) *Service {
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(DefaultRate, DefaultBurst),
		store:   markers,
		logger:  logging.WithComponent(logger, "mostreplayed"),
	}
}

// SetLimit changes the upstream rate limit.
func (s *Service) SetLimit(r rate.Limit, burst int) {
	s.limiter.SetLimit(r)
	s.limiter.SetBurst(burst)
}

// Markers returns the cached markers for videoID, fetching and caching them
// on a miss. A video without most-replayed data yields an empty slice.
func (s *Service) Markers(ctx context.Context, videoID string) ([]store.Marker, error) {
	cached, err := s.store.GetMarkers(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("read cached markers: %w", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	v, err, _ := s.fetches.Do(videoID, func() (any, error) {
		return s.fetchAndCache(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]store.Marker), nil
}

func (s *Service) fetchAndCache(ctx context.Context, videoID string) ([]store.Marker, error) {
	markers, err := s.fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(markers) == 0 {
		return []store.Marker{}, nil
	}

	if err := s.store.SaveMarkers(ctx, videoID, markers); err != nil {
		return nil, fmt.Errorf("cache markers: %w", err)
	}
	s.logger.Info("most-replayed markers cached", "video_id", videoID, "markers", len(markers))
	return markers, nil
}

type upstreamResponse struct {
	Items []struct {
		MostReplayed *struct {
			Markers []store.Marker `json:"markers"`
		} `json:"mostReplayed"`
	} `json:"items"`
}

func (s *Service) fetch(ctx context.Context, videoID string) ([]store.Marker, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("part", "mostReplayed")
	q.Set("id", videoID)
	endpoint := s.baseURL + "/videos?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fetching most-replayed data", "video_id", videoID)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("most-replayed request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read most-replayed response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(body)
		if len(excerpt) > 512 {
			excerpt = excerpt[:512]
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: excerpt}
	}

	var parsed upstreamResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode most-replayed response: %w", err)
	}
	if len(parsed.Items) == 0 || parsed.Items[0].MostReplayed == nil {
		return nil, nil
	}
	return parsed.Items[0].MostReplayed.Markers, nil
}
