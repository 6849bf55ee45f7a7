package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"phlebcare-backend/internal/cache"
)

// Typed failures callers can branch on. None of them should be retried
// indefinitely: a bad address stays bad, and the upstream being down needs
// backoff, not a loop.
var (
	ErrNoRoute        = errors.New("no drivable route between the points")
	ErrInvalidAddress = errors.New("address could not be resolved")
	ErrUpstream       = errors.New("distance service unavailable")
)

type Point struct {
	Lat float64
	Lng float64
}

// Leg is one resolved origin→destination drive.
type Leg struct {
	DistanceMiles float64       `json:"distance_miles"`
	Duration      time.Duration `json:"duration"`
}

// Resolver computes real driving distance between a pleb's base and a
// customer address.
type Resolver interface {
	Driving(ctx context.Context, origin Point, destination string) (*Leg, error)
}

const metersPerMile = 1609.344

// MatrixClient talks to a distance-matrix style HTTP API. Responses are
// cached because the same pleb/address pair is looked up once per eligible
// pleb during search and again at assignment.
type MatrixClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      cache.Cache // optional
	log        *slog.Logger
}

func NewMatrixClient(baseURL, apiKey string, c cache.Cache, log *slog.Logger) *MatrixClient {
	return &MatrixClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      c,
		log:        log,
	}
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int64 `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value int64 `json:"value"` // seconds
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (m *MatrixClient) Driving(ctx context.Context, origin Point, destination string) (*Leg, error) {
	cacheKey := ""
	if m.cache != nil {
		cacheKey = m.cache.GenerateKey("distance", fmt.Sprintf("%.5f,%.5f|%s", origin.Lat, origin.Lng, destination))
		if cached, err := m.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var leg Leg
			if json.Unmarshal([]byte(cached), &leg) == nil {
				return &leg, nil
			}
		}
	}

	query := url.Values{}
	query.Set("origins", strconv.FormatFloat(origin.Lat, 'f', 6, 64)+","+strconv.FormatFloat(origin.Lng, 'f', 6, 64))
	query.Set("destinations", destination)
	query.Set("mode", "driving")
	if m.apiKey != "" {
		query.Set("key", m.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if out.Status != "OK" || len(out.Rows) == 0 || len(out.Rows[0].Elements) == 0 {
		return nil, fmt.Errorf("%w: response status %q", ErrUpstream, out.Status)
	}

	element := out.Rows[0].Elements[0]
	switch element.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrNoRoute
	case "NOT_FOUND":
		return nil, ErrInvalidAddress
	default:
		return nil, fmt.Errorf("%w: element status %q", ErrUpstream, element.Status)
	}

	leg := &Leg{
		DistanceMiles: float64(element.Distance.Value) / metersPerMile,
		Duration:      time.Duration(element.Duration.Value) * time.Second,
	}

	if m.cache != nil && cacheKey != "" {
		if data, err := json.Marshal(leg); err == nil {
			if err := m.cache.Set(ctx, cacheKey, string(data), 15*time.Minute); err != nil && m.log != nil {
				m.log.Warn("distance cache write failed", slog.String("error", err.Error()))
			}
		}
	}
	return leg, nil
}
