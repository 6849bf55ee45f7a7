package geo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func matrixBody(elementStatus string, meters, seconds int64) string {
	return fmt.Sprintf(`{
		"status": "OK",
		"rows": [{"elements": [{
			"status": %q,
			"distance": {"value": %d},
			"duration": {"value": %d}
		}]}]
	}`, elementStatus, meters, seconds)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *MatrixClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMatrixClient(server.URL, "test-key", nil, log)
}

func TestDrivingConvertsMetersToMiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "driving", r.URL.Query().Get("mode"))
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.Equal(t, "10 Downing Street", r.URL.Query().Get("destinations"))
		fmt.Fprint(w, matrixBody("OK", 16093, 1200))
	})

	leg, err := client.Driving(context.Background(), Point{Lat: 51.5, Lng: -0.12}, "10 Downing Street")
	require.NoError(t, err)
	require.InDelta(t, 10.0, leg.DistanceMiles, 0.01)
	require.Equal(t, 20*time.Minute, leg.Duration)
}

func TestDrivingNoRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, matrixBody("ZERO_RESULTS", 0, 0))
	})

	_, err := client.Driving(context.Background(), Point{}, "Isle of Nowhere")
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestDrivingInvalidAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, matrixBody("NOT_FOUND", 0, 0))
	})

	_, err := client.Driving(context.Background(), Point{}, "gibberish")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestDrivingUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Driving(context.Background(), Point{}, "anywhere")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestDrivingRejectedTopLevelStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "OVER_QUERY_LIMIT", "rows": []}`)
	})

	_, err := client.Driving(context.Background(), Point{}, "anywhere")
	require.ErrorIs(t, err, ErrUpstream)
}
