package tracker_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/adrinerDP/madrinerbot/internal/parcel"
	"github.com/adrinerDP/madrinerbot/internal/resilience"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

const epostTrack = `{
  "from": {"name": "김*수", "time": "2020-10-01T09:00:00+09:00"},
  "to": {"name": "이*희", "time": null},
  "state": {"id": "in_transit", "text": "상품이동중"},
  "progresses": [
    {"time": "2020-10-01T09:00:00+09:00", "status": {"id": "at_pickup", "text": "접수"}, "location": {"name": "서울중앙"}, "description": ""},
    {"time": "2020-10-02T03:15:00+09:00", "status": {"id": "in_transit", "text": "발송"}, "location": {"name": "대전HUB"}, "description": ""}
  ],
  "carrier": {"id": "kr.epost", "name": "우체국 택배", "tel": "+8215881300"}
}`

func newOracle(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/carriers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"kr.cvsnet","name":"GS Postbox 택배","tel":"+8215771287"},{"id":"","name":"broken"},{"id":"kr.epost","name":"우체국 택배","tel":"+8215881300"}]`))
	})
	mux.HandleFunc("/carriers/kr.epost/tracks/123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(epostTrack))
	})
	mux.HandleFunc("/carriers/kr.cvsnet/tracks/123", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"해당 운송장이 존재하지 않습니다."}`))
	})
	mux.HandleFunc("/carriers/kr.slow/tracks/123", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/carriers/kr.garbled/tracks/123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state": `))
	})
	mux.HandleFunc("/carriers/kr.stateless/tracks/123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"from":{"name":"a"},"to":{"name":"b"},"progresses":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, breakers *resilience.BreakerGroup) *tracker.Client {
	return tracker.NewClient(tracker.ClientConfig{
		BaseURL:   srv.URL + "/",
		Timeout:   100 * time.Millisecond,
		Breakers:  breakers,
		Transport: srv.Client().Transport,
		Logger:    zerolog.Nop(),
	})
}

func TestCarriersSkipsEntriesWithoutID(t *testing.T) {
	client := newClient(newOracle(t), nil)

	carriers, err := client.Carriers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []tracker.Carrier{
		{ID: "kr.cvsnet", Name: "GS Postbox 택배", Contact: "+8215771287"},
		{ID: "kr.epost", Name: "우체국 택배", Contact: "+8215881300"},
	}, carriers)
}

func TestCarriersUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(srv, nil).Carriers(context.Background())
	require.ErrorIs(t, err, tracker.ErrOracleUnavailable)
}

func TestTrackFound(t *testing.T) {
	client := newClient(newOracle(t), nil)

	result, err := client.Track(context.Background(), "kr.epost", "123")
	require.NoError(t, err)
	require.Equal(t, "우체국 택배", result.Carrier.Name)
	require.Equal(t, "상품이동중", result.State.Text)
	require.Equal(t, "김*수", result.From.Name)
	require.Equal(t, "이*희", result.To.Name)
	require.Len(t, result.Progresses, 2)
	require.Equal(t, "서울중앙", result.Progresses[0].Location.Name)
	require.Equal(t, "발송", result.Progresses[1].Status.Text)
	require.Equal(t, 2020, result.Progresses[1].Time.Year())
}

func TestTrackFailuresAreNotFound(t *testing.T) {
	client := newClient(newOracle(t), nil)

	for _, carrierID := range []string{"kr.cvsnet", "kr.slow", "kr.garbled", "kr.unknown"} {
		t.Run(carrierID, func(t *testing.T) {
			start := time.Now()
			_, err := client.Track(context.Background(), carrierID, "123")
			require.ErrorIs(t, err, tracker.ErrNotFound)
			require.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestTrackEmptyTrackingIDIsNotFound(t *testing.T) {
	client := newClient(newOracle(t), nil)

	_, err := client.Track(context.Background(), "kr.epost", "")
	require.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestTrackStatelessBodyIsFound(t *testing.T) {
	client := newClient(newOracle(t), nil)

	result, err := client.Track(context.Background(), "kr.stateless", "123")
	require.NoError(t, err)
	require.Equal(t, "kr.stateless", result.Carrier.ID)
	require.Empty(t, result.State.Text)
	require.Equal(t, "a", result.From.Name)
}

func TestTrackOpenCircuitIsNotFound(t *testing.T) {
	breakers := resilience.NewBreakerGroup(1, 0.5, time.Minute, zerolog.Nop())
	breakers.For("kr.epost").Report(context.Background(), false)
	client := newClient(newOracle(t), breakers)

	_, err := client.Track(context.Background(), "kr.epost", "123")
	require.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestSlowCarriersDoNotTripHealthyCarrier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/carriers/kr.epost/") {
			_, _ = w.Write([]byte(epostTrack))
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	breakers := resilience.NewBreakerGroup(20, 0.9, 30*time.Second, zerolog.Nop())
	client := tracker.NewClient(tracker.ClientConfig{
		BaseURL:   srv.URL,
		Timeout:   30 * time.Millisecond,
		Breakers:  breakers,
		Transport: srv.Client().Transport,
		Logger:    zerolog.Nop(),
	})

	carriers := make([]tracker.Carrier, 0, 21)
	for i := 0; i < 20; i++ {
		carriers = append(carriers, tracker.Carrier{ID: fmt.Sprintf("kr.slow%02d", i)})
	}
	carriers = append(carriers, tracker.Carrier{ID: "kr.epost", Name: "우체국 택배"})
	aggregator := parcel.Aggregator{Oracle: client, Concurrency: 8}

	first := aggregator.Aggregate(context.Background(), "123", carriers, nil)
	require.Len(t, first, 1)
	require.Equal(t, resilience.Closed, breakers.For("kr.epost").State())

	second := aggregator.Aggregate(context.Background(), "123", carriers[20:], nil)
	require.Len(t, second, 1)
	require.Equal(t, "kr.epost", second[0].Carrier.ID)
}
