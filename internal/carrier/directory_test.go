package carrier_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/adrinerDP/madrinerbot/internal/carrier"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

type stubSource struct {
	mu      sync.Mutex
	batches [][]tracker.Carrier
	errs    []error
	calls   int
}

func (s *stubSource) Carriers(context.Context) ([]tracker.Carrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.batches) {
		i = len(s.batches) - 1
	}
	return s.batches[i], nil
}

var (
	gs    = tracker.Carrier{ID: "kr.cvsnet", Name: "GS Postbox 택배"}
	epost = tracker.Carrier{ID: "kr.epost", Name: "우체국 택배"}
)

func TestDirectoryNotReadyUntilLoaded(t *testing.T) {
	dir := carrier.NewDirectory(&stubSource{batches: [][]tracker.Carrier{{gs}}}, zerolog.Nop())
	require.ErrorIs(t, dir.Ready(context.Background()), carrier.ErrNotLoaded)
	require.Empty(t, dir.Carriers())

	_, err := dir.Refresh(context.Background())
	require.NoError(t, err)
	require.NoError(t, dir.Ready(context.Background()))
	require.Equal(t, []tracker.Carrier{gs}, dir.Carriers())
}

func TestDirectoryRefreshFailureKeepsSnapshot(t *testing.T) {
	unavailable := fmt.Errorf("%w: boom", tracker.ErrOracleUnavailable)
	src := &stubSource{
		batches: [][]tracker.Carrier{{gs, epost}},
		errs:    []error{nil, unavailable},
	}
	dir := carrier.NewDirectory(src, zerolog.Nop())

	_, err := dir.Refresh(context.Background())
	require.NoError(t, err)

	_, err = dir.Refresh(context.Background())
	require.True(t, errors.Is(err, tracker.ErrOracleUnavailable))
	require.Equal(t, []tracker.Carrier{gs, epost}, dir.Carriers())
}

func TestDirectoryInitialFailurePropagates(t *testing.T) {
	src := &stubSource{errs: []error{tracker.ErrOracleUnavailable}}
	dir := carrier.NewDirectory(src, zerolog.Nop())

	_, err := dir.Refresh(context.Background())
	require.ErrorIs(t, err, tracker.ErrOracleUnavailable)
	require.ErrorIs(t, dir.Ready(context.Background()), carrier.ErrNotLoaded)
}

func TestDirectoryCarriersIsACopy(t *testing.T) {
	dir := carrier.NewDirectory(&stubSource{batches: [][]tracker.Carrier{{gs, epost}}}, zerolog.Nop())
	_, err := dir.Refresh(context.Background())
	require.NoError(t, err)

	got := dir.Carriers()
	got[0].Name = "mutated"
	require.Equal(t, "GS Postbox 택배", dir.Carriers()[0].Name)
}

func TestRunRefresherSwapsSnapshot(t *testing.T) {
	src := &stubSource{batches: [][]tracker.Carrier{{gs}, {gs, epost}}}
	dir := carrier.NewDirectory(src, zerolog.Nop())
	_, err := dir.Refresh(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dir.RunRefresher(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(dir.Carriers()) == 2
	}, time.Second, 5*time.Millisecond)
}
