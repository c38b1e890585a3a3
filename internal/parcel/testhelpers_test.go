package parcel_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adrinerDP/madrinerbot/internal/parcel"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

var (
	gsPostbox = tracker.Carrier{ID: "kr.cvsnet", Name: "GS Postbox 택배", Contact: "+8215771287"}
	epost     = tracker.Carrier{ID: "kr.epost", Name: "우체국 택배", Contact: "+8215881300"}
	cj        = tracker.Carrier{ID: "kr.cjlogistics", Name: "CJ대한통운"}
	lotte     = tracker.Carrier{ID: "kr.lotte", Name: "롯데택배"}
)

func resultFor(c tracker.Carrier, state string) tracker.TrackingResult {
	return tracker.TrackingResult{
		Carrier: c,
		State:   tracker.Status{Text: state},
		From:    tracker.Party{Name: "보내는이"},
		To:      tracker.Party{Name: "받는이"},
	}
}

// fakeOracle answers from a fixed table; carriers missing from it miss.
type fakeOracle struct {
	results map[string]tracker.TrackingResult
	delays  map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

func (f *fakeOracle) Track(ctx context.Context, carrierID, trackingID string) (tracker.TrackingResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, carrierID+"/"+trackingID)
	f.mu.Unlock()
	if d := f.delays[carrierID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return tracker.TrackingResult{}, fmt.Errorf("%w: %v", tracker.ErrNotFound, ctx.Err())
		}
	}
	if trackingID == "" {
		return tracker.TrackingResult{}, tracker.ErrNotFound
	}
	result, ok := f.results[carrierID]
	if !ok {
		return tracker.TrackingResult{}, tracker.ErrNotFound
	}
	return result, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memoryStore struct {
	mu     sync.Mutex
	data   map[string]parcel.ResultSet
	putErr error
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]parcel.ResultSet{}}
}

func (m *memoryStore) Put(_ context.Context, userID string, results parcel.ResultSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[userID] = append(parcel.ResultSet(nil), results...)
	return nil
}

func (m *memoryStore) Get(_ context.Context, userID string) (parcel.ResultSet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	results, ok := m.data[userID]
	return results, ok, nil
}

type staticCarriers []tracker.Carrier

func (s staticCarriers) Carriers() []tracker.Carrier { return s }

var errStoreDown = errors.New("store down")
