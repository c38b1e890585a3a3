package parcel

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

// CarrierLister exposes the current carrier snapshot.
type CarrierLister interface {
	Carriers() []tracker.Carrier
}

// Lookup is the outcome of one parcel command.
type Lookup struct {
	TrackingID string
	Queried    int
	Results    ResultSet
}

// Service runs the fan-out, stores the outcome for the requesting user and
// resolves later selections against it.
type Service struct {
	Carriers   CarrierLister
	Aggregator Aggregator
	Store      SessionStore
	Logger     zerolog.Logger
}

// Snapshot returns the carriers a lookup started now would query.
func (s *Service) Snapshot() []tracker.Carrier {
	return s.Carriers.Carriers()
}

// Lookup queries every carrier in the snapshot for trackingID and overwrites userID's stored
// ResultSet with the outcome. Results beyond MaxMarkers are dropped so every
// stored entry has a marker. A store failure is logged and the results are
// still returned; later selections for the user then fail to resolve.
func (s *Service) Lookup(ctx context.Context, userID, trackingID string, carriers []tracker.Carrier, progress ProgressFunc) Lookup {
	results := s.Aggregator.Aggregate(ctx, trackingID, carriers, progress)
	if len(results) > MaxMarkers {
		s.Logger.Info().Int("found", len(results)).Int("kept", MaxMarkers).Msg("truncating results to marker count")
		results = results[:MaxMarkers]
	}
	if err := s.Store.Put(ctx, userID, results); err != nil {
		s.Logger.Error().Err(err).Str("user_id", userID).Msg("store parcel session")
	}
	return Lookup{TrackingID: trackingID, Queried: len(carriers), Results: results}
}

// Select resolves a reaction token for userID.
func (s *Service) Select(ctx context.Context, userID, token string) (tracker.TrackingResult, error) {
	return Resolver{Store: s.Store}.Resolve(ctx, userID, token)
}
