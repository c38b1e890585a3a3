package parcel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/adrinerDP/madrinerbot/internal/obs"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

// ProgressFunc is told about each carrier as its lookup starts. Calls are
// serialised.
type ProgressFunc func(carrier tracker.Carrier)

// Aggregator queries every carrier for one tracking id.
type Aggregator struct {
	Oracle      tracker.Oracle
	Concurrency int
}

// Aggregate fans trackingID out to carriers and returns the successful
// results in carrier order, regardless of completion order. Failed lookups
// are dropped. The empty tracking id is not validated here; the oracle
// answers it with a miss.
func (a Aggregator) Aggregate(ctx context.Context, trackingID string, carriers []tracker.Carrier, progress ProgressFunc) ResultSet {
	ctx, span := obs.Tracer().Start(ctx, "parcel.aggregate")
	defer span.End()
	start := time.Now()

	slots := make([]*tracker.TrackingResult, len(carriers))
	var progressMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, carrier := range carriers {
		g.Go(func() error {
			if progress != nil {
				progressMu.Lock()
				progress(carrier)
				progressMu.Unlock()
			}
			result, err := a.Oracle.Track(gctx, carrier.ID, trackingID)
			if err != nil {
				return nil
			}
			if result.Carrier.Name == "" {
				result.Carrier = carrier
			}
			slots[i] = &result
			return nil
		})
	}
	_ = g.Wait()

	results := make(ResultSet, 0, len(carriers))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	obs.ObserveFanout(obs.DurationMillis(time.Since(start)), len(results))
	span.SetAttributes(
		attribute.Int("parcel.carriers", len(carriers)),
		attribute.Int("parcel.found", len(results)),
		attribute.String("parcel.command_id", obs.CommandIDFromContext(ctx)),
	)
	return results
}

func (a Aggregator) concurrency() int {
	if a.Concurrency <= 0 {
		return 1
	}
	return a.Concurrency
}
