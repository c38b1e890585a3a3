package carrier

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/adrinerDP/madrinerbot/internal/obs"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

// ErrNotLoaded is returned by Ready before the first successful load.
var ErrNotLoaded = errors.New("carrier: directory not loaded")

// Source fetches the full carrier list.
type Source interface {
	Carriers(ctx context.Context) ([]tracker.Carrier, error)
}

// Directory holds an immutable snapshot of known carriers. Refresh replaces
// the snapshot atomically; readers never observe a partial list.
type Directory struct {
	source   Source
	logger   zerolog.Logger
	snapshot atomic.Pointer[[]tracker.Carrier]
}

// NewDirectory constructs an empty directory backed by source.
func NewDirectory(source Source, logger zerolog.Logger) *Directory {
	return &Directory{source: source, logger: logger.With().Str("component", "carrier_directory").Logger()}
}

// Refresh reloads the carrier list. On failure the previous snapshot is kept
// and the source error (tracker.ErrOracleUnavailable) is returned.
func (d *Directory) Refresh(ctx context.Context) ([]tracker.Carrier, error) {
	carriers, err := d.source.Carriers(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := append([]tracker.Carrier(nil), carriers...)
	d.snapshot.Store(&snapshot)
	obs.SetCarrierCount(len(snapshot))
	d.logger.Info().Int("carriers", len(snapshot)).Msg("carriers_loaded")
	return snapshot, nil
}

// Carriers returns the current snapshot. The returned slice is a copy.
func (d *Directory) Carriers() []tracker.Carrier {
	ptr := d.snapshot.Load()
	if ptr == nil {
		return nil
	}
	return append([]tracker.Carrier(nil), (*ptr)...)
}

// Ready reports whether a snapshot has been loaded.
func (d *Directory) Ready(context.Context) error {
	if d.snapshot.Load() == nil {
		return ErrNotLoaded
	}
	return nil
}

// RunRefresher reloads the directory every interval until ctx is done. A
// failed reload keeps serving the previous snapshot.
func (d *Directory) RunRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Refresh(ctx); err != nil && ctx.Err() == nil {
				d.logger.Warn().Err(err).Msg("carrier refresh failed, keeping previous snapshot")
			}
		}
	}
}
