package parcel

import (
	"context"
	"errors"
	"fmt"

	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

var (
	// ErrUnresolvable is returned when a reaction cannot be mapped to a stored result.
	ErrUnresolvable = errors.New("parcel: selection unresolvable")
	// ErrSessionMiss is returned when the user has no stored results. It is an ErrUnresolvable.
	ErrSessionMiss = fmt.Errorf("%w: no stored results", ErrUnresolvable)
)

// Resolver maps a reaction back to one entry of the user's latest ResultSet.
type Resolver struct {
	Store SessionStore
}

// Resolve decodes token into an ordinal and returns the matching result.
// Every failure, including store errors, wraps ErrUnresolvable.
func (r Resolver) Resolve(ctx context.Context, userID, token string) (tracker.TrackingResult, error) {
	ordinal, ok := DecodeOrdinal(token)
	if !ok {
		return tracker.TrackingResult{}, fmt.Errorf("%w: unknown marker %q", ErrUnresolvable, token)
	}
	return r.ResolveOrdinal(ctx, userID, ordinal)
}

// ResolveOrdinal returns the entry at the 1-based ordinal.
func (r Resolver) ResolveOrdinal(ctx context.Context, userID string, ordinal int) (tracker.TrackingResult, error) {
	if ordinal < 1 {
		return tracker.TrackingResult{}, fmt.Errorf("%w: ordinal %d", ErrUnresolvable, ordinal)
	}
	results, found, err := r.Store.Get(ctx, userID)
	if err != nil {
		return tracker.TrackingResult{}, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}
	if !found {
		return tracker.TrackingResult{}, ErrSessionMiss
	}
	index := ordinal - 1
	if index >= len(results) {
		return tracker.TrackingResult{}, fmt.Errorf("%w: ordinal %d of %d", ErrUnresolvable, ordinal, len(results))
	}
	return results[index], nil
}
