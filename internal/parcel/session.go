package parcel

import (
	"context"

	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

// ResultSet is the ordered list of successful lookups from one command. Its
// order matches the order the summary presented the entries in.
type ResultSet []tracker.TrackingResult

// SessionStore keeps the latest ResultSet per user.
type SessionStore interface {
	// Put overwrites any ResultSet previously stored for userID.
	Put(ctx context.Context, userID string, results ResultSet) error
	// Get reports found=false when nothing is stored for userID.
	Get(ctx context.Context, userID string) (results ResultSet, found bool, err error)
}
