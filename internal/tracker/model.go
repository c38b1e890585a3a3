package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Carrier is a parcel delivery company known to the tracking oracle.
type Carrier struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name"`
	Contact string `json:"tel,omitempty"`
}

// DisplayName falls back to the id when the oracle omits a name.
func (c Carrier) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Status is a state label as reported by the oracle.
type Status struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// Party is the sender or recipient of a parcel.
type Party struct {
	Name string `json:"name"`
}

// Location is where a progress event happened.
type Location struct {
	Name string `json:"name"`
}

// ProgressEntry is one tracking event. Entries keep the order the oracle
// returned them in.
type ProgressEntry struct {
	Location    Location  `json:"location"`
	Status      Status    `json:"status"`
	Time        Timestamp `json:"time"`
	Description string    `json:"description,omitempty"`
}

// TrackingResult is a successful lookup for one carrier.
type TrackingResult struct {
	Carrier    Carrier         `json:"carrier"`
	State      Status          `json:"state"`
	From       Party           `json:"from"`
	To         Party           `json:"to"`
	Progresses []ProgressEntry `json:"progresses"`
}

// Timestamp accepts the time layouts the oracle is known to emit and
// tolerates null.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("tracker: unrecognised time %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
