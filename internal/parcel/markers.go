package parcel

import "strings"

// Marker is the selectable reaction attached to one summary entry.
type Marker struct {
	Ordinal   int
	Shortcode string
	Emoji     string
}

// MaxMarkers bounds how many results a single summary can offer for selection.
const MaxMarkers = 10

const variationSelector = "\ufe0f"

var markers = [MaxMarkers]Marker{
	{1, "one", "1\ufe0f\u20e3"},
	{2, "two", "2\ufe0f\u20e3"},
	{3, "three", "3\ufe0f\u20e3"},
	{4, "four", "4\ufe0f\u20e3"},
	{5, "five", "5\ufe0f\u20e3"},
	{6, "six", "6\ufe0f\u20e3"},
	{7, "seven", "7\ufe0f\u20e3"},
	{8, "eight", "8\ufe0f\u20e3"},
	{9, "nine", "9\ufe0f\u20e3"},
	{10, "keycap_ten", "\U0001F51F"},
}

var ordinalsByToken = func() map[string]int {
	m := make(map[string]int, MaxMarkers*3)
	for _, mk := range markers {
		m[mk.Emoji] = mk.Ordinal
		m[strings.ReplaceAll(mk.Emoji, variationSelector, "")] = mk.Ordinal
		m[mk.Shortcode] = mk.Ordinal
	}
	return m
}()

// MarkerFor returns the marker for a 1-based ordinal.
func MarkerFor(ordinal int) (Marker, bool) {
	if ordinal < 1 || ordinal > MaxMarkers {
		return Marker{}, false
	}
	return markers[ordinal-1], true
}

// DecodeOrdinal maps a reaction emoji (or its shortcode, with or without
// colons) back to its 1-based ordinal.
func DecodeOrdinal(token string) (int, bool) {
	token = strings.Trim(strings.TrimSpace(token), ":")
	if token == "" {
		return 0, false
	}
	ordinal, ok := ordinalsByToken[token]
	return ordinal, ok
}
