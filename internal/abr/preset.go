// Package abr parses the textual ABR ladder presets recognized by the
// Channel Provisioner (spec §4.2) into ordered variant lists.
package abr

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant is a single rung of an adaptive-bitrate ladder.
type Variant struct {
	Name        string
	Resolution  string
	BitrateKbps int
}

// ParsePreset parses the compact textual form `entry (',' entry)*` where
// each entry is `name '|' resolution '|' bitrateKbps`. Whitespace around
// tokens is trimmed. Empty entries produced by the split are skipped, so
// an empty string (or a string of only commas) parses to an empty ladder
// with no error. Any non-empty entry with an empty token, or a
// non-base-10 bitrateKbps, fails parsing with the offending entry named.
func ParsePreset(text string) ([]Variant, error) {
	var ladder []Variant
	for _, rawEntry := range strings.Split(text, ",") {
		entry := strings.TrimSpace(rawEntry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, "|")
		if len(parts) != 3 {
			return nil, fmt.Errorf("abr: malformed preset entry %q: expected name|resolution|bitrateKbps", entry)
		}

		name := strings.TrimSpace(parts[0])
		resolution := strings.TrimSpace(parts[1])
		bitrateText := strings.TrimSpace(parts[2])

		if name == "" || resolution == "" || bitrateText == "" {
			return nil, fmt.Errorf("abr: malformed preset entry %q: empty token", entry)
		}

		bitrate, err := strconv.ParseInt(bitrateText, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("abr: malformed preset entry %q: bitrateKbps %q is not a base-10 integer: %w", entry, bitrateText, err)
		}

		ladder = append(ladder, Variant{
			Name:        name,
			Resolution:  resolution,
			BitrateKbps: int(bitrate),
		})
	}
	return ladder, nil
}

// MustParsePreset parses text and panics on error. Intended only for
// startup wiring (cmd/workerd) where a malformed preset is a configuration
// error that should fail fast before the process starts serving.
func MustParsePreset(text string) []Variant {
	ladder, err := ParsePreset(text)
	if err != nil {
		panic(err)
	}
	return ladder
}

// String re-serializes a ladder back into the compact textual form. Used
// by the provisioner to build the ladder text sent to the engine, and by
// tests to check the parse/format round trip is a fixed point modulo
// whitespace.
func String(ladder []Variant) string {
	parts := make([]string, 0, len(ladder))
	for _, v := range ladder {
		parts = append(parts, fmt.Sprintf("%s|%s|%d", v.Name, v.Resolution, v.BitrateKbps))
	}
	return strings.Join(parts, ",")
}
