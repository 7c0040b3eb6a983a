package tidal

import (
	"fmt"
	"slices"
	"strings"
)

// AudioQuality is a TIDAL stream quality level.
type AudioQuality string

// Known audio quality levels from the lowest to the highest.
const (
	// AudioQualityLow is the lossy 96 kbps AAC stream.
	AudioQualityLow AudioQuality = "LOW"
	// AudioQualityHigh is the lossy 320 kbps AAC stream.
	AudioQualityHigh AudioQuality = "HIGH"
	// AudioQualityLossless is the 16-bit 44.1 kHz FLAC stream.
	AudioQualityLossless AudioQuality = "LOSSLESS"
	// AudioQualityHiRes is the up to 24-bit 192 kHz FLAC stream.
	AudioQualityHiRes AudioQuality = "HI_RES"
)

//nolint:gochecknoglobals // Immutable ordering table.
var audioQualityOrder = []AudioQuality{
	AudioQualityLow,
	AudioQualityHigh,
	AudioQualityLossless,
	AudioQualityHiRes,
}

// ParseAudioQuality parses a quality name case-insensitively.
func ParseAudioQuality(s string) (AudioQuality, error) {
	q := AudioQuality(strings.ToUpper(strings.TrimSpace(s)))
	if q.Rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAudioQuality, s)
	}

	return q, nil
}

// Rank returns the position of q in the quality ordering, or -1 for unknown values.
func (q AudioQuality) Rank() int {
	return slices.Index(audioQualityOrder, q)
}

// Less reports whether q is strictly lower than other.
func (q AudioQuality) Less(other AudioQuality) bool {
	return q.Rank() < other.Rank()
}

// IsLossless reports whether q is delivered as FLAC.
func (q AudioQuality) IsLossless() bool {
	return q.Rank() >= AudioQualityLossless.Rank()
}

// String implements fmt.Stringer.
func (q AudioQuality) String() string {
	return string(q)
}

// MinAudioQuality returns the lower of two qualities.
func MinAudioQuality(a, b AudioQuality) AudioQuality {
	if b.Less(a) {
		return b
	}

	return a
}
