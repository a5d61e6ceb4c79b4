// Package stats holds the pure speed/accuracy math shared by sessions and
// broadcasts.
package stats

import (
	"encoding/base64"
	"math"
	"time"
)

// FingerprintLength is the size of the short passage tag handed to clients.
const FingerprintLength = 16

// Fingerprint derives a short url-safe tag from a passage so clients can
// verify they hold the same text without retransmitting it.
func Fingerprint(passage string) string {
	enc := base64.RawURLEncoding.EncodeToString([]byte(passage))
	if len(enc) > FingerprintLength {
		enc = enc[:FingerprintLength]
	}
	return enc
}

// ComputeSpeed converts correctly typed characters into rounded words per
// minute using the five-characters-per-word convention. A zero start time,
// zero progress, or non-positive elapsed duration all yield 0.
func ComputeSpeed(correctChars int, startedAt, now time.Time) int {
	if startedAt.IsZero() || correctChars <= 0 {
		return 0
	}
	minutes := now.Sub(startedAt).Minutes()
	if minutes <= 0 {
		return 0
	}
	words := float64(correctChars) / 5
	return int(math.Round(words / minutes))
}

// ComputeAccuracy returns the rounded percentage of correct keystrokes.
// With no attempts recorded it reports 100.
func ComputeAccuracy(correct, total int) int {
	if total <= 0 {
		return 100
	}
	if correct <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
