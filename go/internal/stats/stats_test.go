package stats

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeSpeed(t *testing.T) {
	base := time.Unix(0, 0)

	t.Run("returns 0 when timer has not started", func(t *testing.T) {
		assert.Equal(t, 0, ComputeSpeed(10, time.Time{}, base))
	})

	t.Run("computes rounded words per minute", func(t *testing.T) {
		assert.Equal(t, 5, ComputeSpeed(25, base, base.Add(time.Minute)))
	})

	t.Run("guards against zero duration", func(t *testing.T) {
		at := base.Add(time.Second)
		assert.Equal(t, 0, ComputeSpeed(25, at, at))
	})

	t.Run("returns 0 without progress", func(t *testing.T) {
		assert.Equal(t, 0, ComputeSpeed(0, base, base.Add(time.Minute)))
	})
}

func TestComputeAccuracy(t *testing.T) {
	assert.Equal(t, 100, ComputeAccuracy(0, 0))
	assert.Equal(t, 0, ComputeAccuracy(0, 10))
	assert.Equal(t, 70, ComputeAccuracy(7, 10))
	assert.Equal(t, 100, ComputeAccuracy(10, 10))
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("Fast foxes jump over lazy dogs in midnight races.")
	assert.Len(t, fp, FingerprintLength)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_-]+$`), fp)

	// Short passages keep their full encoding.
	assert.Equal(t, "YWJj", Fingerprint("abc"))

	// Same passage, same tag.
	assert.Equal(t, fp, Fingerprint("Fast foxes jump over lazy dogs in midnight races."))
}
