package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerTrackRelease(t *testing.T) {
	tr := NewTracker()
	a := tr.Track("image", "depth")
	b := tr.Track("buffer", "vertices")
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, tr.Count())
	assert.Equal(t, 1, tr.CountKind("image"))

	tr.Release(a)
	tr.Release(a)
	assert.Equal(t, 1, tr.Count())

	live := tr.Live()
	if assert.Len(t, live, 1) {
		assert.Equal(t, "vertices", live[0].Name)
	}
	assert.Equal(t, 1, tr.Report())
	tr.Release(b)
	assert.Equal(t, 0, tr.Report())
}
