package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeduper_NoMD5BypassesTracking(t *testing.T) {
	d := newDeduper()
	decision, conflict := d.decide("a/b.txt", "")
	assert.Equal(t, DecisionProceed, decision)
	assert.False(t, conflict)
	assert.Zero(t, d.skippedDuplicates())
}

func TestDeduper_IdenticalPathAndMD5IsDuplicate(t *testing.T) {
	d := newDeduper()
	d1, c1 := d.decide("a/b.txt", "m1")
	d2, c2 := d.decide("a/b.txt", "m1")

	assert.Equal(t, DecisionProceed, d1)
	assert.False(t, c1)
	assert.Equal(t, DecisionDuplicate, d2)
	assert.False(t, c2)
	assert.Equal(t, 1, d.skippedDuplicates())
}

func TestDeduper_SamePathDifferentMD5IsConflictButProceeds(t *testing.T) {
	d := newDeduper()
	d1, c1 := d.decide("a/b.txt", "m1")
	d2, c2 := d.decide("a/b.txt", "m2")

	assert.Equal(t, DecisionProceed, d1)
	assert.False(t, c1)
	assert.Equal(t, DecisionProceed, d2)
	assert.True(t, c2)
	assert.Equal(t, []string{"a/b.txt"}, d.conflicts())
}

func TestDeduper_ConflictRecordedOnlyOncePerPath(t *testing.T) {
	d := newDeduper()
	d.decide("a/b.txt", "m1")
	d.decide("a/b.txt", "m2")
	d.decide("a/b.txt", "m3")
	assert.Equal(t, []string{"a/b.txt"}, d.conflicts())
}

func TestDeduper_DifferentPathsAreIndependent(t *testing.T) {
	d := newDeduper()
	d1, c1 := d.decide("a.txt", "m1")
	d2, c2 := d.decide("b.txt", "m1")
	assert.Equal(t, DecisionProceed, d1)
	assert.Equal(t, DecisionProceed, d2)
	assert.False(t, c1)
	assert.False(t, c2)
}
