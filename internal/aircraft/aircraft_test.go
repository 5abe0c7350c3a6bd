package aircraft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAircraft_ApplyUpdate_NonNullWins(t *testing.T) {
	t.Parallel()

	base := Aircraft{Hex: "ABCDEF", TypeCode: "F16", Operator: "USAF"}
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	updated := base.ApplyUpdate("", "", "US", true, CategoryFighter, []string{"S1"}, t0)

	assert.Equal(t, "F16", updated.TypeCode, "empty incoming type code must not clobber existing")
	assert.Equal(t, "USAF", updated.Operator)
	assert.Equal(t, "US", updated.Country)
	assert.True(t, updated.IsMilitary)
	assert.Equal(t, CategoryFighter, updated.Category)
	assert.Equal(t, t0, updated.FirstSeen)
	assert.Equal(t, t0, updated.LastSeen)
}

func TestAircraft_ApplyUpdate_ReclassificationOverridesMilitaryFlag(t *testing.T) {
	t.Parallel()

	// even if the aircraft was previously flagged military, the rule
	// result always wins unconditionally.
	base := Aircraft{Hex: "ABCDEF", IsMilitary: true, Category: CategoryFighter}
	updated := base.ApplyUpdate("", "", "", false, CategoryOther, nil, time.Now())

	assert.False(t, updated.IsMilitary)
	assert.Equal(t, CategoryOther, updated.Category)
}

func TestAircraft_ApplyUpdate_TracksTimestampBounds(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	a := Aircraft{Hex: "A"}
	a = a.ApplyUpdate("", "", "", false, "", nil, t1)
	a = a.ApplyUpdate("", "", "", false, "", nil, t0)

	assert.Equal(t, t0, a.FirstSeen)
	assert.Equal(t, t1, a.LastSeen)
}
