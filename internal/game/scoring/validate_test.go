package scoring_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/lanes/internal/game/scoring"
)

func TestValidateRoll(t *testing.T) {
	tenth := func(pins ...int) []int { return append(repeat(0, 18), pins...) }

	tests := []struct {
		name    string
		pins    []int
		frame   int
		slot    scoring.RollSlot
		roll    int
		wantErr string
	}{
		{"first ball", nil, 0, scoring.SlotFirst, 7, ""},
		{"negative pins", nil, 0, scoring.SlotFirst, -1, "pins must be between 0 and 10"},
		{"eleven pins", nil, 0, scoring.SlotFirst, 11, "pins must be between 0 and 10"},
		{"frame zero", nil, -1, scoring.SlotFirst, 1, "frame must be between 1 and 10"},
		{"frame eleven", nil, 10, scoring.SlotFirst, 1, "frame must be between 1 and 10"},
		{"slot four", nil, 0, scoring.RollSlot(4), 1, "roll must be 1, 2 or 3"},
		{"second before first", nil, 0, scoring.SlotSecond, 1, "second roll bowled before the first"},
		{"too many pins", []int{7}, 0, scoring.SlotSecond, 4, "only 3 pins left standing"},
		{"exact spare", []int{7}, 0, scoring.SlotSecond, 3, ""},
		{"second ball after strike", []int{10}, 0, scoring.SlotSecond, 0, "a strike ends the frame"},
		{"third ball before tenth", []int{7, 3}, 0, scoring.SlotThird, 4, "only the tenth frame has a third roll"},
		{"tenth frame too many pins", tenth(6), 9, scoring.SlotSecond, 5, "only 4 pins left standing"},
		{"tenth frame bonus after strike", tenth(10), 9, scoring.SlotSecond, 10, ""},
		{"tenth frame third after open", tenth(3, 4), 9, scoring.SlotThird, 2, "needs a strike or spare"},
		{"tenth frame third after spare", tenth(3, 7), 9, scoring.SlotThird, 10, ""},
		{"tenth frame third before second", tenth(10), 9, scoring.SlotThird, 4, "third roll bowled before the second"},
		{"tenth frame bonus rolls uncapped", tenth(10, 6), 9, scoring.SlotThird, 9, ""},
		{"overwrite breaks frame", []int{3, 5}, 0, scoring.SlotFirst, 6, "only 4 pins left standing"},
		{"overwrite keeps frame valid", []int{3, 5}, 0, scoring.SlotFirst, 2, ""},
		{"overwrite into strike with second ball", []int{3, 5}, 0, scoring.SlotFirst, 10, "a strike ends the frame"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := scoring.ValidateRoll(bowl(t, tc.pins...), tc.frame, tc.slot, tc.roll)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, scoring.ErrInvalidRoll)
			assert.Contains(t, err.Error(), tc.wantErr)

			var invalid *scoring.InvalidRollError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tc.frame, invalid.FrameIndex)
			assert.Equal(t, tc.slot, invalid.Slot)
			assert.Equal(t, tc.roll, invalid.Pins)
		})
	}
}

func TestApply_LeavesPlayerUntouchedOnError(t *testing.T) {
	p := bowl(t, 7)
	got, err := scoring.Apply(p, 0, scoring.SlotSecond, 9)
	require.Error(t, err)
	assert.Equal(t, scoring.Player{}, got)
	assert.False(t, p.Frames[0].Roll2.Set)
}

func TestMaxPins(t *testing.T) {
	p := bowl(t, append(repeat(0, 16), 6)...)
	assert.Equal(t, 4, scoring.MaxPins(p, 8, scoring.SlotSecond))
	assert.Equal(t, 10, scoring.MaxPins(p, 8, scoring.SlotFirst))
	assert.Equal(t, 10, scoring.MaxPins(p, 9, scoring.SlotFirst))
	assert.Equal(t, 0, scoring.MaxPins(p, 12, scoring.SlotFirst))

	strike := bowl(t, append(repeat(0, 18), 10)...)
	assert.Equal(t, 10, scoring.MaxPins(strike, 9, scoring.SlotSecond))
}

// Property: any pin count up to MaxPins for the next open roll is accepted,
// and one more is rejected whenever that exceeds the rack.
func TestPropertyMaxPinsMatchesValidation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := drawPlayer(rt)
		ref, ok := scoring.NextOpenRoll(p)
		if !ok {
			return
		}
		limit := scoring.MaxPins(p, ref.FrameIndex, ref.Slot)
		pins := rapid.IntRange(0, limit).Draw(rt, "pins")
		assert.NoError(rt, scoring.ValidateRoll(p, ref.FrameIndex, ref.Slot, pins))
		if limit < scoring.MaxPinCount {
			assert.ErrorIs(rt, scoring.ValidateRoll(p, ref.FrameIndex, ref.Slot, limit+1), scoring.ErrInvalidRoll)
		}
	})
}
