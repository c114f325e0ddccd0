// Package scoring derives ten-pin bowling frame scores, running totals and
// the next roll to be bowled from a player's raw rolls.
//
// The scoring functions are pure: inputs are values, outputs are new
// values, and nothing is mutated in place.
package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// FrameCount is the number of frames in a game.
	FrameCount = 10
	// LastFrame is the zero-based index of the tenth frame.
	LastFrame = FrameCount - 1
	// MaxPinCount is the number of pins standing at the start of a frame.
	MaxPinCount = 10
)

var jsonNull = []byte("null")

// Roll is a single delivery's pin count. The zero value is an unset roll.
//
// Invariant: Pins is meaningful only when Set is true.
type Roll struct {
	Pins int
	Set  bool
}

// Pins returns a set Roll holding n pins.
//
// Postcondition: the returned Roll has Set == true and Pins == n.
func Pins(n int) Roll {
	return Roll{Pins: n, Set: true}
}

// IsStrike reports whether r knocked down all ten pins.
func (r Roll) IsStrike() bool {
	return r.Set && r.Pins == MaxPinCount
}

// Value returns the pin count and whether the roll has been bowled.
func (r Roll) Value() (int, bool) {
	return r.Pins, r.Set
}

// MarshalJSON encodes an unset roll as null and a set roll as its pin count.
func (r Roll) MarshalJSON() ([]byte, error) {
	if !r.Set {
		return jsonNull, nil
	}
	return []byte(strconv.Itoa(r.Pins)), nil
}

// UnmarshalJSON accepts null or an integer pin count.
func (r *Roll) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*r = Roll{}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("scoring: decoding roll: %w", err)
	}
	*r = Pins(n)
	return nil
}

// Score is a cumulative frame score. The zero value is an incomplete score.
type Score struct {
	Total int
	Valid bool
}

// Scored returns a complete Score holding total.
func Scored(total int) Score {
	return Score{Total: total, Valid: true}
}

// Value returns the running total and whether it could be computed.
func (s Score) Value() (int, bool) {
	return s.Total, s.Valid
}

// MarshalJSON encodes an incomplete score as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return jsonNull, nil
	}
	return []byte(strconv.Itoa(s.Total)), nil
}

// UnmarshalJSON accepts null or an integer total.
func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*s = Score{}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("scoring: decoding score: %w", err)
	}
	*s = Scored(n)
	return nil
}

// RollSlot identifies one of the up to three deliveries within a frame.
type RollSlot int

// Roll slots. SlotThird exists only in the tenth frame.
const (
	SlotFirst  RollSlot = 1
	SlotSecond RollSlot = 2
	SlotThird  RollSlot = 3
)

// Valid reports whether s names an existing slot.
func (s RollSlot) Valid() bool {
	return s >= SlotFirst && s <= SlotThird
}

// RollRef addresses a single roll slot on a scorecard.
type RollRef struct {
	// FrameIndex is zero-based.
	FrameIndex int
	Slot       RollSlot
}

// String renders the reference with a one-based frame number, e.g. "frame 10 roll 3".
func (r RollRef) String() string {
	return fmt.Sprintf("frame %d roll %d", r.FrameIndex+1, r.Slot)
}
