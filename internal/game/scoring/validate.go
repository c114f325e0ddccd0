package scoring

import (
	"errors"
	"fmt"
)

// ErrInvalidRoll is matched by every error returned from ValidateRoll.
var ErrInvalidRoll = errors.New("invalid roll")

// InvalidRollError describes a roll rejected by ValidateRoll.
type InvalidRollError struct {
	FrameIndex int
	Slot       RollSlot
	Pins       int
	Reason     string
}

// Error implements error.
func (e *InvalidRollError) Error() string {
	return fmt.Sprintf("invalid roll: frame %d roll %d (%d pins): %s", e.FrameIndex+1, e.Slot, e.Pins, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRoll) hold for every InvalidRollError.
func (e *InvalidRollError) Is(target error) bool {
	return target == ErrInvalidRoll
}

// MaxPins returns the most pins that may be recorded in slot given the rolls
// already in the frame: ten on a fresh rack, otherwise the pins left standing
// after a non-strike first roll. Bonus rolls in the tenth frame are capped only
// at ten.
//
// Precondition: frameIndex and slot address an existing slot.
func MaxPins(p Player, frameIndex int, slot RollSlot) int {
	if frameIndex < 0 || frameIndex >= FrameCount {
		return 0
	}
	f := p.Frames[frameIndex]
	if slot == SlotSecond && f.Roll1.Set && !f.Roll1.IsStrike() {
		return MaxPinCount - f.Roll1.Pins
	}
	return MaxPinCount
}

// ValidateRoll reports whether writing pins to the given slot leaves the frame
// in a state a real game can reach.
//
// Overwriting an already-set slot is accepted when the resulting frame is
// still valid, so re-applying the same roll always validates. Global turn
// order across frames is not checked.
//
// Postcondition: returns nil or an *InvalidRollError matching ErrInvalidRoll.
func ValidateRoll(p Player, frameIndex int, slot RollSlot, pins int) error {
	reject := func(format string, args ...any) error {
		return &InvalidRollError{FrameIndex: frameIndex, Slot: slot, Pins: pins, Reason: fmt.Sprintf(format, args...)}
	}

	if frameIndex < 0 || frameIndex >= FrameCount {
		return reject("frame must be between 1 and %d", FrameCount)
	}
	if !slot.Valid() {
		return reject("roll must be 1, 2 or 3")
	}
	if pins < 0 || pins > MaxPinCount {
		return reject("pins must be between 0 and %d", MaxPinCount)
	}

	f := p.Frames[frameIndex].withRoll(slot, Pins(pins))
	if f.Roll2.Set && !f.Roll1.Set {
		return reject("second roll bowled before the first")
	}
	if f.Roll3.Set && !f.Roll2.Set {
		return reject("third roll bowled before the second")
	}

	if frameIndex < LastFrame {
		if f.Roll3.Set {
			return reject("only the tenth frame has a third roll")
		}
		if f.IsStrike && f.Roll2.Set {
			return reject("a strike ends the frame")
		}
		if f.Roll2.Set && f.Roll1.Pins+f.Roll2.Pins > MaxPinCount {
			return reject("only %d pins left standing", MaxPinCount-f.Roll1.Pins)
		}
		return nil
	}

	if !f.IsStrike && f.Roll2.Set && f.Roll1.Pins+f.Roll2.Pins > MaxPinCount {
		return reject("only %d pins left standing", MaxPinCount-f.Roll1.Pins)
	}
	if f.Roll3.Set && !f.IsStrike && !f.IsSpare {
		return reject("the third roll needs a strike or spare in the tenth frame")
	}
	return nil
}

// Apply validates the roll and, when valid, returns ApplyRoll's result.
//
// Postcondition: on error the returned player is the zero value and p is
// unchanged.
func Apply(p Player, frameIndex int, slot RollSlot, pins int) (Player, error) {
	if err := ValidateRoll(p, frameIndex, slot, pins); err != nil {
		return Player{}, err
	}
	return ApplyRoll(p, frameIndex, slot, pins), nil
}
