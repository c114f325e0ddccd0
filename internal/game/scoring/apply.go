package scoring

import "fmt"

// ApplyRoll returns a copy of p with pins written to the given slot and every
// derived field recomputed.
//
// ApplyRoll does not validate its input. Pin counts outside [0, 10], pin sums
// above ten and out-of-turn writes are stored as given; use Apply or
// ValidateRoll to reject them. A frame index outside [0, 9], an unknown slot,
// or SlotThird before the tenth frame returns p as it is.
//
// Postcondition: p is not modified. When the roll was written, the returned
// player's flags, running scores and TotalScore are consistent with its rolls.
func ApplyRoll(p Player, frameIndex int, slot RollSlot, pins int) Player {
	if frameIndex < 0 || frameIndex >= FrameCount || !slot.Valid() {
		return p
	}
	if slot == SlotThird && frameIndex != LastFrame {
		return p
	}
	p.Frames[frameIndex] = p.Frames[frameIndex].withRoll(slot, Pins(pins)).derive()
	return rescore(p)
}

// Recompute re-derives every frame's strike and spare flags, running score and
// the player's total from the raw rolls alone.
//
// Postcondition: the rolls of the returned player equal those of p.
func Recompute(p Player) Player {
	for i := range p.Frames {
		p.Frames[i].Number = i + 1
		p.Frames[i] = p.Frames[i].derive()
	}
	return rescore(p)
}

func rescore(p Player) Player {
	running := RunningScores(p)
	for i := range p.Frames {
		p.Frames[i].Score = running[i]
	}
	p.TotalScore = TotalScore(p)
	return p
}

// NextOpenRoll returns the first unbowled roll in standard turn order: the
// first roll of a frame, the second unless the frame before the tenth was a
// strike, and the tenth frame's third roll after a strike or spare.
//
// The result is advisory; ApplyRoll does not enforce it.
// Postcondition: returns false exactly when every required roll is set.
func NextOpenRoll(p Player) (RollRef, bool) {
	for i, f := range p.Frames {
		if !f.Roll1.Set {
			return RollRef{FrameIndex: i, Slot: SlotFirst}, true
		}
		if f.IsStrike && i < LastFrame {
			continue
		}
		if !f.Roll2.Set {
			return RollRef{FrameIndex: i, Slot: SlotSecond}, true
		}
		if i == LastFrame && (f.IsStrike || f.IsSpare) && !f.Roll3.Set {
			return RollRef{FrameIndex: i, Slot: SlotThird}, true
		}
	}
	return RollRef{}, false
}

// Complete reports whether the player has bowled every required roll.
func Complete(p Player) bool {
	_, open := NextOpenRoll(p)
	return !open
}

// Replay builds a scorecard by bowling pins in turn order, validating every
// roll on the way.
//
// Postcondition: returns the resulting player, or an error naming the first
// invalid roll or the first roll left over after the game is complete.
func Replay(id, name string, pins []int) (Player, error) {
	p := NewPlayer(id, name)
	for i, n := range pins {
		ref, ok := NextOpenRoll(p)
		if !ok {
			return Player{}, fmt.Errorf("scoring: roll %d (%d pins) bowled after the game is complete", i+1, n)
		}
		next, err := Apply(p, ref.FrameIndex, ref.Slot, n)
		if err != nil {
			return Player{}, fmt.Errorf("scoring: replaying roll %d: %w", i+1, err)
		}
		p = next
	}
	return p, nil
}
