package scoring

// Frame is one of the ten scoring units of a player's game.
//
// Invariant: Roll1 unset implies Roll2, Roll3 and Score unset.
// Invariant: IsStrike == Roll1.IsStrike();
// IsSpare == !IsStrike && Roll2.Set && Roll1.Pins+Roll2.Pins == 10.
type Frame struct {
	// Number is the one-based frame number.
	Number   int   `json:"frameNumber"`
	Roll1    Roll  `json:"roll1"`
	Roll2    Roll  `json:"roll2"`
	Roll3    Roll  `json:"roll3"`
	IsStrike bool  `json:"isStrike"`
	IsSpare  bool  `json:"isSpare"`
	Score    Score `json:"score"`
}

// Roll returns the roll held in slot. An invalid slot yields an unset roll.
func (f Frame) Roll(slot RollSlot) Roll {
	switch slot {
	case SlotFirst:
		return f.Roll1
	case SlotSecond:
		return f.Roll2
	case SlotThird:
		return f.Roll3
	}
	return Roll{}
}

// withRoll returns a copy of f with slot set to r and the strike and spare
// flags re-derived.
func (f Frame) withRoll(slot RollSlot, r Roll) Frame {
	switch slot {
	case SlotFirst:
		f.Roll1 = r
	case SlotSecond:
		f.Roll2 = r
	case SlotThird:
		f.Roll3 = r
	}
	return f.derive()
}

func (f Frame) derive() Frame {
	f.IsStrike = f.Roll1.IsStrike()
	f.IsSpare = isSpare(f.Roll1, f.Roll2)
	return f
}

func isSpare(r1, r2 Roll) bool {
	if !r1.Set || !r2.Set || r1.IsStrike() {
		return false
	}
	return r1.Pins+r2.Pins == MaxPinCount
}

// Player is one bowler's scorecard.
//
// Invariant: TotalScore equals the running score of the tenth frame once it
// is resolved, and 0 until then.
type Player struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Frames     [FrameCount]Frame `json:"frames"`
	TotalScore int               `json:"totalScore"`
}

// NewPlayer returns a player with ten empty, numbered frames.
//
// Postcondition: every frame has Number == index+1 and no rolls.
func NewPlayer(id, name string) Player {
	p := Player{ID: id, Name: name}
	for i := range p.Frames {
		p.Frames[i].Number = i + 1
	}
	return p
}
