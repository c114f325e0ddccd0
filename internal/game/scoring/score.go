package scoring

// FrameScore returns the points contributed by the frame at frameIndex alone.
// The boolean is false while the rolls needed to resolve a strike or spare
// bonus have not been bowled yet.
//
// Precondition: 0 <= frameIndex < FrameCount; an index outside that range
// reports incomplete.
// Postcondition: p is not modified.
func FrameScore(p Player, frameIndex int) (int, bool) {
	if frameIndex < 0 || frameIndex >= FrameCount {
		return 0, false
	}
	f := p.Frames[frameIndex]
	if !f.Roll1.Set {
		return 0, false
	}

	switch {
	case f.Roll1.IsStrike():
		return strikeScore(p, frameIndex)
	case isSpare(f.Roll1, f.Roll2):
		if frameIndex == LastFrame {
			if !f.Roll3.Set {
				return 0, false
			}
			return MaxPinCount + f.Roll3.Pins, true
		}
		next := p.Frames[frameIndex+1]
		if !next.Roll1.Set {
			return 0, false
		}
		return MaxPinCount + next.Roll1.Pins, true
	}

	if !f.Roll2.Set {
		return 0, false
	}
	return f.Roll1.Pins + f.Roll2.Pins, true
}

// strikeScore resolves a strike frame's two-roll bonus. The bonus rolls come
// from the tenth frame's own bonus slots, the next frame, or the next two
// frames when the next frame is itself a strike before the tenth.
func strikeScore(p Player, frameIndex int) (int, bool) {
	f := p.Frames[frameIndex]
	if frameIndex == LastFrame {
		if !f.Roll2.Set || !f.Roll3.Set {
			return 0, false
		}
		return MaxPinCount + f.Roll2.Pins + f.Roll3.Pins, true
	}

	next := p.Frames[frameIndex+1]
	if !next.Roll1.Set {
		return 0, false
	}
	if next.Roll1.IsStrike() && frameIndex+1 < LastFrame {
		after := p.Frames[frameIndex+2]
		if !after.Roll1.Set {
			return 0, false
		}
		return 2*MaxPinCount + after.Roll1.Pins, true
	}
	if !next.Roll2.Set {
		return 0, false
	}
	return MaxPinCount + next.Roll1.Pins + next.Roll2.Pins, true
}

// RunningScores returns the cumulative score through every frame in a single
// left-to-right pass. Once a frame is unresolved every later entry is
// incomplete as well.
//
// Postcondition: for all i, RunningScores(p)[i].Value() == RunningScore(p, i).
func RunningScores(p Player) [FrameCount]Score {
	var out [FrameCount]Score
	total := 0
	for i := range out {
		points, ok := FrameScore(p, i)
		if !ok {
			break
		}
		total += points
		out[i] = Scored(total)
	}
	return out
}

// RunningScore returns the cumulative score through frameIndex.
//
// Precondition: -1 <= frameIndex < FrameCount. frameIndex -1 yields (0, true).
func RunningScore(p Player, frameIndex int) (int, bool) {
	if frameIndex < 0 {
		return 0, frameIndex == -1
	}
	if frameIndex >= FrameCount {
		return 0, false
	}
	return RunningScores(p)[frameIndex].Value()
}

// TotalScore returns the player's final score, or 0 while any frame is still
// unresolved. An in-progress game reads as 0 rather than as a distinct
// "pending" value.
func TotalScore(p Player) int {
	total, ok := RunningScore(p, LastFrame)
	if !ok {
		return 0
	}
	return total
}
