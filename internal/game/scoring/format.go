package scoring

import (
	"strconv"
	"strings"
)

// Scoresheet marks.
const (
	MarkStrike = "X"
	MarkSpare  = "/"
	MarkGutter = "-"
)

// FormatRoll renders a single roll for a scoresheet: "" when unset, "X" for
// ten pins, "-" for a gutter ball, otherwise the pin count.
func FormatRoll(r Roll) string {
	switch {
	case !r.Set:
		return ""
	case r.Pins == MaxPinCount:
		return MarkStrike
	case r.Pins == 0:
		return MarkGutter
	}
	return strconv.Itoa(r.Pins)
}

// FormatFrame renders a frame's marks separated by single spaces, e.g. "X",
// "7 /", "9 -" or, in the tenth frame, "X 7 /".
//
// Postcondition: returns "" when the first roll is unset; at most one token
// outside the tenth frame for a strike, two otherwise, three in the tenth.
func FormatFrame(f Frame, isLastFrame bool) string {
	if !f.Roll1.Set {
		return ""
	}

	marks := make([]string, 0, 3)
	if f.Roll1.IsStrike() {
		marks = append(marks, MarkStrike)
		if !isLastFrame {
			return MarkStrike
		}
		if f.Roll2.Set {
			marks = append(marks, FormatRoll(f.Roll2))
		}
		if f.Roll3.Set {
			if f.Roll2.Set && !f.Roll2.IsStrike() && f.Roll2.Pins+f.Roll3.Pins == MaxPinCount {
				marks = append(marks, MarkSpare)
			} else {
				marks = append(marks, FormatRoll(f.Roll3))
			}
		}
		return strings.Join(marks, " ")
	}

	marks = append(marks, FormatRoll(f.Roll1))
	spare := isSpare(f.Roll1, f.Roll2)
	if f.Roll2.Set {
		if spare {
			marks = append(marks, MarkSpare)
		} else {
			marks = append(marks, FormatRoll(f.Roll2))
		}
	}
	if isLastFrame && spare && f.Roll3.Set {
		marks = append(marks, FormatRoll(f.Roll3))
	}
	return strings.Join(marks, " ")
}

// FormatScore renders a running score, or "" while it is incomplete.
func FormatScore(s Score) string {
	if !s.Valid {
		return ""
	}
	return strconv.Itoa(s.Total)
}
