package scoring

import "go.uber.org/zap"

// Scorer applies validated rolls and logs each one at debug level with the
// frame, slot, pins, the frame's running score and the player's total.
type Scorer struct {
	logger *zap.Logger
}

// NewLoggedScorer creates a Scorer that logs to logger.
//
// Precondition: logger must be non-nil.
func NewLoggedScorer(logger *zap.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// Apply validates and applies the roll, logging the outcome.
//
// Postcondition: same as the package-level Apply; rejected rolls are logged
// at debug level with the rejection reason.
func (s *Scorer) Apply(p Player, frameIndex int, slot RollSlot, pins int) (Player, error) {
	next, err := Apply(p, frameIndex, slot, pins)
	if err != nil {
		s.logger.Debug("roll rejected",
			zap.String("player_id", p.ID),
			zap.Int("frame", frameIndex+1),
			zap.Int("roll", int(slot)),
			zap.Int("pins", pins),
			zap.Error(err),
		)
		return Player{}, err
	}

	fields := []zap.Field{
		zap.String("player_id", p.ID),
		zap.Int("frame", frameIndex+1),
		zap.Int("roll", int(slot)),
		zap.Int("pins", pins),
		zap.String("marks", FormatFrame(next.Frames[frameIndex], frameIndex == LastFrame)),
		zap.Int("total", next.TotalScore),
	}
	if running, ok := next.Frames[frameIndex].Score.Value(); ok {
		fields = append(fields, zap.Int("running", running))
	}
	if ref, ok := NextOpenRoll(next); ok {
		fields = append(fields, zap.Stringer("next", ref))
	} else {
		fields = append(fields, zap.Bool("complete", true))
	}
	s.logger.Debug("roll applied", fields...)
	return next, nil
}
