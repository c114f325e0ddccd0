package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
)

// ErrTrackerClosed is returned by RecordRoll after Close.
var ErrTrackerClosed = errors.New("tracker closed")

// ErrSyncQueueFull is returned by RecordRoll when QueueSize rolls are already
// waiting for the server. The roll is not applied and may be retried.
var ErrSyncQueueFull = errors.New("sync queue full")

// RollSyncer sends a roll to the server.
type RollSyncer interface {
	RecordRoll(ctx context.Context, gameID, playerID string, frameIndex int, slot scoring.RollSlot, pins int) (RollOutcome, error)
}

// SyncError reports a roll the server did not accept. The roll stays on the
// local scorecard.
type SyncError struct {
	PlayerID string
	Ref      scoring.RollRef
	Pins     int
	Err      error
}

func (e *SyncError) Error() string {
	return "syncing " + e.Ref.String() + ": " + e.Err.Error()
}

func (e *SyncError) Unwrap() error { return e.Err }

// TrackerOptions tune a Tracker.
type TrackerOptions struct {
	// OnSyncError is called from the sync goroutine for every failed roll.
	// It may call Game and RecordRoll but must not wait on Close.
	OnSyncError func(*SyncError)
	// SyncTimeout bounds each server call. Zero means 10s.
	SyncTimeout time.Duration
	// QueueSize is the number of rolls that may wait for the server. Zero
	// means 64.
	QueueSize int
}

type pendingRoll struct {
	playerID string
	ref      scoring.RollRef
	pins     int
}

// Tracker keeps a local copy of a game for a scorekeeper. Rolls are scored
// locally at once and sent to the server in the order they were bowled by
// a single background goroutine.
//
// A roll the server rejects is reported through OnSyncError and left on the
// local scorecard; the local and server cards can then disagree until the
// game is reloaded.
type Tracker struct {
	gameID string
	syncer RollSyncer
	logger *zap.Logger
	opts   TrackerOptions

	mu     sync.Mutex
	game   scorecard.Game
	closed bool

	queue chan pendingRoll
	done  chan struct{}
}

// NewTracker starts tracking game.
//
// Precondition: syncer and logger must be non-nil.
// Postcondition: the sync goroutine runs until Close.
func NewTracker(game scorecard.Game, syncer RollSyncer, logger *zap.Logger, opts TrackerOptions) *Tracker {
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 10 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	t := &Tracker{
		gameID: game.ID,
		syncer: syncer,
		logger: logger,
		opts:   opts,
		game:   game.Clone(),
		queue:  make(chan pendingRoll, opts.QueueSize),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

// Game returns a copy of the local game.
func (t *Tracker) Game() scorecard.Game {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.game.Clone()
}

// RecordRoll scores a roll locally and queues it for the server. It never
// waits on the server.
//
// Postcondition: on success the local scorecard includes the roll before
// the server has seen it. Locally invalid rolls return the scoring error,
// and a full queue returns ErrSyncQueueFull; in both cases the roll is
// neither applied nor queued.
func (t *Tracker) RecordRoll(playerID string, frameIndex int, slot scoring.RollSlot, pins int) (scoring.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return scoring.Player{}, ErrTrackerClosed
	}
	next, player, err := t.game.RecordRoll(playerID, frameIndex, slot, pins)
	if err != nil {
		return scoring.Player{}, err
	}
	// Only RecordRoll sends, always under mu, so rolls enter the queue in
	// bowling order.
	roll := pendingRoll{
		playerID: playerID,
		ref:      scoring.RollRef{FrameIndex: frameIndex, Slot: slot},
		pins:     pins,
	}
	select {
	case t.queue <- roll:
	default:
		t.logger.Debug("sync queue full",
			zap.String("game_id", t.gameID),
			zap.Int("queued", len(t.queue)),
		)
		return scoring.Player{}, ErrSyncQueueFull
	}
	t.game = next
	return player, nil
}

// Close stops accepting rolls and waits until every queued roll was sent or
// ctx is done.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) run() {
	defer close(t.done)
	gameID := t.gameID
	for roll := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), t.opts.SyncTimeout)
		_, err := t.syncer.RecordRoll(ctx, gameID, roll.playerID, roll.ref.FrameIndex, roll.ref.Slot, roll.pins)
		cancel()
		if err == nil {
			continue
		}
		syncErr := &SyncError{PlayerID: roll.playerID, Ref: roll.ref, Pins: roll.pins, Err: err}
		t.logger.Warn("roll not synced",
			zap.String("game_id", gameID),
			zap.String("player_id", roll.playerID),
			zap.Stringer("roll", roll.ref),
			zap.Int("pins", roll.pins),
			zap.Error(err),
		)
		if t.opts.OnSyncError != nil {
			t.opts.OnSyncError(syncErr)
		}
	}
}
