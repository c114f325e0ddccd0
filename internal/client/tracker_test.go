package client_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/lanes/internal/client"
	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
)

type sentRoll struct {
	playerID string
	ref      scoring.RollRef
	pins     int
}

// recordingSyncer remembers every roll and fails those listed in failOn.
type recordingSyncer struct {
	mu     sync.Mutex
	sent   []sentRoll
	failOn map[scoring.RollRef]error
}

func (s *recordingSyncer) RecordRoll(_ context.Context, _ string, playerID string, frameIndex int, slot scoring.RollSlot, pins int) (client.RollOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := scoring.RollRef{FrameIndex: frameIndex, Slot: slot}
	s.sent = append(s.sent, sentRoll{playerID: playerID, ref: ref, pins: pins})
	if err := s.failOn[ref]; err != nil {
		return client.RollOutcome{}, err
	}
	return client.RollOutcome{}, nil
}

func (s *recordingSyncer) rolls() []sentRoll {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentRoll(nil), s.sent...)
}

func trackedGame(t require.TestingT) scorecard.Game {
	g, err := scorecard.New(scorecard.NewGameParams{Name: "Practice", PlayerNames: []string{"Ana"}}, time.Now())
	require.NoError(t, err)
	return g
}

func closeTracker(t *testing.T, tr *client.Tracker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Close(ctx))
}

func TestTracker_AppliesLocallyAndSyncsInOrder(t *testing.T) {
	g := trackedGame(t)
	ana := g.Players[0].ID
	syncer := &recordingSyncer{}
	tr := client.NewTracker(g, syncer, zaptest.NewLogger(t), client.TrackerOptions{})

	p, err := tr.RecordRoll(ana, 0, scoring.SlotFirst, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Frames[0].Roll1.Pins)
	p, err = tr.RecordRoll(ana, 0, scoring.SlotSecond, 3)
	require.NoError(t, err)
	assert.True(t, p.Frames[0].IsSpare)

	closeTracker(t, tr)
	sent := syncer.rolls()
	require.Len(t, sent, 2)
	assert.Equal(t, scoring.SlotFirst, sent[0].ref.Slot)
	assert.Equal(t, scoring.SlotSecond, sent[1].ref.Slot)
	assert.Equal(t, 3, sent[1].pins)
}

func TestTracker_RejectsLocallyInvalidRoll(t *testing.T) {
	g := trackedGame(t)
	syncer := &recordingSyncer{}
	tr := client.NewTracker(g, syncer, zaptest.NewLogger(t), client.TrackerOptions{})

	_, err := tr.RecordRoll(g.Players[0].ID, 0, scoring.SlotFirst, 11)
	assert.ErrorIs(t, err, scoring.ErrInvalidRoll)

	closeTracker(t, tr)
	assert.Empty(t, syncer.rolls(), "invalid rolls are never sent")
}

func TestTracker_FailedSyncKeepsLocalRoll(t *testing.T) {
	g := trackedGame(t)
	ana := g.Players[0].ID
	boom := errors.New("connection reset")
	syncer := &recordingSyncer{failOn: map[scoring.RollRef]error{
		{FrameIndex: 0, Slot: scoring.SlotFirst}: boom,
	}}

	var mu sync.Mutex
	var reported []*client.SyncError
	tr := client.NewTracker(g, syncer, zaptest.NewLogger(t), client.TrackerOptions{
		OnSyncError: func(e *client.SyncError) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, e)
		},
	})

	_, err := tr.RecordRoll(ana, 0, scoring.SlotFirst, 10)
	require.NoError(t, err)
	closeTracker(t, tr)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], boom)
	assert.Equal(t, ana, reported[0].PlayerID)
	assert.Contains(t, reported[0].Error(), "frame 1 roll 1")
	assert.True(t, tr.Game().Players[0].Frames[0].IsStrike, "local roll is not rolled back")
}

func TestTracker_ClosedRejectsRolls(t *testing.T) {
	g := trackedGame(t)
	tr := client.NewTracker(g, &recordingSyncer{}, zaptest.NewLogger(t), client.TrackerOptions{})
	closeTracker(t, tr)
	closeTracker(t, tr)

	_, err := tr.RecordRoll(g.Players[0].ID, 0, scoring.SlotFirst, 1)
	assert.ErrorIs(t, err, client.ErrTrackerClosed)
}

func TestTracker_GameIsACopy(t *testing.T) {
	g := trackedGame(t)
	tr := client.NewTracker(g, &recordingSyncer{}, zaptest.NewLogger(t), client.TrackerOptions{})
	defer closeTracker(t, tr)

	snapshot := tr.Game()
	snapshot.Players[0].Name = "changed"
	assert.Equal(t, "Ana", tr.Game().Players[0].Name)
}

// Property: every locally accepted roll reaches the syncer exactly once, in
// order, even when a one-slot queue pushes back.
func TestPropertyTrackerSyncsEveryAcceptedRoll(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := trackedGame(rt)
		ana := g.Players[0].ID
		syncer := &recordingSyncer{}
		tr := client.NewTracker(g, syncer, zap.NewNop(), client.TrackerOptions{QueueSize: 1})

		var accepted []int
		n := rapid.IntRange(0, 21).Draw(rt, "rolls")
		for i := 0; i < n; i++ {
			local := tr.Game().Players[0]
			ref, open := scoring.NextOpenRoll(local)
			if !open {
				break
			}
			pins := rapid.IntRange(0, scoring.MaxPins(local, ref.FrameIndex, ref.Slot)).Draw(rt, "pins")
			_, err := tr.RecordRoll(ana, ref.FrameIndex, ref.Slot, pins)
			for errors.Is(err, client.ErrSyncQueueFull) {
				time.Sleep(time.Millisecond)
				_, err = tr.RecordRoll(ana, ref.FrameIndex, ref.Slot, pins)
			}
			require.NoError(rt, err)
			accepted = append(accepted, pins)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(rt, tr.Close(ctx))

		sent := syncer.rolls()
		require.Len(rt, sent, len(accepted))
		for i := range sent {
			assert.Equal(rt, accepted[i], sent[i].pins)
		}
	})
}

// gatedSyncer holds every call until release is closed, then fails it with err
// when err is set.
type gatedSyncer struct {
	entered chan struct{}
	release chan struct{}
	delay   time.Duration
	err     error

	mu    sync.Mutex
	calls int
}

func newGatedSyncer() *gatedSyncer {
	return &gatedSyncer{entered: make(chan struct{}, 64), release: make(chan struct{})}
}

func (s *gatedSyncer) RecordRoll(ctx context.Context, _ string, _ string, _ int, _ scoring.RollSlot, _ int) (client.RollOutcome, error) {
	s.entered <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return client.RollOutcome{}, ctx.Err()
	}
	time.Sleep(s.delay)
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return client.RollOutcome{}, s.err
}

func (s *gatedSyncer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// within fails the test if fn has not returned after d.
func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not return within %s", what, d)
	}
}

func TestTracker_FullQueueRejectsWithoutBlocking(t *testing.T) {
	g := trackedGame(t)
	ana := g.Players[0].ID
	syncer := newGatedSyncer()
	tr := client.NewTracker(g, syncer, zaptest.NewLogger(t), client.TrackerOptions{QueueSize: 1})

	_, err := tr.RecordRoll(ana, 0, scoring.SlotFirst, 10)
	require.NoError(t, err)
	<-syncer.entered // first roll is in flight, the queue is empty again

	_, err = tr.RecordRoll(ana, 1, scoring.SlotFirst, 10)
	require.NoError(t, err)

	within(t, 2*time.Second, "RecordRoll on a full queue", func() {
		_, err = tr.RecordRoll(ana, 2, scoring.SlotFirst, 10)
	})
	assert.ErrorIs(t, err, client.ErrSyncQueueFull)

	within(t, 2*time.Second, "Game on a full queue", func() {
		local := tr.Game().Players[0]
		assert.True(t, local.Frames[1].IsStrike)
		assert.False(t, local.Frames[2].Roll1.Set, "a rejected roll is not applied locally")
	})

	close(syncer.release)
	require.Eventually(t, func() bool {
		_, err := tr.RecordRoll(ana, 2, scoring.SlotFirst, 10)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	closeTracker(t, tr)
	assert.Equal(t, 3, syncer.callCount())
}

func TestTracker_SyncErrorCallbackCanReadGame(t *testing.T) {
	g := trackedGame(t)
	ana := g.Players[0].ID
	syncer := newGatedSyncer()
	syncer.delay = 20 * time.Millisecond
	syncer.err = errors.New("service unavailable")
	close(syncer.release)

	var mu sync.Mutex
	var seen []int
	var tr *client.Tracker
	tr = client.NewTracker(g, syncer, zaptest.NewLogger(t), client.TrackerOptions{
		QueueSize: 1,
		OnSyncError: func(e *client.SyncError) {
			strikes := 0
			for _, f := range tr.Game().Players[0].Frames {
				if f.IsStrike {
					strikes++
				}
			}
			mu.Lock()
			seen = append(seen, strikes)
			mu.Unlock()
		},
	})

	const rolls = 6
	within(t, 5*time.Second, "recording strikes against a failing server", func() {
		for frame := 0; frame < rolls; frame++ {
			for {
				_, err := tr.RecordRoll(ana, frame, scoring.SlotFirst, 10)
				if err == nil {
					break
				}
				if !errors.Is(err, client.ErrSyncQueueFull) {
					t.Errorf("frame %d: %v", frame+1, err)
					return
				}
				time.Sleep(5 * time.Millisecond)
			}
		}
	})

	var closeErr error
	within(t, 5*time.Second, "Close", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		closeErr = tr.Close(ctx)
	})
	require.NoError(t, closeErr)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, rolls, "every failed roll is reported")
	for _, strikes := range seen {
		assert.GreaterOrEqual(t, strikes, 1)
	}
	local := tr.Game().Players[0]
	for frame := 0; frame < rolls; frame++ {
		assert.True(t, local.Frames[frame].IsStrike, "frame %d stays on the local card", frame+1)
	}
}
