// Package main provides a terminal scorekeeping client for a lanes server.
//
// Usage:
//
//	scorecard [flags] games
//	scorecard [flags] show <game-id>
//	scorecard [flags] standings <game-id>
//	scorecard [flags] new <name> <location> <player>...
//	scorecard [flags] roll <game-id> <player> <pins>
//	scorecard [flags] play <game-id> <player>
//
// Credentials come from -email/-password or LANES_EMAIL/LANES_PASSWORD.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lanes/internal/client"
	"github.com/cory-johannsen/lanes/internal/config"
	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/observability"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "lanes server URL")
	email := flag.String("email", os.Getenv("LANES_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("LANES_PASSWORD"), "account password")
	verbose := flag.Bool("v", false, "log sync activity")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := observability.NewLogger(config.LoggingConfig{Level: level, Format: "console"})
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*serverURL, nil)
	needsLogin := args[0] == "new" || args[0] == "roll" || args[0] == "play"
	if needsLogin {
		if *email == "" || *password == "" {
			log.Fatalf("%s requires -email and -password", args[0])
		}
		if _, err := c.Login(ctx, *email, *password); err != nil {
			log.Fatalf("logging in: %v", err)
		}
	}

	if err := run(ctx, c, logger, args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, c *client.Client, logger *zap.Logger, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "games":
		games, err := c.ListGames(ctx, false)
		if err != nil {
			return err
		}
		for _, g := range games {
			state := "active"
			if !g.IsActive {
				state = "finished"
			}
			fmt.Printf("%s  %-24s %-20s %s  %d player(s)  %s\n",
				g.ID, g.Name, g.Location, g.Date.Format("2006-01-02"), len(g.Players), state)
		}
		return nil

	case "show":
		if len(rest) != 1 {
			return errors.New("usage: show <game-id>")
		}
		g, err := c.GetGame(ctx, rest[0])
		if err != nil {
			return err
		}
		return client.RenderGame(os.Stdout, g)

	case "standings":
		if len(rest) != 1 {
			return errors.New("usage: standings <game-id>")
		}
		rows, err := c.Standings(ctx, rest[0])
		if err != nil {
			return err
		}
		return client.RenderStandings(os.Stdout, rows)

	case "new":
		if len(rest) < 3 {
			return errors.New("usage: new <name> <location> <player>...")
		}
		g, err := c.CreateGame(ctx, client.NewGame{Name: rest[0], Location: rest[1], Players: rest[2:]})
		if err != nil {
			return err
		}
		fmt.Println(g.ID)
		return nil

	case "roll":
		if len(rest) != 3 {
			return errors.New("usage: roll <game-id> <player> <pins>")
		}
		pins, err := strconv.Atoi(rest[2])
		if err != nil {
			return fmt.Errorf("pins must be a number: %w", err)
		}
		g, err := c.GetGame(ctx, rest[0])
		if err != nil {
			return err
		}
		p, err := findPlayer(g, rest[1])
		if err != nil {
			return err
		}
		ref, open := scoring.NextOpenRoll(p)
		if !open {
			return fmt.Errorf("%s has finished", p.Name)
		}
		out, err := c.RecordRoll(ctx, g.ID, p.ID, ref.FrameIndex, ref.Slot, pins)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s = %s\n", p.Name, ref, scoring.FormatFrame(out.Player.Frames[ref.FrameIndex], ref.FrameIndex == scoring.LastFrame))
		return nil

	case "play":
		if len(rest) != 2 {
			return errors.New("usage: play <game-id> <player>")
		}
		return play(ctx, c, logger, rest[0], rest[1])
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// play reads pin counts from stdin and scores them locally, syncing in the
// background, until the player's card is complete or input ends.
func play(ctx context.Context, c *client.Client, logger *zap.Logger, gameID, who string) error {
	g, err := c.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	p, err := findPlayer(g, who)
	if err != nil {
		return err
	}

	tracker := client.NewTracker(g, c, logger, client.TrackerOptions{
		OnSyncError: func(e *client.SyncError) {
			fmt.Fprintf(os.Stderr, "warning: server did not accept %s (%d pins): %v\n", e.Ref, e.Pins, e.Err)
		},
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := tracker.Close(closeCtx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: some rolls may not have reached the server: %v\n", err)
		}
	}()

	in := bufio.NewScanner(os.Stdin)
	for {
		local, _, _ := tracker.Game().Player(p.ID)
		ref, open := scoring.NextOpenRoll(local)
		if !open {
			fmt.Printf("%s finished with %d\n", local.Name, local.TotalScore)
			return nil
		}
		fmt.Printf("%s, %s (max %d): ", local.Name, ref, scoring.MaxPins(local, ref.FrameIndex, ref.Slot))
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		pins, err := strconv.Atoi(strings.TrimSpace(in.Text()))
		if err != nil {
			fmt.Println("enter a number of pins")
			continue
		}
		updated, err := tracker.RecordRoll(p.ID, ref.FrameIndex, ref.Slot, pins)
		if errors.Is(err, client.ErrSyncQueueFull) {
			fmt.Println("the server is falling behind; enter the roll again in a moment")
			continue
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		running := scoring.RunningScores(updated)
		fmt.Printf("  %s  running %s\n",
			scoring.FormatFrame(updated.Frames[ref.FrameIndex], ref.FrameIndex == scoring.LastFrame),
			latestScore(running))
	}
}

// findPlayer matches a player by ID or, ignoring case, by name.
func findPlayer(g scorecard.Game, who string) (scoring.Player, error) {
	if p, _, ok := g.Player(who); ok {
		return p, nil
	}
	for _, p := range g.Players {
		if strings.EqualFold(p.Name, who) {
			return p, nil
		}
	}
	return scoring.Player{}, fmt.Errorf("no player %q in %s", who, g.Name)
}

func latestScore(running [scoring.FrameCount]scoring.Score) string {
	last := "-"
	for _, s := range running {
		if s.Valid {
			last = scoring.FormatScore(s)
		}
	}
	return last
}
