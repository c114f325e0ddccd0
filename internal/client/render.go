package client

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
)

// RenderGame writes a game as a scoresheet: one row of marks and one row of
// running scores per player.
func RenderGame(w io.Writer, g scorecard.Game) error {
	status := "active"
	if !g.IsActive {
		status = "finished"
	}
	if _, err := fmt.Fprintf(w, "%s @ %s  %s  (%s)\n\n", g.Name, g.Location, g.Date.Format("2006-01-02 15:04"), status); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight|tabwriter.Debug)
	header := make([]string, 0, scoring.FrameCount+2)
	header = append(header, "")
	for i := 1; i <= scoring.FrameCount; i++ {
		header = append(header, strconv.Itoa(i))
	}
	header = append(header, "total")
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, p := range g.Players {
		marks := []string{p.Name}
		scores := []string{""}
		running := scoring.RunningScores(p)
		for i, f := range p.Frames {
			marks = append(marks, scoring.FormatFrame(f, i == scoring.LastFrame))
			scores = append(scores, scoring.FormatScore(running[i]))
		}
		total := ""
		if scoring.Complete(p) {
			total = strconv.Itoa(p.TotalScore)
		}
		marks = append(marks, total)
		scores = append(scores, "")
		fmt.Fprintln(tw, strings.Join(marks, "\t")+"\t")
		fmt.Fprintln(tw, strings.Join(scores, "\t")+"\t")
	}
	return tw.Flush()
}

// RenderStandings writes a leaderboard.
func RenderStandings(w io.Writer, rows []scorecard.Standing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tplayer\tscore\tstatus")
	for _, r := range rows {
		status := "bowling"
		if r.Finished {
			status = "done"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", r.Rank, r.Name, r.Running, status)
	}
	return tw.Flush()
}
