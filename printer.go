package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/d1nch8g/vocalize/analysis"
	"github.com/d1nch8g/vocalize/session"
)

// printer renders controller snapshots to the terminal.
type printer struct {
	out  io.Writer
	last session.State
}

func newPrinter() *printer {
	return &printer{out: os.Stdout}
}

func (p *printer) print(snap session.Snapshot) {
	prev := p.last
	p.last = snap.State

	switch snap.State {
	case session.Listening:
		if prev != session.Listening {
			fmt.Fprintln(p.out, "Listening... press Enter to stop.")
		}
		fmt.Fprintf(p.out, "\r● %s", formatElapsed(snap.ElapsedSeconds))
	case session.Processing:
		fmt.Fprintf(p.out, "\nAnalyzing %s of speech...\n", formatElapsed(snap.ElapsedSeconds))
	case session.Idle:
		switch prev {
		case session.Processing:
			fmt.Fprint(p.out, formatResult(snap.Result))
		case session.Listening:
			fmt.Fprintln(p.out)
		}
	}
}

func formatElapsed(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func formatResult(r *analysis.Result) string {
	if r == nil {
		return "Analysis failed, no result.\n"
	}

	var b strings.Builder
	transcript := strings.TrimSpace(r.Transcript)
	if transcript == "" {
		transcript = "No speech detected."
	}
	fmt.Fprintf(&b, "Transcript: %s\n", transcript)
	fmt.Fprintf(&b, "Fluency:    %.1f / 5.0\n", r.FluencyScore)
	fmt.Fprintf(&b, "Pace:       %d wpm (%d words)\n", int(math.Round(r.WordsPerMinute)), r.WordCount)
	if r.LongPauses > 0 {
		fmt.Fprintf(&b, "Long pauses: %d\n", r.LongPauses)
	}
	return b.String()
}
