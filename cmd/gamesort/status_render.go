package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"gamesort/internal/preflight"
)

// checkState is how a preflight result is presented. Optional failures are
// warnings because cached items still reconcile without them.
func checkState(r preflight.Result) (string, text.Colors) {
	switch {
	case r.Passed:
		return "OK", text.Colors{text.FgGreen}
	case r.Optional:
		return "WARN", text.Colors{text.FgYellow}
	default:
		return "ERROR", text.Colors{text.FgRed}
	}
}

func renderStatusReport(out io.Writer, title string, results []preflight.Result, colorize bool) {
	tw := newTableWriter([]column{left("Check"), left("State"), left("Detail")})
	tw.SetTitle(title)
	passed := 0
	for _, r := range results {
		state, colors := checkState(r)
		if r.Passed {
			passed++
		}
		if colorize {
			state = colors.Sprint(state)
		}
		tw.AppendRow(table.Row{r.Name, state, r.Detail})
	}
	fmt.Fprintln(out, tw.Render())
	fmt.Fprintf(out, "%d/%d checks passed\n", passed, len(results))
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
