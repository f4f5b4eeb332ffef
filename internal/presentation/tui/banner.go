package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the chat banner to w, colored when w is a color terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"              _        _ ", "#34d399"},
		{"  _ __  _   _| |_ _ __(_)", "#10b981"},
		{" | '_ \\| | | | __| '__| |", "#059669"},
		{" | | | | |_| | |_| |  | |", "#047857"},
		{" |_| |_|\\__,_|\\__|_|  |_|", "#065f46"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
