package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the distsim banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"      _ _     _       _           ", "#818cf8"},
		{"   __| (_)___| |_ ___(_)_ __ ___  ", "#a78bfa"},
		{"  / _` | / __| __/ __| | '_ ` _ \\ ", "#c084fc"},
		{" | (_| | \\__ \\ |_\\__ \\ | | | | | |", "#e879f9"},
		{"  \\__,_|_|___/\\__|___/_|_| |_| |_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
