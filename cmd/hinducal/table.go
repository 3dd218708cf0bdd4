package main

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// writeTable renders rows as a Markdown table padded to display width, so
// Devanagari and other wide text lines up in a terminal.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	measure := func(row []string) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := runewidth.StringWidth(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(header)
	for _, r := range rows {
		measure(r)
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder
	line := func(row []string, sep bool) {
		sb.WriteString("|")
		for j := range widths {
			sb.WriteString(" ")
			if sep {
				sb.WriteString(strings.Repeat("-", widths[j]))
			} else {
				cell := ""
				if j < len(row) {
					cell = row[j]
				}
				sb.WriteString(runewidth.FillRight(cell, widths[j]))
			}
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	line(header, false)
	line(nil, true)
	for _, r := range rows {
		line(r, false)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
