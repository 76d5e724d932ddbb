package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/droidvault/droidvault/internal/backup"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func renderStatus(s backup.CopyStatus) string {
	switch s {
	case backup.StatusCopied:
		return green.Render(string(s))
	case backup.StatusSkipped:
		return gray.Render(string(s))
	case backup.StatusFailed:
		return red.Render(string(s))
	default:
		return string(s)
	}
}

func printProgress(w io.Writer, p backup.Progress) {
	fmt.Fprintf(w, "[%d/%d] %s %s\n", p.Done, p.Total, renderStatus(p.Status), p.Path)
}
