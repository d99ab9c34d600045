// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles is the color palette for interactive output. All colors use
// ANSI 16-color codes so the client stays legible on limited
// terminals; the renderer's profile decides whether they appear at
// all.
type Styles struct {
	// Command tag in response lines, e.g. the "[get]" in "[get] OK".
	Tag lipgloss.Style
	// OK marks an accepted command response.
	OK lipgloss.Style
	// Error marks failures of every class.
	Error lipgloss.Style
	// Info marks informational asides.
	Info lipgloss.Style
	// Muted is dimmed chrome: subscription tags, shutdown notices.
	Muted lipgloss.Style
	// MutedError is the dimmed tag of a terminated subscription.
	MutedError lipgloss.Style
	// Header styles the metadata table header row.
	Header lipgloss.Style
	// Logo styles the startup banner.
	Logo lipgloss.Style
	// PromptReady and PromptOffline color the two prompt states.
	PromptReady   lipgloss.Style
	PromptOffline lipgloss.Style
}

// ColorMode selects how much color the renderer may use.
type ColorMode string

// Color modes accepted by the --color flag and config file.
const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// NewRenderer builds a lipgloss renderer for w honoring the color
// mode. Auto detects a terminal on stdout and respects NO_COLOR via
// termenv's environment probe; never forces the ASCII profile.
func NewRenderer(w io.Writer, mode ColorMode) *lipgloss.Renderer {
	switch mode {
	case ColorAlways:
		return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI256))
	case ColorNever:
		return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
	default:
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.EnvColorProfile()))
		}
		return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
	}
}

// NewStyles derives the palette from a renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Tag:           r.NewStyle().Foreground(lipgloss.Color("6")),
		OK:            r.NewStyle().Foreground(lipgloss.Color("2")),
		Error:         r.NewStyle().Foreground(lipgloss.Color("1")),
		Info:          r.NewStyle().Foreground(lipgloss.Color("3")),
		Muted:         r.NewStyle().Foreground(lipgloss.Color("7")).Faint(true),
		MutedError:    r.NewStyle().Foreground(lipgloss.Color("1")).Faint(true),
		Header:        r.NewStyle().Bold(true),
		Logo:          r.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		PromptReady:   r.NewStyle().Foreground(lipgloss.Color("2")),
		PromptOffline: r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}
