// ABOUTME: Frame and overlay rendering for the terminal
// ABOUTME: Two pixels per cell with half blocks, truecolor via termenv, overlay bars via lipgloss
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"
)

// OverlayRows is the number of terminal rows reserved for the overlay
const OverlayRows = 2

// halfBlock draws the top pixel as foreground and the bottom as background
const halfBlock = "▀"

// Overlay is the text drawn around the video area
type Overlay struct {
	Title    string
	Stream   string
	Position string
	State    string
	Hints    string
}

// View is everything drawn in one iteration. Pixels holds Width*Height RGB
// triples; Height is twice the number of video rows.
type View struct {
	Pixels  []byte
	Width   int
	Height  int
	Overlay Overlay
}

var (
	barStyle   = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// VideoArea returns the pixel grid that fits a terminal of cols x rows
func VideoArea(cols, rows int) (int, int) {
	h := rows - OverlayRows
	if h < 1 {
		h = 1
	}
	if cols < 1 {
		cols = 1
	}
	return cols, h * 2
}

// Render draws v into a cols x rows terminal
func Render(v View, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}

	title := v.Overlay.Title
	if room := cols - lipgloss.Width(v.Overlay.Stream) - 2; lipgloss.Width(title) > room {
		title = truncate.StringWithTail(title, uint(max(room, 0)), "…")
	}

	var b strings.Builder
	b.WriteString(spread(cols, barStyle.Render(v.Overlay.Stream), barStyle.Render(title), ""))

	videoRows := rows - OverlayRows
	for row := 0; row < videoRows; row++ {
		b.WriteByte('\n')
		renderRow(&b, v, row, cols)
	}

	if rows > 1 {
		b.WriteByte('\n')
		right := v.Overlay.State
		if v.Overlay.Hints != "" {
			right += "  " + faintStyle.Render(v.Overlay.Hints)
		}
		b.WriteString(spread(cols, v.Overlay.Position, "", right))
	}
	return b.String()
}

// renderRow writes one terminal row covering pixel rows 2*row and 2*row+1
func renderRow(b *strings.Builder, v View, row, cols int) {
	var lastFg, lastBg string
	for x := 0; x < cols; x++ {
		top, okTop := pixel(v, x, row*2)
		bottom, okBottom := pixel(v, x, row*2+1)
		if !okTop && !okBottom {
			if lastFg != "" || lastBg != "" {
				b.WriteString(termenv.CSI + termenv.ResetSeq + "m")
				lastFg, lastBg = "", ""
			}
			b.WriteByte(' ')
			continue
		}

		fg := top.Sequence(false)
		bg := bottom.Sequence(true)
		if fg != lastFg || bg != lastBg {
			b.WriteString(termenv.CSI + fg + ";" + bg + "m")
			lastFg, lastBg = fg, bg
		}
		b.WriteString(halfBlock)
	}
	if lastFg != "" || lastBg != "" {
		b.WriteString(termenv.CSI + termenv.ResetSeq + "m")
	}
}

// pixel returns the color at x, y or false outside the frame
func pixel(v View, x, y int) (termenv.RGBColor, bool) {
	if x >= v.Width || y >= v.Height {
		return "", false
	}
	i := (y*v.Width + x) * 3
	if i+2 >= len(v.Pixels) {
		return "", false
	}
	return termenv.RGBColor(fmt.Sprintf("#%02x%02x%02x", v.Pixels[i], v.Pixels[i+1], v.Pixels[i+2])), true
}

// spread lays out left, centered and right text on one line of width cells
func spread(width int, left, center, right string) string {
	lw := lipgloss.Width(left)
	rw := lipgloss.Width(right)
	cw := lipgloss.Width(center)

	if center != "" {
		start := (width - cw) / 2
		if start < lw+1 && lw > 0 {
			start = lw + 1
		}
		gapLeft := start - lw
		if gapLeft < 0 {
			gapLeft = 0
		}
		gapRight := width - lw - gapLeft - cw - rw
		if gapRight < 1 && rw > 0 {
			gapRight = 1
		}
		if gapRight < 0 {
			gapRight = 0
		}
		return left + strings.Repeat(" ", gapLeft) + center + strings.Repeat(" ", gapRight) + right
	}

	gap := width - lw - rw
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
