package overlay

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"

	"bg-window/internal/window"
)

const helpText = "f fog  d dim  up/down density  1-9 links  m minimize  q quit"

// view is an immutable copy of everything render needs.
type view struct {
	opts   window.Options
	bg     tcell.Color
	fog    FogState
	url    string
	doc    *Document
	dialog *dialog
}

// screenWriter is the subset of tcell.Screen used for rendering.
type screenWriter interface {
	Size() (int, int)
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
}

func render(s screenWriter, v view) {
	width, height := s.Size()
	if width <= 0 || height <= 0 {
		return
	}

	fill := v.fog.Style(v.bg)
	glyph := v.fog.Glyph()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			s.SetContent(x, y, glyph, nil, fill)
		}
	}

	text := tcell.StyleDefault.Background(v.bg).Foreground(tcell.ColorWhite)
	if width < v.opts.MinWidth || height < v.opts.MinHeight {
		msg := fmt.Sprintf("window too small: %dx%d, need %dx%d", width, height, v.opts.MinWidth, v.opts.MinHeight)
		drawCentered(s, height/2, msg, text)
		return
	}

	title := v.opts.Title
	subtitle := ""
	var links []Link
	if v.doc != nil {
		if v.doc.Title != "" {
			title = v.doc.Title
		}
		subtitle = v.doc.Subtitle
		links = v.doc.Links
	} else if v.url != "" {
		subtitle = "failed to load " + v.url
	}

	mid := height / 2
	drawCentered(s, mid-2, title, text.Bold(true))
	if subtitle != "" {
		drawCentered(s, mid, subtitle, text)
	}
	drawCentered(s, mid+2, v.fog.Status(), text)

	for i, l := range links {
		row := height - 2 - len(links) + i
		drawText(s, 2, row, strconv.Itoa(i+1)+"  "+l.Label, text)
	}
	drawCentered(s, height-1, helpText, text.Dim(true))

	if v.dialog != nil {
		drawDialog(s, v.dialog)
	}
}

func drawDialog(s screenWriter, d *dialog) {
	width, height := s.Size()
	w, h := d.size()
	x0 := (width - w) / 2
	y0 := (height - h) / 2
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}

	box := tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			r := ' '
			switch {
			case (y == y0 || y == y0+h-1) && (x == x0 || x == x0+w-1):
				r = '+'
			case y == y0 || y == y0+h-1:
				r = '-'
			case x == x0 || x == x0+w-1:
				r = '|'
			}
			s.SetContent(x, y, r, nil, box)
		}
	}

	drawText(s, x0+2, y0+1, d.title, box.Bold(true))
	for i, l := range d.lines {
		drawText(s, x0+2, y0+3+i, l, box)
	}

	x := x0 + 2
	row := y0 + h - 2
	for i, b := range d.buttons {
		label := "[ " + b + " ]"
		st := box
		if i == d.selected {
			st = st.Reverse(true)
		}
		x = drawText(s, x, row, label, st) + 2
	}
}

func drawCentered(s screenWriter, row int, text string, style tcell.Style) {
	width, _ := s.Size()
	x := (width - len([]rune(text))) / 2
	if x < 0 {
		x = 0
	}
	drawText(s, x, row, text, style)
}

// drawText writes text from column x and returns the column after it.
func drawText(s screenWriter, x, row int, text string, style tcell.Style) int {
	width, height := s.Size()
	if row < 0 || row >= height {
		return x
	}
	for _, r := range text {
		if x >= width {
			break
		}
		s.SetContent(x, row, r, nil, style)
		x++
	}
	return x
}
