package overlay

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// input is a key press reduced to what the overlay reacts to.
type input int

const (
	inputNone input = iota
	inputLeft
	inputRight
	inputUp
	inputDown
	inputEnter
	inputCancel
	inputQuit
	inputFog
	inputDim
	inputMinimize
	inputLink1 // inputLink1 + n selects link n+1
)

func translateKey(ev *tcell.EventKey) input {
	switch ev.Key() {
	case tcell.KeyLeft, tcell.KeyBacktab:
		return inputLeft
	case tcell.KeyRight, tcell.KeyTab:
		return inputRight
	case tcell.KeyUp:
		return inputUp
	case tcell.KeyDown:
		return inputDown
	case tcell.KeyEnter:
		return inputEnter
	case tcell.KeyEscape:
		return inputCancel
	case tcell.KeyCtrlC:
		return inputQuit
	case tcell.KeyRune:
		return translateRune(ev.Rune())
	}
	return inputNone
}

func translateRune(r rune) input {
	switch r {
	case 'q', 'Q':
		return inputQuit
	case 'f', 'F':
		return inputFog
	case 'd', 'D':
		return inputDim
	case 'm', 'M':
		return inputMinimize
	case 'h':
		return inputLeft
	case 'l':
		return inputRight
	}
	if r >= '1' && r <= '9' {
		return inputLink1 + input(r-'1')
	}
	return inputNone
}

// dialog is a modal message box with a row of buttons.
type dialog struct {
	title    string
	lines    []string
	buttons  []string
	selected int
	// cancel is the button chosen by Escape.
	cancel int
}

func newDialog(title, message string, buttons []string, cancel int) *dialog {
	return &dialog{
		title:   title,
		lines:   strings.Split(message, "\n"),
		buttons: buttons,
		cancel:  cancel,
	}
}

// handle applies one input. It returns the chosen button index and true
// once the dialog is answered.
func (d *dialog) handle(in input) (int, bool) {
	switch in {
	case inputLeft:
		d.selected = (d.selected + len(d.buttons) - 1) % len(d.buttons)
	case inputRight:
		d.selected = (d.selected + 1) % len(d.buttons)
	case inputEnter:
		return d.selected, true
	case inputCancel, inputQuit:
		return d.cancel, true
	}
	return 0, false
}

// size returns the box dimensions including the border.
func (d *dialog) size() (int, int) {
	w := len([]rune(d.title)) + 4
	for _, l := range d.lines {
		if n := len([]rune(l)) + 4; n > w {
			w = n
		}
	}
	if n := len([]rune(d.buttonRow())) + 4; n > w {
		w = n
	}
	// border, title, blank, lines, blank, buttons, border
	return w, len(d.lines) + 6
}

func (d *dialog) buttonRow() string {
	parts := make([]string, len(d.buttons))
	for i, b := range d.buttons {
		parts[i] = "[ " + b + " ]"
	}
	return strings.Join(parts, "  ")
}
