package overlay

import (
	"strconv"

	"github.com/gdamore/tcell/v2"
)

// ---- Fog Parameters

const (
	// MinDensity is the thinnest fog.
	MinDensity = 1

	// MaxDensity is the thickest fog.
	MaxDensity = 4

	// DefaultDensity is used when a document does not set one.
	DefaultDensity = 2
)

// fogGlyphs maps density to the glyph filling the screen.
var fogGlyphs = []rune{' ', '░', '▒', '▓', '█'}

// ---- Fog Presets

// Preset is a named fog density.
type Preset string

const (
	PresetMist  Preset = "mist"
	PresetFog   Preset = "fog"
	PresetSmoke Preset = "smoke"
	PresetWall  Preset = "wall"
)

// Presets maps preset names to densities.
var Presets = map[Preset]int{
	PresetMist:  1,
	PresetFog:   2,
	PresetSmoke: 3,
	PresetWall:  4,
}

// FogState tracks the overlay toggles.
type FogState struct {
	// Fog fills the screen with the fog glyph when on.
	Fog bool

	// Dim darkens the fill when on.
	Dim bool

	// Density is the fog thickness (MinDensity to MaxDensity).
	Density int
}

// NewFogState creates the fog state a document starts with.
func NewFogState(doc *Document) *FogState {
	fs := &FogState{Fog: true, Density: DefaultDensity}
	if doc != nil {
		fs.Fog = doc.Fog
		fs.Dim = doc.Dim
		fs.Density = doc.Density
	}
	return fs
}

func (fs *FogState) ToggleFog() { fs.Fog = !fs.Fog }

func (fs *FogState) ToggleDim() { fs.Dim = !fs.Dim }

// Thicker raises the density up to MaxDensity.
func (fs *FogState) Thicker() {
	if fs.Density < MaxDensity {
		fs.Density++
	}
}

// Thinner lowers the density down to MinDensity.
func (fs *FogState) Thinner() {
	if fs.Density > MinDensity {
		fs.Density--
	}
}

// Glyph returns the rune used to fill the screen.
func (fs *FogState) Glyph() rune {
	if !fs.Fog {
		return fogGlyphs[0]
	}
	d := fs.Density
	if d < MinDensity {
		d = MinDensity
	}
	if d > MaxDensity {
		d = MaxDensity
	}
	return fogGlyphs[d]
}

// Style returns the fill style on top of background.
func (fs *FogState) Style(background tcell.Color) tcell.Style {
	st := tcell.StyleDefault.Background(background).Foreground(tcell.ColorSilver)
	if fs.Dim {
		st = st.Foreground(tcell.ColorGray).Dim(true)
	}
	return st
}

// Status is the one-line summary shown under the title.
func (fs *FogState) Status() string {
	return "fog " + onOff(fs.Fog) + "  dim " + onOff(fs.Dim) + "  density " + strconv.Itoa(fs.Density)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
