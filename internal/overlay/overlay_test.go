package overlay

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bg-window/internal/update"
	"bg-window/internal/window"
)

func TestLoadDocument_Embedded(t *testing.T) {
	doc, warnings, err := loadDocument(Assets(), "file:///index.yml")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotEmpty(t, doc.Title)
	assert.True(t, doc.Fog)
	require.NotEmpty(t, doc.Links)

	for _, l := range doc.Links {
		if window.IsLocal(l.URL) {
			_, _, err := loadDocument(Assets(), l.URL)
			assert.NoError(t, err, "packaged link %s resolves", l.URL)
		}
	}
}

func TestLoadDocument_Failures(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.yml": {Data: []byte("title: [unterminated\n")},
	}

	tests := []struct {
		name     string
		url      string
		wantCode int
	}{
		{"missing file", "file:///nope.yml", ErrCodeFileNotFound},
		{"remote url", "https://example.com/index.yml", ErrCodeInvalidURL},
		{"malformed yaml", "file:///broken.yml", ErrCodeInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := loadDocument(fsys, tt.url)
			require.Error(t, err)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.wantCode, le.Code)
			assert.Equal(t, tt.url, le.URL)
		})
	}
}

func TestLoadDocument_Warnings(t *testing.T) {
	var b strings.Builder
	b.WriteString("title: Busy\ndensity: 9\nlinks:\n  - label: empty\n")
	for i := 0; i < 10; i++ {
		b.WriteString("  - url: https://example.com/\n")
	}
	fsys := fstest.MapFS{"busy.yml": {Data: []byte(b.String())}}

	doc, warnings, err := loadDocument(fsys, "file:///busy.yml")
	require.NoError(t, err)
	assert.Len(t, warnings, 3)
	for _, w := range warnings {
		assert.Equal(t, window.ConsoleWarn, w.Level)
		assert.Equal(t, "file:///busy.yml", w.Source)
	}
	assert.Len(t, doc.Links, maxLinks)
	assert.Equal(t, "https://example.com/", doc.Links[0].Label, "label defaults to url")
	assert.Equal(t, DefaultDensity, doc.Density)
}

func TestLoadDocument_Preset(t *testing.T) {
	fsys := fstest.MapFS{
		"smoke.yml": {Data: []byte("preset: smoke\n")},
		"odd.yml":   {Data: []byte("preset: lava\n")},
	}

	doc, warnings, err := loadDocument(fsys, "file:///smoke.yml")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 3, doc.Density)

	doc, warnings, err = loadDocument(fsys, "file:///odd.yml")
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.Equal(t, DefaultDensity, doc.Density)
}

func TestLoadDocument_FogDefault(t *testing.T) {
	fsys := fstest.MapFS{
		"plain.yml": {Data: []byte("title: Plain\n")},
		"clear.yml": {Data: []byte("title: Clear\nfog: false\n")},
	}

	tests := []struct {
		url     string
		wantFog bool
	}{
		{"file:///plain.yml", true},
		{"file:///clear.yml", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			doc, _, err := loadDocument(fsys, tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFog, doc.Fog)
			assert.Equal(t, tt.wantFog, NewFogState(doc).Glyph() != ' ')
		})
	}
}

func TestFogState(t *testing.T) {
	fs := NewFogState(nil)
	assert.True(t, fs.Fog)
	assert.Equal(t, '▒', fs.Glyph())

	fs.Thicker()
	fs.Thicker()
	fs.Thicker()
	assert.Equal(t, MaxDensity, fs.Density)
	assert.Equal(t, '█', fs.Glyph())

	for i := 0; i < 10; i++ {
		fs.Thinner()
	}
	assert.Equal(t, MinDensity, fs.Density)

	fs.ToggleFog()
	assert.Equal(t, ' ', fs.Glyph())
	fs.ToggleDim()
	assert.Equal(t, "fog off  dim on  density 1", fs.Status())
}

func TestDialog(t *testing.T) {
	t.Run("enter picks the default button", func(t *testing.T) {
		d := newDialog(update.PromptTitle, update.PromptMessage("BG-Window", "2.0.0"), update.PromptButtons, int(update.Later))
		choice, done := d.handle(inputEnter)
		require.True(t, done)
		assert.Equal(t, int(update.RestartNow), choice)
	})

	t.Run("move then enter", func(t *testing.T) {
		d := newDialog("t", "m", update.PromptButtons, int(update.Later))
		_, done := d.handle(inputRight)
		assert.False(t, done)
		choice, done := d.handle(inputEnter)
		require.True(t, done)
		assert.Equal(t, int(update.Later), choice)
	})

	t.Run("selection wraps", func(t *testing.T) {
		d := newDialog("t", "m", update.PromptButtons, int(update.Later))
		d.handle(inputLeft)
		assert.Equal(t, 1, d.selected)
		d.handle(inputRight)
		assert.Equal(t, 0, d.selected)
	})

	t.Run("escape cancels", func(t *testing.T) {
		d := newDialog("t", "m", update.PromptButtons, int(update.Later))
		choice, done := d.handle(inputCancel)
		require.True(t, done)
		assert.Equal(t, int(update.Later), choice)
	})

	t.Run("other keys are ignored", func(t *testing.T) {
		d := newDialog("t", "m", update.PromptButtons, int(update.Later))
		_, done := d.handle(inputFog)
		assert.False(t, done)
	})
}

func TestTranslateRune(t *testing.T) {
	assert.Equal(t, inputQuit, translateRune('q'))
	assert.Equal(t, inputFog, translateRune('f'))
	assert.Equal(t, inputLink1, translateRune('1'))
	assert.Equal(t, inputLink1+8, translateRune('9'))
	assert.Equal(t, inputNone, translateRune('0'))
}

// gridScreen records SetContent calls for render tests.
type gridScreen struct {
	w, h  int
	cells map[[2]int]rune
}

func newGridScreen(w, h int) *gridScreen {
	return &gridScreen{w: w, h: h, cells: map[[2]int]rune{}}
}

func (g *gridScreen) Size() (int, int) { return g.w, g.h }

func (g *gridScreen) SetContent(x, y int, r rune, _ []rune, _ tcell.Style) {
	g.cells[[2]int{x, y}] = r
}

func (g *gridScreen) row(y int) string {
	var b strings.Builder
	for x := 0; x < g.w; x++ {
		b.WriteRune(g.cells[[2]int{x, y}])
	}
	return b.String()
}

func (g *gridScreen) contains(text string) bool {
	for y := 0; y < g.h; y++ {
		if strings.Contains(g.row(y), text) {
			return true
		}
	}
	return false
}

func TestRender(t *testing.T) {
	doc, _, err := loadDocument(Assets(), "file:///index.yml")
	require.NoError(t, err)

	g := newGridScreen(100, 30)
	render(g, view{opts: window.DefaultOptions(), fog: *NewFogState(doc), doc: doc})

	assert.True(t, g.contains(doc.Title))
	assert.True(t, g.contains("1  "+doc.Links[0].Label))
	assert.Equal(t, fogGlyphs[doc.Density], g.cells[[2]int{0, 0}])
}

func TestRender_TooSmall(t *testing.T) {
	g := newGridScreen(40, 10)
	render(g, view{opts: window.DefaultOptions(), fog: *NewFogState(nil)})
	assert.True(t, g.contains("window too small"))
}

func TestRender_Dialog(t *testing.T) {
	d := newDialog(update.PromptTitle, update.PromptMessage("BG-Window", "2.0.0"), update.PromptButtons, int(update.Later))
	g := newGridScreen(100, 30)
	render(g, view{opts: window.DefaultOptions(), fog: *NewFogState(nil), dialog: d})

	assert.True(t, g.contains("Version 2.0.0 downloaded."))
	assert.True(t, g.contains("[ Restart Now ]  [ Later ]"))
}

// scriptedScreen is a simulation screen that receives keys as soon as it
// is initialised.
type scriptedScreen struct {
	tcell.SimulationScreen
	keys []tcell.Key
}

func (s *scriptedScreen) Init() error {
	if err := s.SimulationScreen.Init(); err != nil {
		return err
	}
	for _, k := range s.keys {
		s.InjectKey(k, 0, tcell.ModNone)
	}
	return nil
}

func TestPrompter_WithoutWindow(t *testing.T) {
	tests := []struct {
		name string
		keys []tcell.Key
		want update.Decision
	}{
		{"enter restarts", []tcell.Key{tcell.KeyEnter}, update.RestartNow},
		{"right then enter defers", []tcell.Key{tcell.KeyRight, tcell.KeyEnter}, update.Later},
		{"escape defers", []tcell.Key{tcell.KeyEscape}, update.Later},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := &scriptedScreen{SimulationScreen: tcell.NewSimulationScreen(""), keys: tt.keys}
			host := NewHost(Assets())
			host.newScreen = func() (tcell.Screen, error) { return screen, nil }
			require.Nil(t, host.Current())

			got, err := NewPrompter(host, "BG-Window").PromptRestart("2.0.0")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			_, width, _ := screen.GetContents()
			assert.Zero(t, width, "prompt screen is torn down")
		})
	}
}
