package window

// Event is a notification from a window host.
type Event interface {
	windowEvent()
}

// ReadyToShow fires once the window finished its initial layout.
type ReadyToShow struct{}

// DOMReady fires when a document finished loading.
type DOMReady struct {
	URL string
}

// DidFailLoad reports a document that could not be loaded.
type DidFailLoad struct {
	Code        int
	Description string
	URL         string
	IsMainFrame bool
}

// RenderProcessGone reports that the window's renderer stopped.
type RenderProcessGone struct {
	Reason   string
	ExitCode int
}

// ConsoleMessage is a message logged by the loaded document.
type ConsoleMessage struct {
	Level   int
	Message string
	Line    int
	Source  string
}

// NavigationRequested is raised when content asks to navigate to or open
// URL. The host never navigates on its own.
type NavigationRequested struct {
	URL string
}

// Closed fires after the window has been closed.
type Closed struct{}

func (ReadyToShow) windowEvent()         {}
func (DOMReady) windowEvent()            {}
func (DidFailLoad) windowEvent()         {}
func (RenderProcessGone) windowEvent()   {}
func (ConsoleMessage) windowEvent()      {}
func (NavigationRequested) windowEvent() {}
func (Closed) windowEvent()              {}

// Console message levels.
const (
	ConsoleLog = iota
	ConsoleWarn
	ConsoleError
)

var consoleLevels = []string{"LOG", "WARN", "ERROR"}
