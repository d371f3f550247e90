package window

import (
	"fmt"

	"github.com/skratchdot/open-golang/open"
)

// SystemOpener opens URLs with the desktop's default handler.
type SystemOpener struct{}

func (SystemOpener) OpenExternal(target string) error {
	if IsLocal(target) {
		return fmt.Errorf("refusing to open local file %q externally", target)
	}
	if err := open.Run(target); err != nil {
		return fmt.Errorf("open %q: %w", target, err)
	}
	return nil
}
