//go:build windows

package app

// watchActivation is a no-op: Windows has no reactivation signal, a second
// launch focuses the running instance instead.
func (a *App) watchActivation() func() {
	return func() {}
}
