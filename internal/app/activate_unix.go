//go:build !windows

package app

import (
	"os"
	"os/signal"
	"syscall"
)

// watchActivation treats SIGUSR1 as the application being reactivated.
func (a *App) watchActivation() func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-sig:
				a.Post(a.activate)
			}
		}
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}
