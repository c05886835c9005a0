package collector

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext returns a context cancelled on the first SIGINT or SIGTERM.
// onSignal, if set, runs before the cancellation; a second signal forces
// exit. The returned stop func releases the signal handler.
func SignalContext(parent context.Context, onSignal func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	released := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("[Signal] Received %v, finishing in-flight games...", sig)
			if onSignal != nil {
				onSignal()
			}
			cancel()
		case <-released:
			return
		}

		select {
		case sig := <-sigCh:
			log.Printf("[Signal] Received second %v, forcing exit", sig)
			os.Exit(1)
		case <-released:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(released)
		})
		cancel()
	}
	return ctx, stop
}
