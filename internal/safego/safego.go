package safego

import "runtime/debug"
import "log"

// Go runs fn on a new goroutine, logging any panic before letting it crash out.
// The curses UI owns the terminal, so a bare panic would be lost with the screen;
// the log file keeps the stack trace.
func Go(logger *log.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
