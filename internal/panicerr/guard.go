package panicerr

import "runtime/debug"

// Guard runs f and converts any panic it raises into a non-nil error,
// recovered in the calling goroutine. Unlike a goroutine-isolating recover,
// Guard never spawns a goroutine: it exists to convert halt() panics into
// error returns in an interpreter that never blocks and so never needs a
// second goroutine to make it cancellable.
func Guard(name string, f func() error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = panicError{name: name, e: e, stack: debug.Stack()}
		}
	}()
	return f()
}
