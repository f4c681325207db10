package engine

import "fmt"

// TransitionError reports an attempt to drive the playback state machine
// from a status that does not permit the operation. Public session
// methods swallow redundant calls (pausing a paused session is a no-op),
// so this surfaces only from internal sequencing logic, where it marks a
// bug worth logging rather than hiding.
type TransitionError struct {
	Op     string
	Status Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("engine: cannot %s while %s", e.Op, e.Status)
}
