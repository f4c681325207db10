// Package voice speaks guided-phase prompts through an external
// text-to-speech command.
package voice

// Announcer speaks one prompt at a time. Say must return promptly and
// report completion through done; implementations that cannot tell when
// speech ends simply never call done, and the caller falls back to its
// own duration estimate.
type Announcer interface {
	// Say begins speaking text and calls done when the utterance
	// finishes naturally. A second Say supersedes the first.
	Say(text string, done func())

	// Stop interrupts the current utterance, if any. done is not
	// called for an interrupted utterance.
	Stop()

	// Shutdown stops speech and releases resources. Idempotent.
	Shutdown()
}

// NullAnnouncer is the voiceless backend. It never calls done, so
// guided phases run on estimated durations.
type NullAnnouncer struct{}

func (NullAnnouncer) Say(string, func()) {}
func (NullAnnouncer) Stop()              {}
func (NullAnnouncer) Shutdown()          {}
