// Package heartrate streams live heart rate readings from a BLE strap
// (or a simulator) into the rest of the app.
package heartrate

// Standard GATT identifiers for the heart rate service.
const (
	ServiceUUIDHeartRate         = "0000180d-0000-1000-8000-00805f9b34fb"
	CharUUIDHeartRateMeasurement = "00002a37-0000-1000-8000-00805f9b34fb"
)

// Source publishes heart rate readings in beats per minute.
type Source interface {
	// ListenToReadings registers a channel for bpm readings and
	// returns its unregister function. Slow consumers miss readings
	// rather than block the source.
	ListenToReadings(ch chan<- int) func()

	// Resync tells the source the host was suspended; a BLE source
	// drops its link and resubscribes.
	Resync()

	// Shutdown disconnects and stops the source. Idempotent.
	Shutdown()
}

// NullSource is the no-monitor backend; it never publishes a reading.
type NullSource struct{}

func (NullSource) ListenToReadings(chan<- int) func() { return func() {} }
func (NullSource) Resync()                            {}
func (NullSource) Shutdown()                          {}
