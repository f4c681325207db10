package heartrate

import "fmt"

// parseHeartRate parses a heart rate measurement characteristic value.
// See: https://www.bluetooth.com/specifications/specs/heart-rate-service-1-0/
func parseHeartRate(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, fmt.Errorf("heart rate data too short: %d bytes", len(buf))
	}

	flags := buf[0]
	// Bit 0: 0 = UINT8, 1 = UINT16
	isUint16 := (flags & 0x01) != 0

	if isUint16 {
		if len(buf) < 3 {
			return 0, fmt.Errorf("heart rate UINT16 data too short: %d bytes", len(buf))
		}
		return int(uint16(buf[1]) | (uint16(buf[2]) << 8)), nil
	}
	return int(buf[1]), nil
}
