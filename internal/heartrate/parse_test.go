package heartrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeartRate(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		want    int
		wantErr bool
	}{
		{name: "uint8 format", buf: []byte{0x00, 72}, want: 72},
		{name: "uint8 with other flag bits set", buf: []byte{0x16, 80}, want: 80},
		{name: "uint16 format", buf: []byte{0x01, 0x34, 0x01}, want: 308},
		{name: "uint16 low byte only", buf: []byte{0x01, 72, 0x00}, want: 72},
		{name: "empty", buf: nil, wantErr: true},
		{name: "flags only", buf: []byte{0x00}, wantErr: true},
		{name: "uint16 truncated", buf: []byte{0x01, 72}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHeartRate(tt.buf)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
