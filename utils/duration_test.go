package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: "15s", want: 15 * time.Second},
		{name: "minutes", input: "5m", want: 5 * time.Minute},
		{name: "complex", input: "1h30m15s", want: time.Hour + 30*time.Minute + 15*time.Second},
		{name: "milliseconds", input: "500ms", want: 500 * time.Millisecond},
		{name: "invalid", input: "invalid", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, d.Duration)
			}
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	tests := []struct {
		name     string
		duration Duration
		want     string
	}{
		{name: "one second", duration: Duration{Duration: time.Second}, want: "1s"},
		{name: "two minutes", duration: Duration{Duration: 2 * time.Minute}, want: "2m0s"},
		{name: "zero", duration: Duration{}, want: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.duration.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
