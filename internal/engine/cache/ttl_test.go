package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "300000", want: 5 * time.Minute},
		{in: " 1000 ", want: time.Second},
		{in: "5m", want: 5 * time.Minute},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "-1m", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "1ms", want: time.Millisecond},
		{in: "500us", wantErr: true},
		{in: "999999ns", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTTL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 500 * time.Millisecond, want: "500ms"},
		{in: 30 * time.Second, want: "30s"},
		{in: 90 * time.Second, want: "1m30s"},
		{in: 1500 * time.Millisecond, want: "1.5s"},
		{in: 5 * time.Minute, want: "5m"},
		{in: 2 * time.Hour, want: "2h"},
		{in: 2*time.Hour + 30*time.Minute, want: "2h30m"},
		{in: 2*time.Hour + 5*time.Second, want: "2h0m5s"},
		{in: 72 * time.Hour, want: "72h"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FormatDuration(tt.in)
			assert.Equal(t, tt.want, got)

			back, err := ParseTTL(got)
			require.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}
}
