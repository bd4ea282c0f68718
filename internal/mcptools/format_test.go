package mcptools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		stdout     string
		stderr     string
		returnCode int
		want       string
	}{
		{
			name:       "both streams",
			stdout:     "hi\n",
			stderr:     "warn\n",
			returnCode: 0,
			want:       "---- [stdout] ----\nhi\n---- [stderr] ----\nwarn\n---- [return code] ----\n0\n",
		},
		{
			name:       "empty streams",
			stdout:     "",
			stderr:     "",
			returnCode: 1,
			want:       "---- [stdout] ----\n(empty)\n---- [stderr] ----\n(empty)\n---- [return code] ----\n1\n",
		},
		{
			name:       "whitespace-only stdout is empty",
			stdout:     "  \n",
			stderr:     "Command was cancelled",
			returnCode: -1,
			want:       "---- [stdout] ----\n(empty)\n---- [stderr] ----\nCommand was cancelled\n---- [return code] ----\n-1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatOutput(tt.stdout, tt.stderr, tt.returnCode))
		})
	}
}
