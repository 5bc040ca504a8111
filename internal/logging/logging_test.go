package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		session string
		start   time.Time
		want    string
	}{
		{
			name:    "no session",
			logsDir: "logs",
			start:   sessionStart,
			want:    filepath.Join("logs", "geoanchor.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			session: "walk",
			start:   sessionStart,
			want:    filepath.Join(".", "logs", "geoanchor.walk.20260212_213836.log"),
		},
		{
			name:    "session slug",
			logsDir: filepath.Join("/var", "log", "geoanchor"),
			session: "  Tokyo Station / Exit 3  ",
			start:   sessionStart,
			want:    filepath.Join("/var", "log", "geoanchor", "geoanchor.tokyo-station-exit-3.20260212_213836.log"),
		},
		{
			name:    "punctuation only session",
			logsDir: "logs",
			session: "///",
			start:   sessionStart,
			want:    filepath.Join("logs", "geoanchor.20260212_213836.log"),
		},
		{
			name:    "local time written as UTC",
			logsDir: "logs",
			start:   sessionStart.In(time.FixedZone("JST", 9*60*60)),
			want:    filepath.Join("logs", "geoanchor.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, "geoanchor", tt.session, tt.start)
			assert.Equal(t, tt.want, got)
		})
	}
}
