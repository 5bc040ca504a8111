package logging

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// LogFilePath names the log file of one run:
// <app>[.<session>].<YYYYMMDD_HHMMSS>.log in logsDir. The time is written in
// UTC and the session name is reduced to a file-safe slug.
func LogFilePath(logsDir, appName, sessionName string, start time.Time) string {
	parts := []string{appName}
	if slug := slugify(sessionName); slug != "" {
		parts = append(parts, slug)
	}
	parts = append(parts, start.UTC().Format("20060102_150405"), "log")
	return filepath.Join(logsDir, strings.Join(parts, "."))
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
