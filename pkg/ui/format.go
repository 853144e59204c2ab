package ui

import (
	"strings"
	"time"

	"github.com/kuplace/kupletalk/pkg/session"
)

// FormatCreatedAt renders a chat's creation time the way the web sidebar did:
// month/day plus a 12-hour clock.
func FormatCreatedAt(t time.Time) string {
	return t.Local().Format("1월 2일 3:04 PM")
}

// debugForDisplay converts the accumulated debug buffer back into terminal
// lines. The buffer itself keeps the line-break marker.
func debugForDisplay(buffer string) string {
	return strings.ReplaceAll(buffer, session.LineBreakMarker, "\n")
}
