package ics

import (
	"strings"
	"time"
)

// Calendar events for confirmed dates always span two hours.
const EventDuration = 2 * time.Hour

type Event struct {
	UID         string
	Start       time.Time
	Summary     string
	Location    string
	Description string
}

const timestampLayout = "20060102T150405Z"

// Render builds an RFC 5545 VCALENDAR block containing a single
// confirmed VEVENT. Lines are CRLF-terminated as the RFC requires.
func Render(evt Event, now time.Time) string {
	start := evt.Start.UTC()
	end := start.Add(EventDuration)

	var b strings.Builder
	writeLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//DANA//Booking//EN")
	writeLine("BEGIN:VEVENT")
	writeLine("UID:" + escape(evt.UID))
	writeLine("DTSTAMP:" + now.UTC().Format(timestampLayout))
	writeLine("DTSTART:" + start.Format(timestampLayout))
	writeLine("DTEND:" + end.Format(timestampLayout))
	writeLine("SUMMARY:" + escape(evt.Summary))
	writeLine("LOCATION:" + escape(evt.Location))
	writeLine("DESCRIPTION:" + escape(evt.Description))
	writeLine("STATUS:CONFIRMED")
	writeLine("END:VEVENT")
	writeLine("END:VCALENDAR")
	return b.String()
}

// escape applies RFC 5545 text escaping (backslash, semicolon, comma,
// newline).
func escape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\n", `\n`,
		"\r", "",
	)
	return r.Replace(s)
}
