package mangadex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationPattern matches the PHP DateInterval subset MangaDex accepts, such
// as P1D2WT3H4M.
var durationPattern = regexp.MustCompile(
	`^(P(?P<days>[1-9]|[1-9][0-9])D)?(P?(?P<weeks>[1-9])W)?(P?T((?P<hours>[1-9]|1[0-9]|2[0-4])H)?((?P<minutes>[1-9]|[1-5][0-9]|60)M)?((?P<seconds>[1-9]|[1-5][0-9]|60)S)?)?$`,
)

const week = 7 * 24 * time.Hour

// DeltaToISO renders d as an ISO-8601 duration in the form MangaDex uses.
// Sub-second precision is rounded away and durations under half a second
// render as the empty string.
func DeltaToISO(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return ""
	}

	weeks := secs / int64(week/time.Second)
	secs %= int64(week / time.Second)
	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	minutes := secs / 60
	secs %= 60

	var b strings.Builder
	b.WriteString("P")
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if weeks > 0 {
		fmt.Fprintf(&b, "%dW", weeks)
	}
	if hours > 0 || minutes > 0 || secs > 0 {
		b.WriteString("T")
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if secs > 0 {
		fmt.Fprintf(&b, "%dS", secs)
	}
	return b.String()
}

// ISOToDelta parses a duration produced by DeltaToISO or returned by the API.
func ISOToDelta(iso string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", iso)
	}

	units := map[string]time.Duration{
		"weeks":   week,
		"days":    24 * time.Hour,
		"hours":   time.Hour,
		"minutes": time.Minute,
		"seconds": time.Second,
	}

	var d time.Duration
	for i, name := range durationPattern.SubexpNames() {
		unit, ok := units[name]
		if !ok || m[i] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i])
		if err != nil {
			return 0, fmt.Errorf("invalid %s in duration %q: %w", name, iso, err)
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}
