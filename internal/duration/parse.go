/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mikelane/selfdestruct/internal/errdefs"
)

// Day is the length of the "d" unit.
const Day = 24 * time.Hour

var durationPattern = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?$`)

// Parse parses a compact duration such as "1d", "6h", "2h30m" or "1d6h30m".
// Units must appear in d, h, m order without separators. Missing units are zero
// and the empty string parses to a zero duration.
func Parse(text string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return 0, invalid(text)
	}

	var total time.Duration
	for i, unit := range []time.Duration{Day, time.Hour, time.Minute} {
		part := match[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n > int64(math.MaxInt64/unit) {
			return 0, invalid(text)
		}
		add := time.Duration(n) * unit
		if total > math.MaxInt64-add {
			return 0, invalid(text)
		}
		total += add
	}

	return total, nil
}

// Deadline returns now plus the parsed duration, in UTC.
func Deadline(now time.Time, text string) (time.Time, error) {
	d, err := Parse(text)
	if err != nil {
		return time.Time{}, err
	}
	return now.UTC().Add(d), nil
}

// Format renders d in the grammar accepted by Parse, truncated to whole minutes.
func Format(d time.Duration) string {
	d = d.Truncate(time.Minute)
	if d <= 0 {
		return "0m"
	}
	var b strings.Builder
	if days := d / Day; days > 0 {
		b.WriteString(strconv.FormatInt(int64(days), 10) + "d")
		d -= days * Day
	}
	if hours := d / time.Hour; hours > 0 {
		b.WriteString(strconv.FormatInt(int64(hours), 10) + "h")
		d -= hours * time.Hour
	}
	if minutes := d / time.Minute; minutes > 0 {
		b.WriteString(strconv.FormatInt(int64(minutes), 10) + "m")
	}
	return b.String()
}

func invalid(text string) error {
	return errdefs.InvalidInput(errdefs.ReasonInvalidDurationFormat,
		"could not parse the time offset %q: use durations like 1d, 6h, 2h30m or 30m", text)
}
