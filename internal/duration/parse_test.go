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
	"testing"
	"time"

	"github.com/mikelane/selfdestruct/internal/errdefs"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "days hours minutes", input: "1d6h30m", want: Day + 6*time.Hour + 30*time.Minute},
		{name: "hours and minutes", input: "2h30m", want: 2*time.Hour + 30*time.Minute},
		{name: "days only", input: "1d", want: Day},
		{name: "minutes only", input: "30m", want: 30 * time.Minute},
		{name: "days and minutes", input: "2d5m", want: 2*Day + 5*time.Minute},
		{name: "empty is zero", input: "", want: 0},
		{name: "multi digit", input: "100h", want: 100 * time.Hour},
		{name: "surrounding space", input: " 6h ", want: 6 * time.Hour},
		{name: "wrong order", input: "6h1d", wantErr: true},
		{name: "non numeric", input: "xh", wantErr: true},
		{name: "trailing characters", input: "1h30mx", wantErr: true},
		{name: "seconds unsupported", input: "30s", wantErr: true},
		{name: "separator", input: "1d 6h", wantErr: true},
		{name: "negative", input: "-1h", wantErr: true},
		{name: "repeated unit", input: "1h1h", wantErr: true},
		{name: "overflow", input: "999999999999999d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if errdefs.ReasonOf(err) != errdefs.ReasonInvalidDurationFormat {
					t.Errorf("Parse(%q) reason = %q, want %q", tt.input, errdefs.ReasonOf(err), errdefs.ReasonInvalidDurationFormat)
				}
				if !errdefs.IsInvalidInput(err) {
					t.Errorf("Parse(%q) kind = %q, want InvalidInput", tt.input, errdefs.KindOf(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeadline(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))

	got, err := Deadline(now, "2h30m")
	if err != nil {
		t.Fatalf("Deadline() error = %v", err)
	}

	want := time.Date(2025, 3, 1, 17, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Deadline() = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("Deadline() location = %v, want UTC", got.Location())
	}
}

func TestFormat_RoundTripsThroughParse(t *testing.T) {
	for _, in := range []string{"1d6h30m", "2h", "45m", "3d"} {
		d, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", in, err)
		}
		if got := Format(d); got != in {
			t.Errorf("Format(Parse(%q)) = %q", in, got)
		}
	}
	if got := Format(0); got != "0m" {
		t.Errorf("Format(0) = %q, want 0m", got)
	}
}
