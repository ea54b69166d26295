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

package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeAz is a stand-in az CLI: a shell script that records its arguments and
// then runs a caller-supplied body.
type FakeAz struct {
	// Binary is the path to pass wherever the az binary is configured.
	Binary   string
	argsFile string
}

// NewFakeAz writes the script into a temporary directory. The body is shell
// code run after the arguments are recorded, typically an echo of JSON output.
func NewFakeAz(t testing.TB, body string) *FakeAz {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	f := &FakeAz{
		Binary:   filepath.Join(dir, "az"),
		argsFile: filepath.Join(dir, "args.txt"),
	}
	script := "#!/bin/sh\nprintf '%s ' \"$@\" > " + f.argsFile + "\n" + body + "\n"
	if err := os.WriteFile(f.Binary, []byte(script), 0o755); err != nil { // #nosec G306 -- must be executable
		t.Fatalf("failed to write fake az: %v", err)
	}
	return f
}

// Args returns the space-joined arguments of the last invocation.
func (f *FakeAz) Args(t testing.TB) string {
	t.Helper()
	b, err := os.ReadFile(f.argsFile)
	if err != nil {
		t.Fatalf("failed to read recorded args: %v", err)
	}
	return strings.TrimSpace(string(b))
}

// Called reports whether the script ran at all.
func (f *FakeAz) Called() bool {
	_, err := os.Stat(f.argsFile)
	return err == nil
}
