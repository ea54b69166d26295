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

package azcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"

	"github.com/mikelane/selfdestruct/internal/errdefs"
)

// DefaultBinary is the az executable looked up on PATH.
const DefaultBinary = "az"

// Runner executes az commands.
type Runner struct {
	binary string
	env    []string
}

// NewRunner creates a Runner for binary. extraEnv is appended to the process
// environment of every command.
func NewRunner(binary string, extraEnv ...string) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Runner{binary: binary, env: extraEnv}
}

// Run executes az with args and returns its standard output.
func (r *Runner) Run(ctx context.Context, args ...string) ([]byte, error) {
	logger := logr.FromContextOrDiscard(ctx)
	command := r.binary + " " + strings.Join(args, " ")

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Env = append(os.Environ(), r.env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.V(1).Info("Running command", "command", command)
	if err := cmd.Run(); err != nil {
		logger.Error(err, "Command failed", "command", command, "output", stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), errdefs.External(err, "%q failed: %s", command, strings.TrimSpace(stderr.String()))
		}
		return stdout.Bytes(), errdefs.External(err, "failed to run %q", command)
	}
	if stderr.Len() > 0 {
		logger.V(1).Info("Command wrote to stderr", "command", command, "output", stderr.String())
	}
	return stdout.Bytes(), nil
}

// JSON executes az with args and --output json and decodes the object it prints.
// It returns nil when the command prints nothing.
func (r *Runner) JSON(ctx context.Context, args ...string) (map[string]any, error) {
	out, err := r.Run(ctx, append(args, "--output", "json")...)
	if err != nil {
		return nil, err
	}
	return decodeObject(out)
}

// decodeObject decodes the JSON object in out, skipping anything before the first "{".
func decodeObject(out []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	start := bytes.IndexByte(out, '{')
	if start < 0 {
		return nil, fmt.Errorf("command output is not a JSON object: %q", truncate(string(out), 200))
	}

	var obj map[string]any
	if err := json.Unmarshal(out[start:], &obj); err != nil {
		return nil, fmt.Errorf("failed to decode command output: %w", err)
	}
	return obj, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
