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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/deploy"
	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/selfdestruct"
	"github.com/mikelane/selfdestruct/test/utils"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand(newApp(&out, &errOut))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"invalid input", errdefs.InvalidInput(errdefs.ReasonAmbiguousTarget, "x"), 2},
		{"configuration", errdefs.New(errdefs.KindConfiguration, errdefs.ReasonNotConfigured, "x"), 2},
		{"unsupported", errdefs.Unsupported("x"), 2},
		{"authorization", errdefs.New(errdefs.KindAuthorization, errdefs.ReasonUnknown, "x"), 1},
		{"not found", errdefs.NotFound("x"), 1},
		{"external", errdefs.External(errors.New("boom"), "x"), 1},
		{"usage", &usageError{err: errors.New("unknown flag: --nope")}, 2},
		{"plain", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewArmedView(t *testing.T) {
	deadline := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	armed := &selfdestruct.Armed{
		Descriptor: &resource.Descriptor{
			ID:           "/subscriptions/sub-1/resourceGroups/rg1/providers/Microsoft.Storage/storageAccounts/acct1",
			Name:         "acct1",
			Namespace:    "Microsoft.Storage",
			ResourceType: "storageAccounts",
		},
		Deadline: deadline,
		Timer:    "1d2h",
		Deployment: &deploy.Result{
			Name:              "self-destruct-storageAccounts-rg1-acct1",
			ProvisioningState: "Succeeded",
			Timestamp:         time.Date(2025, 5, 31, 12, 30, 5, 0, time.FixedZone("PDT", -7*3600)),
		},
	}

	got := newArmedView(armed, true)
	want := armedView{
		ID:         armed.Descriptor.ID,
		Name:       "acct1",
		Type:       "Microsoft.Storage/storageAccounts",
		Deadline:   "2025-06-01T14:30:00Z",
		Timer:      "1d2h",
		Workflow:   "self-destruct-storageAccounts-rg1-acct1",
		Delegated:  true,
		Provision:  "Succeeded",
		DeployedAt: "2025-05-31T19:30:05Z",
	}
	if got != want {
		t.Errorf("newArmedView() = %+v, want %+v", got, want)
	}

	armed.Deployment.Timestamp = time.Time{}
	if got := newArmedView(armed, false); got.DeployedAt != "" {
		t.Errorf("DeployedAt = %q, want empty when the deployment has no timestamp", got.DeployedAt)
	}
}

func TestConfigure(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AZURE_CONFIG_DIR", dir)
	args := []string{"configure", "--client-id", "app-1", "--client-secret", "s3cret", "--tenant-id", "tenant-1"}

	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("configure error = %v", err)
	}

	var printed credential.Credential
	if err := json.Unmarshal([]byte(out), &printed); err != nil {
		t.Fatalf("output is not a credential: %v\n%s", err, out)
	}
	if printed.ClientID != "app-1" || printed.TenantID != "tenant-1" {
		t.Errorf("printed = %+v", printed)
	}
	if printed.ClientSecret == "s3cret" {
		t.Error("printed credential exposes the client secret")
	}
	if _, err := os.Stat(filepath.Join(dir, credential.FileName)); err != nil {
		t.Errorf("credential file not written: %v", err)
	}

	_, err = execute(t, args...)
	if errdefs.ReasonOf(err) != errdefs.ReasonAlreadyConfigured || exitCode(err) != 2 {
		t.Errorf("second configure error = %v, want AlreadyConfigured", err)
	}

	if _, err := execute(t, append(args, "--force")...); err != nil {
		t.Errorf("configure --force error = %v", err)
	}
}

func TestConfigure_ConfigDirFlag(t *testing.T) {
	t.Setenv("AZURE_CONFIG_DIR", t.TempDir())
	dir := t.TempDir()

	_, err := execute(t, "--config-dir", dir, "configure", "--client-id", "a", "--client-secret", "b", "--tenant-id", "c")
	if err != nil {
		t.Fatalf("configure error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, credential.FileName)); err != nil {
		t.Errorf("credential file not written to --config-dir: %v", err)
	}
}

func TestRejectedBeforeAzure(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantUsage bool
		wantKind  errdefs.Kind
	}{
		{
			name:     "partial credential",
			args:     []string{"configure", "--client-id", "app-1"},
			wantKind: errdefs.KindInvalidInput,
		},
		{
			name:     "arm without timer",
			args:     []string{"arm", "-g", "rg1"},
			wantKind: errdefs.KindInvalidInput,
		},
		{
			name:     "service principal alias is accepted",
			args:     []string{"arm", "-g", "rg1", "--sp"},
			wantKind: errdefs.KindInvalidInput,
		},
		{
			name:      "unknown flag",
			args:      []string{"arm", "--nope"},
			wantUsage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AZURE_CONFIG_DIR", t.TempDir())

			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("error = nil, want error")
			}
			var usage *usageError
			if got := errors.As(err, &usage); got != tt.wantUsage {
				t.Errorf("usage error = %v, want %v (%v)", got, tt.wantUsage, err)
			}
			if !tt.wantUsage && errdefs.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %q, want %q (%v)", errdefs.KindOf(err), tt.wantKind, err)
			}
			if exitCode(err) != 2 {
				t.Errorf("exitCode() = %d, want 2", exitCode(err))
			}
		})
	}
}

func TestRun_WithoutSelfDestructOnlyRunsAz(t *testing.T) {
	t.Setenv("AZURE_CONFIG_DIR", t.TempDir())
	az := utils.NewFakeAz(t, `echo '{"name":"rg1","properties":{"provisioningState":"Succeeded"}}'`)

	out, err := execute(t, "--az-binary", az.Binary, "run", "--", "group", "create", "-n", "rg1", "-l", "westus")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if got := az.Args(t); got != "group create -n rg1 -l westus --output json" {
		t.Errorf("az called with %q", got)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result["name"] != "rg1" {
		t.Errorf("result = %v", result)
	}
}

func TestRun_UntaggableRejectedBeforeAz(t *testing.T) {
	t.Setenv("AZURE_CONFIG_DIR", t.TempDir())
	az := utils.NewFakeAz(t, `echo '{}'`)

	_, err := execute(t, "--az-binary", az.Binary, "run", "--", "identity", "create", "-n", "id1", "--self-destruct", "1h")
	if !errdefs.IsUnsupported(err) {
		t.Fatalf("run error = %v, want UnsupportedOperation", err)
	}
	if az.Called() {
		t.Errorf("az was called with %q", az.Args(t))
	}
}
