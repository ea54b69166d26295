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

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/deploy"
	"github.com/mikelane/selfdestruct/internal/resource"
)

// Stage names one step of an invocation.
type Stage string

const (
	StagePreParse        Stage = "PreParse"
	StageParseArgs       Stage = "ParseArgs"
	StagePostArgParse    Stage = "PostArgParse"
	StageExecute         Stage = "Execute"
	StageTransformResult Stage = "TransformResult"
)

// State is the scheduling state of one invocation.
type State int

const (
	StateIdle State = iota
	StateArmingRequested
	StateValidated
	StateExecuting
	StateDeployed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateArmingRequested:
		return "ArmingRequested"
	case StateValidated:
		return "Validated"
	case StateExecuting:
		return "Executing"
	case StateDeployed:
		return "Deployed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// InvocationContext carries the self-destruct state of a single invocation.
// A new one is created for every invocation.
type InvocationContext struct {
	ID         uuid.UUID
	State      State
	Active     bool
	Delegated  bool
	Timer      string
	Deadline   time.Time
	Credential *credential.Credential
	Descriptor *resource.Descriptor
	Args       []string
}

// NewInvocationContext returns an idle context with a fresh ID.
func NewInvocationContext() *InvocationContext {
	return &InvocationContext{
		ID:    uuid.New(),
		State: StateIdle,
	}
}

// Mode returns the deployment mode the invocation asked for.
func (ic *InvocationContext) Mode() deploy.Mode {
	if ic.Delegated && ic.Credential != nil {
		return deploy.Delegated{Credential: *ic.Credential}
	}
	return deploy.ManagedIdentity{}
}

// Outcome is what an invocation produced.
type Outcome struct {
	// Result is the create command's output, unchanged.
	Result map[string]any
	// Scheduled reports whether a deletion workflow was deployed.
	Scheduled  bool
	Deadline   time.Time
	Descriptor *resource.Descriptor
	Deployment *deploy.Result
	// Warning is set when the resource was created but could not be scheduled.
	Warning *Warning
}

// Warning describes a scheduling failure after the resource was created, with
// the command that retries the scheduling.
type Warning struct {
	Err         error
	Remediation string
}

func (w *Warning) Error() string {
	return fmt.Sprintf("%v. The resource was created but is not scheduled for deletion; run `%s` to retry", w.Err, w.Remediation)
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// CredentialReader loads the stored delegated credential.
type CredentialReader interface {
	Read() (credential.Credential, error)
}

// Locator resolves the created resource into a Descriptor.
type Locator interface {
	Resolve(ctx context.Context, target resource.Target) (*resource.Descriptor, error)
}

// Authorizer checks a delegated credential against the created resource.
type Authorizer interface {
	Check(ctx context.Context, cred credential.Credential, target *resource.Descriptor) error
}

// Scheduler deploys the deletion workflow.
type Scheduler interface {
	Deploy(ctx context.Context, target *resource.Descriptor, deadline time.Time, mode deploy.Mode) (*deploy.Result, error)
}

// Executor runs the underlying create command and returns its JSON output.
type Executor interface {
	Execute(ctx context.Context, args []string) (map[string]any, error)
}
