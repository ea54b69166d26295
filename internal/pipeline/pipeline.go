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
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/mikelane/selfdestruct/internal/duration"
	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/tags"
)

// Pipeline drives a create invocation through the self-destruct stages.
type Pipeline struct {
	credentials CredentialReader
	locator     Locator
	authorizer  Authorizer
	scheduler   Scheduler
	executor    Executor
	registry    *Registry
	now         func() time.Time
}

// New creates a Pipeline. A nil registry means DefaultRegistry.
func New(credentials CredentialReader, locator Locator, authorizer Authorizer, scheduler Scheduler, executor Executor, registry *Registry) *Pipeline {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Pipeline{
		credentials: credentials,
		locator:     locator,
		authorizer:  authorizer,
		scheduler:   scheduler,
		executor:    executor,
		registry:    registry,
		now:         time.Now,
	}
}

// Run executes one invocation. It returns an error only when the invocation is
// rejected before the create command runs or when the create command fails.
// Scheduling failures after a successful create are reported in Outcome.Warning.
func (p *Pipeline) Run(ctx context.Context, args []string) (*Outcome, error) {
	ic := NewInvocationContext()
	logger := logr.FromContextOrDiscard(ctx).WithValues("invocation", ic.ID.String())
	ctx = logr.NewContext(ctx, logger)

	if err := p.PreParse(ctx, ic, args); err != nil {
		return nil, fmt.Errorf("%s: %w", StagePreParse, err)
	}

	parsed := p.ParseArgs(ic)
	p.PostArgParse(ic, parsed)

	result, err := p.Execute(ctx, ic, parsed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageExecute, err)
	}

	return p.TransformResult(ctx, ic, result), nil
}

// PreParse inspects the raw arguments. Without --self-destruct it only copies
// them into ic. Otherwise it validates the invocation, loads the credential
// when --self-destruct-sp is given, computes the deadline and rewrites the
// arguments. Nothing is created when it fails.
func (p *Pipeline) PreParse(ctx context.Context, ic *InvocationContext, args []string) error {
	if findFlag(args, flagSelfDestruct) < 0 {
		ic.Args = slices.Clone(args)
		return nil
	}
	ic.State = StateArmingRequested
	logger := logr.FromContextOrDiscard(ctx)

	words := commandWords(args)
	if !slices.Contains(words, "create") {
		return errdefs.Unsupported("you can only initiate a self-destruct sequence when creating a resource")
	}
	for _, group := range untaggable {
		if slices.Contains(words, group) {
			return errdefs.Unsupported("`%s create` does not support tags, so it cannot self-destruct", strings.Join(words[:slices.Index(words, "create")], " "))
		}
	}

	rest, timer, ok := stripSelfDestruct(args)
	if !ok {
		return errdefs.InvalidInput(errdefs.ReasonInvalidDurationFormat, "%s requires a duration such as 1d, 6h or 2h30m", flagSelfDestruct)
	}

	if slices.Contains(args, flagSelfDestructSP) {
		cred, err := p.credentials.Read()
		if err != nil {
			return err
		}
		ic.Delegated = true
		ic.Credential = &cred
	}

	deadline, err := duration.Deadline(p.now(), timer)
	if err != nil {
		return err
	}

	ic.Active = true
	ic.Timer = timer
	ic.Deadline = deadline
	ic.Args = tags.InjectArgs(rest, deadline)
	ic.State = StateValidated

	logger.V(1).Info("Self-destruct requested", "deadline", tags.FormatDeadline(deadline), "delegated", ic.Delegated)
	return nil
}

// ParseArgs parses the rewritten arguments.
func (p *Pipeline) ParseArgs(ic *InvocationContext) *Arguments {
	return parseArgs(ic.Args)
}

// PostArgParse removes self-destruct options so the create command never sees them.
func (p *Pipeline) PostArgParse(ic *InvocationContext, parsed *Arguments) {
	parsed.Remove(flagSelfDestruct, flagSelfDestructSP)
	ic.Args = parsed.Args()
}

// Execute runs the create command.
func (p *Pipeline) Execute(ctx context.Context, ic *InvocationContext, parsed *Arguments) (map[string]any, error) {
	if ic.Active {
		ic.State = StateExecuting
	}
	return p.executor.Execute(ctx, parsed.Args())
}

// TransformResult schedules the created resource for deletion. It never fails:
// problems are returned as a Warning since the resource already exists.
func (p *Pipeline) TransformResult(ctx context.Context, ic *InvocationContext, result map[string]any) *Outcome {
	outcome := &Outcome{Result: result}
	if !ic.Active {
		return outcome
	}
	logger := logr.FromContextOrDiscard(ctx)

	payload := p.registry.Unwrap(result)
	id, _ := payload["id"].(string)
	if id == "" {
		outcome.Warning = p.warn(ctx, ic, resource.Target{ResourceID: "<resource id>"},
			errdefs.Unsupported("the create command did not return a resource id"))
		return outcome
	}

	target, err := p.locator.Resolve(ctx, resource.Target{ResourceID: id})
	if err != nil {
		outcome.Warning = p.warn(ctx, ic, resource.Target{ResourceID: id}, err)
		return outcome
	}
	ic.Descriptor = target
	outcome.Descriptor = target

	if ic.Delegated {
		if err := p.authorizer.Check(ctx, *ic.Credential, target); err != nil {
			logger.Info("You may need to run `selfdestruct configure --force` to re-enable self-destruct mode")
			outcome.Warning = p.warn(ctx, ic, target.Target(), err)
			return outcome
		}
	}

	deployment, err := p.scheduler.Deploy(ctx, target, ic.Deadline, ic.Mode())
	if err != nil {
		outcome.Warning = p.warn(ctx, ic, target.Target(), err)
		return outcome
	}

	ic.State = StateDeployed
	outcome.Scheduled = true
	outcome.Deadline = ic.Deadline
	outcome.Deployment = deployment

	logger.Info(fmt.Sprintf("You've activated a self-destruct sequence! %s is scheduled for deletion at %s UTC",
		target.ID, tags.FormatDeadline(ic.Deadline)))
	return outcome
}

func (p *Pipeline) warn(ctx context.Context, ic *InvocationContext, target resource.Target, err error) *Warning {
	remediation := fmt.Sprintf("selfdestruct arm --id %s --timer %s", target.ResourceID, ic.Timer)
	if target.ResourceID == "" {
		remediation = fmt.Sprintf("selfdestruct arm --resource-group %s --timer %s", target.ResourceGroup, ic.Timer)
	}
	if ic.Delegated {
		remediation += " --use-delegated-credential"
	}
	w := &Warning{Err: err, Remediation: remediation}
	logr.FromContextOrDiscard(ctx).Error(err, "Self-destruct sequence could not be activated", "remediation", remediation)
	return w
}
