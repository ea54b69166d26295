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

package selfdestruct

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/deploy"
	"github.com/mikelane/selfdestruct/internal/duration"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/tags"
)

// CredentialStore configures and reads the delegated credential.
type CredentialStore interface {
	Configure(ctx context.Context, opts credential.Options) (credential.Credential, error)
	Read() (credential.Credential, error)
}

// Locator resolves targets into descriptors.
type Locator interface {
	Resolve(ctx context.Context, target resource.Target) (*resource.Descriptor, error)
}

// Authorizer checks a delegated credential against a target.
type Authorizer interface {
	Check(ctx context.Context, cred credential.Credential, target *resource.Descriptor) error
}

// Deployer deploys and removes deletion workflows.
type Deployer interface {
	Deploy(ctx context.Context, target *resource.Descriptor, deadline time.Time, mode deploy.Mode) (*deploy.Result, error)
	Remove(ctx context.Context, target *resource.Descriptor) error
}

// Tracker marks, clears and lists self-destruct tags.
type Tracker interface {
	Mark(ctx context.Context, target *resource.Descriptor, deadline time.Time) error
	Clear(ctx context.Context, target *resource.Descriptor) error
	List(ctx context.Context) ([]tags.Entry, error)
}

// ArmOptions are the inputs of Arm.
type ArmOptions struct {
	Target    resource.Target
	Timer     string
	Delegated bool
}

// Armed describes a target scheduled by Arm.
type Armed struct {
	Descriptor *resource.Descriptor
	Deadline   time.Time
	// Timer is the time until Deadline in normalized form, e.g. 1d2h30m.
	Timer      string
	Deployment *deploy.Result
}

// Service runs the self-destruct commands.
type Service struct {
	credentials CredentialStore
	locator     Locator
	authorizer  Authorizer
	deployer    Deployer
	tracker     Tracker
	now         func() time.Time
}

// NewService creates a Service.
func NewService(credentials CredentialStore, locator Locator, authorizer Authorizer, deployer Deployer, tracker Tracker) *Service {
	return &Service{
		credentials: credentials,
		locator:     locator,
		authorizer:  authorizer,
		deployer:    deployer,
		tracker:     tracker,
		now:         time.Now,
	}
}

// Configure stores the delegated credential, issuing a new service principal
// when none of the fields are given.
func (s *Service) Configure(ctx context.Context, opts credential.Options) (credential.Credential, error) {
	return s.credentials.Configure(ctx, opts)
}

// Arm schedules an existing resource or resource group for deletion: it deploys
// the deletion workflow and tags the target. In delegated mode the stored
// credential must exist and be allowed to delete the target.
func (s *Service) Arm(ctx context.Context, opts ArmOptions) (*Armed, error) {
	now := s.now()
	deadline, err := duration.Deadline(now, opts.Timer)
	if err != nil {
		return nil, err
	}

	var mode deploy.Mode = deploy.ManagedIdentity{}
	var cred credential.Credential
	if opts.Delegated {
		if cred, err = s.credentials.Read(); err != nil {
			return nil, err
		}
		mode = deploy.Delegated{Credential: cred}
	}

	target, err := s.locator.Resolve(ctx, opts.Target)
	if err != nil {
		return nil, err
	}
	logger := logr.FromContextOrDiscard(ctx).WithValues("target", target.ID)

	if opts.Delegated {
		if err := s.authorizer.Check(ctx, cred, target); err != nil {
			logger.Info("You may need to run `selfdestruct configure --force` to re-enable self-destruct mode")
			return nil, err
		}
	}

	deployment, err := s.deployer.Deploy(ctx, target, deadline, mode)
	if err != nil {
		return nil, err
	}

	if err := s.tracker.Mark(ctx, target, deadline); err != nil {
		return nil, fmt.Errorf("self-destruct workflow %s is deployed but tagging failed: %w", deployment.Name, err)
	}

	logger.Info(fmt.Sprintf("You've activated a self-destruct sequence! %s is scheduled for deletion at %s UTC",
		target.ID, tags.FormatDeadline(deadline)))

	return &Armed{
		Descriptor: target,
		Deadline:   deadline,
		Timer:      duration.Format(deadline.Sub(now)),
		Deployment: deployment,
	}, nil
}

// Disarm removes the deletion workflow of a target and its self-destruct tags.
// It fails with NotFound when the target has no workflow.
func (s *Service) Disarm(ctx context.Context, target resource.Target) (*resource.Descriptor, error) {
	d, err := s.locator.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	if err := s.deployer.Remove(ctx, d); err != nil {
		return nil, err
	}

	if err := s.tracker.Clear(ctx, d); err != nil {
		return nil, fmt.Errorf("self-destruct workflow for %s is removed but clearing tags failed: %w", d.Name, err)
	}

	logr.FromContextOrDiscard(ctx).Info(fmt.Sprintf("Self-destruct sequence deactivated for %s", d.Name))
	return d, nil
}

// List returns every resource and resource group scheduled for deletion.
// Entries whose deadline has passed are still listed and logged as overdue.
func (s *Service) List(ctx context.Context) ([]tags.Entry, error) {
	entries, err := s.tracker.List(ctx)
	logger := logr.FromContextOrDiscard(ctx)
	now := s.now()
	for _, e := range entries {
		deadline, ok := e.Deadline()
		switch {
		case !ok:
			logger.Info("Self-destruct date tag is missing or malformed", "name", e.Name, "resourceGroup", e.ResourceGroup, "date", e.Date)
		case deadline.Before(now):
			logger.Info("Scheduled deletion is overdue, the workflow may have failed",
				"name", e.Name, "resourceGroup", e.ResourceGroup, "overdueBy", duration.Format(now.Sub(deadline)))
		}
	}
	return entries, err
}
