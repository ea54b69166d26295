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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/mikelane/selfdestruct/internal/azcli"
	"github.com/mikelane/selfdestruct/internal/azure"
	"github.com/mikelane/selfdestruct/internal/config"
	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/deploy"
	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/logging"
	"github.com/mikelane/selfdestruct/internal/permission"
	"github.com/mikelane/selfdestruct/internal/pipeline"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/selfdestruct"
	"github.com/mikelane/selfdestruct/internal/tags"
)

// app holds what every subcommand shares: configuration, output streams and
// the collaborators built from them.
type app struct {
	loader *config.Loader
	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
}

func newApp(out, errOut io.Writer) *app {
	return &app{loader: config.NewLoader(), out: out, errOut: errOut}
}

// setup loads the configuration and returns ctx carrying the logger.
func (a *app) setup(ctx context.Context) (context.Context, error) {
	cfg, err := a.loader.Load()
	if err != nil {
		return ctx, errdefs.Wrap(errdefs.KindConfiguration, err, "invalid configuration")
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log, a.errOut)
	if err != nil {
		return ctx, errdefs.Wrap(errdefs.KindConfiguration, err, "invalid logging configuration")
	}
	return logr.NewContext(ctx, logger), nil
}

func (a *app) runner() *azcli.Runner {
	return azcli.NewRunner(a.cfg.AzBinary)
}

func (a *app) environment() azure.Environment {
	return azure.Environment{ManagementEndpoint: a.cfg.ManagementEndpoint}
}

// credentials returns the credential store. Issuing a new principal resolves
// the subscription only when it is actually needed.
func (a *app) credentials() *credential.Store {
	issuer := credential.IssuerFunc(func(ctx context.Context) (credential.Credential, error) {
		sub, err := a.subscription(ctx)
		if err != nil {
			return credential.Credential{}, err
		}
		return azcli.NewIssuer(a.runner(), sub).Issue(ctx)
	})
	return credential.NewStore(credential.DefaultPath(a.cfg.ConfigDir), issuer)
}

func (a *app) subscription(ctx context.Context) (string, error) {
	if a.cfg.SubscriptionID != "" {
		return a.cfg.SubscriptionID, nil
	}
	return azcli.SubscriptionID(ctx, a.runner())
}

// cloud groups the Azure-backed collaborators.
type cloud struct {
	locator   *resource.Locator
	validator *permission.Validator
	deployer  *deploy.Deployer
	tracker   *tags.Tracker
}

func (a *app) newCloud(ctx context.Context) (*cloud, error) {
	sub, err := a.subscription(ctx)
	if err != nil {
		return nil, err
	}

	env := a.environment()
	cred, err := azure.NewAmbientCredential(env)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	client, err := azure.NewClient(cred, sub, env, a.cfg.Deploy.PollFrequency)
	if err != nil {
		return nil, err
	}
	authz := azure.NewAuthorization(env)
	locator := resource.NewLocator(client, client)

	return &cloud{
		locator:   locator,
		validator: permission.NewValidator(authz, authz),
		deployer:  deploy.NewDeployer(client, env.Endpoint()),
		tracker:   tags.NewTracker(client, locator),
	}, nil
}

// lazyCloud builds the Azure collaborators on first use, so that commands which
// never reach Azure do not need a subscription or a signed-in account.
type lazyCloud struct {
	build func(ctx context.Context) (*cloud, error)

	once  sync.Once
	cloud *cloud
	err   error
}

func (l *lazyCloud) get(ctx context.Context) (*cloud, error) {
	l.once.Do(func() {
		l.cloud, l.err = l.build(ctx)
	})
	return l.cloud, l.err
}

func (l *lazyCloud) Resolve(ctx context.Context, target resource.Target) (*resource.Descriptor, error) {
	c, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return c.locator.Resolve(ctx, target)
}

func (l *lazyCloud) Check(ctx context.Context, cred credential.Credential, target *resource.Descriptor) error {
	c, err := l.get(ctx)
	if err != nil {
		return err
	}
	return c.validator.Check(ctx, cred, target)
}

func (l *lazyCloud) Deploy(ctx context.Context, target *resource.Descriptor, deadline time.Time, mode deploy.Mode) (*deploy.Result, error) {
	c, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return c.deployer.Deploy(ctx, target, deadline, mode)
}

func (l *lazyCloud) Remove(ctx context.Context, target *resource.Descriptor) error {
	c, err := l.get(ctx)
	if err != nil {
		return err
	}
	return c.deployer.Remove(ctx, target)
}

func (l *lazyCloud) Mark(ctx context.Context, target *resource.Descriptor, deadline time.Time) error {
	c, err := l.get(ctx)
	if err != nil {
		return err
	}
	return c.tracker.Mark(ctx, target, deadline)
}

func (l *lazyCloud) Clear(ctx context.Context, target *resource.Descriptor) error {
	c, err := l.get(ctx)
	if err != nil {
		return err
	}
	return c.tracker.Clear(ctx, target)
}

func (l *lazyCloud) List(ctx context.Context) ([]tags.Entry, error) {
	c, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return c.tracker.List(ctx)
}

func (a *app) service() *selfdestruct.Service {
	lc := &lazyCloud{build: a.newCloud}
	return selfdestruct.NewService(a.credentials(), lc, lc, lc, lc)
}

func (a *app) pipeline() *pipeline.Pipeline {
	lc := &lazyCloud{build: a.newCloud}
	return pipeline.New(a.credentials(), lc, lc, lc, azcli.NewExecutor(a.runner()), nil)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
