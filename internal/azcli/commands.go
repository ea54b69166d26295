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
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/errdefs"
)

// Executor runs the create command of an intercepted invocation.
type Executor struct {
	runner *Runner
}

// NewExecutor creates an Executor.
func NewExecutor(runner *Runner) *Executor {
	return &Executor{runner: runner}
}

// Execute implements pipeline.Executor.
func (e *Executor) Execute(ctx context.Context, args []string) (map[string]any, error) {
	return e.runner.JSON(ctx, args...)
}

// Issuer creates a service principal with az ad sp create-for-rbac.
type Issuer struct {
	runner         *Runner
	subscriptionID string
}

// NewIssuer creates an Issuer that scopes new principals to subscriptionID.
func NewIssuer(runner *Runner, subscriptionID string) *Issuer {
	return &Issuer{runner: runner, subscriptionID: subscriptionID}
}

// Issue implements credential.Issuer.
func (i *Issuer) Issue(ctx context.Context) (credential.Credential, error) {
	logr.FromContextOrDiscard(ctx).Info("Creating a service principal with `Contributor` rights over the entire subscription",
		"subscription", i.subscriptionID)

	args := []string{"ad", "sp", "create-for-rbac", "--role", "Contributor"}
	if i.subscriptionID != "" {
		args = append(args, "--scopes", "/subscriptions/"+i.subscriptionID)
	}
	out, err := i.runner.JSON(ctx, args...)
	if err != nil {
		return credential.Credential{}, fmt.Errorf("failed to create a service principal: %w", err)
	}

	cred := credential.Credential{
		ClientID:     stringField(out, "appId"),
		ClientSecret: stringField(out, "password"),
		TenantID:     stringField(out, "tenant"),
	}
	if !cred.Complete() {
		return credential.Credential{}, errdefs.External(nil, "az ad sp create-for-rbac returned an incomplete service principal")
	}
	return cred, nil
}

// SubscriptionID returns the id of the subscription az is logged in to.
func SubscriptionID(ctx context.Context, runner *Runner) (string, error) {
	out, err := runner.JSON(ctx, "account", "show")
	if err != nil {
		return "", fmt.Errorf("failed to read the active subscription: %w", err)
	}
	id := stringField(out, "id")
	if id == "" {
		return "", errdefs.New(errdefs.KindConfiguration, errdefs.ReasonUnknown,
			"no active subscription; run `az login` or set subscription_id")
	}
	return id, nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
