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

package deploy

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/tags"
)

// maxNameLength is the longest deployment name the management API accepts.
const maxNameLength = 64

var (
	//go:embed templates/delegated.json
	delegatedTemplate []byte

	//go:embed templates/managed_identity.json
	managedIdentityTemplate []byte
)

// Deployer submits and removes deletion workflows.
type Deployer struct {
	client   Client
	endpoint string
}

// NewDeployer creates a Deployer. managementEndpoint is the base URL of the
// management API the workflow calls, e.g. https://management.azure.com.
func NewDeployer(client Client, managementEndpoint string) *Deployer {
	return &Deployer{
		client:   client,
		endpoint: strings.TrimSuffix(managementEndpoint, "/"),
	}
}

// Name returns the deterministic deployment and workflow name for target:
// self-destruct-{kind}-{resourceGroup}-{name}. Names longer than the API allows
// are shortened and suffixed with a hash of the full name.
func Name(target *resource.Descriptor) string {
	name := fmt.Sprintf("self-destruct-%s-%s-%s", target.Kind(), target.ResourceGroup, target.Name)
	if len(name) <= maxNameLength {
		return name
	}

	h := sha256.New()
	h.Write([]byte(name))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:8]
	return strings.TrimRight(name[:maxNameLength-len(hash)-1], "-") + "-" + hash
}

// RoleAssignmentName returns the deterministic role assignment name used by
// the managed identity workflow for target. Role assignment names must be GUIDs.
func RoleAssignmentName(target *resource.Descriptor) string {
	seed := strings.ToLower(fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/%s",
		target.SubscriptionID, target.ResourceGroup, Name(target)))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// TargetURI builds the URI the workflow sends its DELETE to.
func (d *Deployer) TargetURI(target *resource.Descriptor) string {
	return fmt.Sprintf("%s%s?api-version=%s", d.endpoint, target.ID, target.APIVersion)
}

// BuildRequest assembles the deployment request for target.
func (d *Deployer) BuildRequest(target *resource.Descriptor, deadline time.Time, mode Mode) Request {
	return Request{
		Name:          Name(target),
		ResourceGroup: target.ResourceGroup,
		TargetURI:     d.TargetURI(target),
		Deadline:      deadline.UTC(),
		Mode:          mode,

		RoleAssignment: RoleAssignmentName(target),
	}
}

// Parameters returns the deployment parameters for req.
func (req Request) Parameters() map[string]any {
	params := map[string]any{
		"name":        param(req.Name),
		"utcTime":     param(tags.FormatDeadline(req.Deadline)),
		"resourceUri": param(req.TargetURI),
	}
	for k, v := range req.Mode.parameters(req) {
		params[k] = v
	}
	return params
}

// Deploy submits the deletion workflow for target and waits for the deployment
// to finish. Redeploying the same target updates the existing workflow.
func (d *Deployer) Deploy(ctx context.Context, target *resource.Descriptor, deadline time.Time, mode Mode) (*Result, error) {
	if mode == nil {
		return nil, errdefs.InvalidInput(errdefs.ReasonUnknown, "a deployment mode is required")
	}
	if m, ok := mode.(Delegated); ok && !m.Credential.Complete() {
		return nil, errdefs.New(errdefs.KindConfiguration, errdefs.ReasonNotConfigured,
			"delegated mode requires a complete service principal credential")
	}

	req := d.BuildRequest(target, deadline, mode)
	logger := logr.FromContextOrDiscard(ctx).WithValues("deployment", req.Name, "resourceGroup", req.ResourceGroup, "mode", mode.String())

	var template map[string]any
	if err := json.Unmarshal(mode.template(), &template); err != nil {
		return nil, fmt.Errorf("failed to decode %s workflow template: %w", mode, err)
	}

	logger.Info("Deploying self-destruct workflow", "resourceUri", req.TargetURI, "utcTime", tags.FormatDeadline(req.Deadline))
	result, err := d.client.CreateOrUpdate(ctx, req.ResourceGroup, req.Name, template, req.Parameters())
	if err != nil {
		logger.Error(err, "Self-destruct workflow deployment failed")
		return nil, errdefs.External(err, "failed to deploy self-destruct workflow %s", req.Name)
	}

	logger.V(1).Info("Deployed self-destruct workflow", "provisioningState", result.ProvisioningState, "correlationId", result.CorrelationID)
	return result, nil
}

// Remove deletes the deletion workflow for target, the role assignment of its
// managed identity if any, and its deployment record.
// It fails with NotFound when no workflow is scheduled for target.
func (d *Deployer) Remove(ctx context.Context, target *resource.Descriptor) error {
	name := Name(target)
	logger := logr.FromContextOrDiscard(ctx).WithValues("workflow", name, "resourceGroup", target.ResourceGroup)

	if err := d.client.GetWorkflow(ctx, target.ResourceGroup, name); err != nil {
		if errdefs.IsNotFound(err) {
			return errdefs.NotFound("could not find a self-destruct workflow for %s", target.Name)
		}
		return errdefs.External(err, "failed to look up self-destruct workflow %s", name)
	}

	// Assignment first, so a failed disarm can be retried while the workflow exists.
	assignment := RoleAssignmentName(target)
	if err := errdefs.IgnoreNotFound(d.client.DeleteRoleAssignment(ctx, target.ResourceGroup, assignment)); err != nil {
		return errdefs.External(err, "failed to delete role assignment %s of self-destruct workflow %s", assignment, name)
	}

	if err := d.client.DeleteWorkflow(ctx, target.ResourceGroup, name); err != nil {
		return errdefs.External(err, "failed to delete self-destruct workflow %s", name)
	}

	if err := errdefs.IgnoreNotFound(d.client.DeleteDeployment(ctx, target.ResourceGroup, name)); err != nil {
		logger.Error(err, "Failed to delete deployment record, the workflow itself is gone")
	}

	logger.V(1).Info("Removed self-destruct workflow")
	return nil
}
