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
	"time"

	"github.com/mikelane/selfdestruct/internal/credential"
)

const (
	// WorkflowNamespace is the provider namespace of the scheduled workflow.
	WorkflowNamespace = "Microsoft.Logic"
	// WorkflowType is the resource type of the scheduled workflow.
	WorkflowType = "workflows"
	// WorkflowAPIVersion is the API version used to address the workflow.
	WorkflowAPIVersion = "2019-05-01"
)

// Mode selects how the deployed workflow authenticates when it deletes the target.
// It is either Delegated or ManagedIdentity.
type Mode interface {
	// String names the mode in logs.
	String() string

	template() []byte
	parameters(req Request) map[string]any
}

// Delegated deploys a workflow that authenticates as the given service principal.
type Delegated struct {
	Credential credential.Credential
}

func (Delegated) String() string { return "delegated" }

func (Delegated) template() []byte { return delegatedTemplate }

func (m Delegated) parameters(Request) map[string]any {
	return map[string]any{
		"servicePrincipalClientId":     param(m.Credential.ClientID),
		"servicePrincipalClientSecret": param(m.Credential.ClientSecret),
		"servicePrincipalTenantId":     param(m.Credential.TenantID),
	}
}

// ManagedIdentity deploys a workflow that authenticates with its own
// system-assigned identity, granted Contributor on the workflow's resource
// group through a role assignment named by RoleAssignmentName.
type ManagedIdentity struct{}

func (ManagedIdentity) String() string { return "managed-identity" }

func (ManagedIdentity) template() []byte { return managedIdentityTemplate }

func (ManagedIdentity) parameters(req Request) map[string]any {
	return map[string]any{"roleAssignmentName": param(req.RoleAssignment)}
}

// Request is everything needed to submit one deletion workflow deployment.
type Request struct {
	Name          string
	ResourceGroup string
	TargetURI     string
	Deadline      time.Time
	Mode          Mode
	// RoleAssignment is the name of the managed identity's role assignment.
	RoleAssignment string
}

// Result describes a completed deployment.
type Result struct {
	Name              string
	ResourceGroup     string
	ProvisioningState string
	CorrelationID     string
	Timestamp         time.Time
}

// Client submits and removes deployments through the management API.
type Client interface {
	// CreateOrUpdate submits an incremental deployment and blocks until it reaches
	// a terminal state.
	CreateOrUpdate(ctx context.Context, resourceGroup, name string, template, parameters map[string]any) (*Result, error)
	// GetWorkflow returns an errdefs NotFound error when the workflow does not exist.
	GetWorkflow(ctx context.Context, resourceGroup, name string) error
	DeleteWorkflow(ctx context.Context, resourceGroup, name string) error
	DeleteDeployment(ctx context.Context, resourceGroup, name string) error
	// DeleteRoleAssignment deletes a role assignment at resource group scope.
	// It returns an errdefs NotFound error when the assignment does not exist.
	DeleteRoleAssignment(ctx context.Context, resourceGroup, name string) error
}

func param(v any) map[string]any {
	return map[string]any{"value": v}
}
