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

package azure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/go-logr/logr"
	"k8s.io/utils/ptr"

	"github.com/mikelane/selfdestruct/internal/deploy"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/tags"
)

// DefaultPollFrequency is how often long-running operations are polled.
const DefaultPollFrequency = 5 * time.Second

var (
	_ resource.Reader          = (*Client)(nil)
	_ resource.ProviderCatalog = (*Client)(nil)
	_ tags.Store               = (*Client)(nil)
	_ deploy.Client            = (*Client)(nil)
)

// Client talks to Resource Manager for one subscription.
type Client struct {
	subscriptionID string
	pollFrequency  time.Duration

	resources   *armresources.Client
	groups      *armresources.ResourceGroupsClient
	deployments *armresources.DeploymentsClient
	providers   *armresources.ProvidersClient
	tags        *armresources.TagsClient

	roleAssignments *armauthorization.RoleAssignmentsClient
}

// NewClient creates a Client authenticated with cred.
func NewClient(cred azcore.TokenCredential, subscriptionID string, env Environment, pollFrequency time.Duration) (*Client, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscription id cannot be empty")
	}
	if pollFrequency <= 0 {
		pollFrequency = DefaultPollFrequency
	}

	factory, err := armresources.NewClientFactory(subscriptionID, cred, env.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create resource manager clients: %w", err)
	}
	roleAssignments, err := armauthorization.NewRoleAssignmentsClient(subscriptionID, cred, env.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create role assignments client: %w", err)
	}

	return &Client{
		subscriptionID: subscriptionID,
		pollFrequency:  pollFrequency,
		resources:      factory.NewClient(),
		groups:         factory.NewResourceGroupsClient(),
		deployments:    factory.NewDeploymentsClient(),
		providers:      factory.NewProvidersClient(),
		tags:           factory.NewTagsClient(),

		roleAssignments: roleAssignments,
	}, nil
}

func (c *Client) pollOptions() *runtime.PollUntilDoneOptions {
	return &runtime.PollUntilDoneOptions{Frequency: c.pollFrequency}
}

// GetResource implements resource.Reader.
func (c *Client) GetResource(ctx context.Context, id, apiVersion string) (*resource.Resource, error) {
	resp, err := c.resources.GetByID(ctx, id, apiVersion, nil)
	if err != nil {
		return nil, translate(ctx, err, "failed to get resource %s", id)
	}
	return &resource.Resource{
		ID:   ptr.Deref(resp.ID, id),
		Name: ptr.Deref(resp.Name, ""),
		Type: ptr.Deref(resp.Type, ""),
	}, nil
}

// GetResourceGroup implements resource.Reader.
func (c *Client) GetResourceGroup(ctx context.Context, name string) (*resource.Group, error) {
	resp, err := c.groups.Get(ctx, name, nil)
	if err != nil {
		return nil, translate(ctx, err, "failed to get resource group %s", name)
	}
	return &resource.Group{
		ID:       ptr.Deref(resp.ID, ""),
		Name:     ptr.Deref(resp.Name, name),
		Location: ptr.Deref(resp.Location, ""),
	}, nil
}

// APIVersions implements resource.ProviderCatalog.
func (c *Client) APIVersions(ctx context.Context, namespace, resourceType string) ([]string, error) {
	resp, err := c.providers.Get(ctx, namespace, nil)
	if err != nil {
		return nil, translate(ctx, err, "failed to get provider %s", namespace)
	}
	for _, rt := range resp.ResourceTypes {
		if rt == nil || !strings.EqualFold(ptr.Deref(rt.ResourceType, ""), resourceType) {
			continue
		}
		versions := make([]string, 0, len(rt.APIVersions))
		for _, v := range rt.APIVersions {
			if v != nil {
				versions = append(versions, *v)
			}
		}
		return versions, nil
	}
	return nil, nil
}

// Tags implements tags.Store.
func (c *Client) Tags(ctx context.Context, target *resource.Descriptor) (map[string]string, error) {
	resp, err := c.tags.GetAtScope(ctx, target.ID, nil)
	if err != nil {
		return nil, translate(ctx, err, "failed to get tags of %s", target.ID)
	}
	if resp.Properties == nil {
		return nil, nil
	}
	return fromTags(resp.Properties.Tags), nil
}

// MergeTags implements tags.Store.
func (c *Client) MergeTags(ctx context.Context, target *resource.Descriptor, desired map[string]string) error {
	return c.patchTags(ctx, target, armresources.TagsPatchOperationMerge, desired)
}

// DeleteTags implements tags.Store.
func (c *Client) DeleteTags(ctx context.Context, target *resource.Descriptor, owned map[string]string) error {
	return c.patchTags(ctx, target, armresources.TagsPatchOperationDelete, owned)
}

func (c *Client) patchTags(ctx context.Context, target *resource.Descriptor, op armresources.TagsPatchOperation, set map[string]string) error {
	_, err := c.tags.UpdateAtScope(ctx, target.ID, armresources.TagsPatchResource{
		Operation:  ptr.To(op),
		Properties: &armresources.Tags{Tags: toTags(set)},
	}, nil)
	if err != nil {
		return translate(ctx, err, "failed to %s tags of %s", strings.ToLower(string(op)), target.ID)
	}
	return nil
}

func tagFilter(key string) *string {
	return ptr.To(fmt.Sprintf("tagName eq '%s'", key))
}

// ListTaggedGroups implements tags.Store.
func (c *Client) ListTaggedGroups(ctx context.Context, key string) ([]tags.Tagged, error) {
	var out []tags.Tagged
	pager := c.groups.NewListPager(&armresources.ResourceGroupsClientListOptions{Filter: tagFilter(key)})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return out, translate(ctx, err, "failed to list resource groups tagged %s", key)
		}
		for _, g := range page.Value {
			if g == nil {
				continue
			}
			name := ptr.Deref(g.Name, "")
			out = append(out, tags.Tagged{
				ID:            ptr.Deref(g.ID, ""),
				Name:          name,
				ResourceGroup: name,
				Type:          resource.GroupKind,
				Tags:          fromTags(g.Tags),
			})
		}
	}
	return out, nil
}

// ListTaggedResources implements tags.Store.
func (c *Client) ListTaggedResources(ctx context.Context, key string) ([]tags.Tagged, error) {
	var out []tags.Tagged
	pager := c.resources.NewListPager(&armresources.ClientListOptions{Filter: tagFilter(key)})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return out, translate(ctx, err, "failed to list resources tagged %s", key)
		}
		for _, r := range page.Value {
			if r == nil {
				continue
			}
			id := ptr.Deref(r.ID, "")
			out = append(out, tags.Tagged{
				ID:            id,
				Name:          ptr.Deref(r.Name, ""),
				ResourceGroup: resourceGroupOf(id),
				Type:          ptr.Deref(r.Type, ""),
				Tags:          fromTags(r.Tags),
			})
		}
	}
	return out, nil
}

// CreateOrUpdate implements deploy.Client.
func (c *Client) CreateOrUpdate(ctx context.Context, resourceGroup, name string, template, parameters map[string]any) (*deploy.Result, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("deployment", name, "resourceGroup", resourceGroup)

	poller, err := c.deployments.BeginCreateOrUpdate(ctx, resourceGroup, name, armresources.Deployment{
		Properties: &armresources.DeploymentProperties{
			Mode:       ptr.To(armresources.DeploymentModeIncremental),
			Template:   template,
			Parameters: parameters,
		},
	}, nil)
	if err != nil {
		return nil, translate(ctx, err, "failed to submit deployment %s", name)
	}

	logger.V(1).Info("Waiting for deployment to finish", "pollFrequency", c.pollFrequency.String())
	resp, err := poller.PollUntilDone(ctx, c.pollOptions())
	if err != nil {
		return nil, translate(ctx, err, "deployment %s failed", name)
	}

	result := &deploy.Result{
		Name:          ptr.Deref(resp.Name, name),
		ResourceGroup: resourceGroup,
	}
	if p := resp.Properties; p != nil {
		if p.ProvisioningState != nil {
			result.ProvisioningState = string(*p.ProvisioningState)
		}
		result.CorrelationID = ptr.Deref(p.CorrelationID, "")
		result.Timestamp = ptr.Deref(p.Timestamp, time.Time{})
	}
	return result, nil
}

func (c *Client) workflowID(resourceGroup, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s/%s",
		c.subscriptionID, resourceGroup, deploy.WorkflowNamespace, deploy.WorkflowType, name)
}

// GetWorkflow implements deploy.Client.
func (c *Client) GetWorkflow(ctx context.Context, resourceGroup, name string) error {
	if _, err := c.resources.GetByID(ctx, c.workflowID(resourceGroup, name), deploy.WorkflowAPIVersion, nil); err != nil {
		return translate(ctx, err, "failed to get workflow %s", name)
	}
	return nil
}

// DeleteWorkflow implements deploy.Client.
func (c *Client) DeleteWorkflow(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.resources.BeginDeleteByID(ctx, c.workflowID(resourceGroup, name), deploy.WorkflowAPIVersion, nil)
	if err != nil {
		return translate(ctx, err, "failed to delete workflow %s", name)
	}
	if _, err := poller.PollUntilDone(ctx, c.pollOptions()); err != nil {
		return translate(ctx, err, "failed to delete workflow %s", name)
	}
	return nil
}

// DeleteRoleAssignment implements deploy.Client.
func (c *Client) DeleteRoleAssignment(ctx context.Context, resourceGroup, name string) error {
	scope := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", c.subscriptionID, resourceGroup)
	if _, err := c.roleAssignments.Delete(ctx, scope, name, nil); err != nil {
		return translate(ctx, err, "failed to delete role assignment %s", name)
	}
	return nil
}

// DeleteDeployment implements deploy.Client.
func (c *Client) DeleteDeployment(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.deployments.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return translate(ctx, err, "failed to delete deployment %s", name)
	}
	if _, err := poller.PollUntilDone(ctx, c.pollOptions()); err != nil {
		return translate(ctx, err, "failed to delete deployment %s", name)
	}
	return nil
}

func fromTags(in map[string]*string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = ptr.Deref(v, "")
	}
	return out
}

func toTags(in map[string]string) map[string]*string {
	out := make(map[string]*string, len(in))
	for k, v := range in {
		out[k] = ptr.To(v)
	}
	return out
}

func resourceGroupOf(id string) string {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return ""
	}
	return rid.ResourceGroupName
}
