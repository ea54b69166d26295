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
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/deploy"
	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/permission"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/tags"
)

const subscriptionID = "00000000-0000-0000-0000-000000000001"

// fakeCloud is an in-memory management API covering every collaborator the
// service talks to.
type fakeCloud struct {
	groups      map[string]*resource.Group
	resources   map[string]*resource.Resource
	tags        map[string]map[string]string
	workflows   map[string]bool
	deployments map[string]map[string]any
	// roleAssignments maps an assignment name to the workflow principal it grants.
	roleAssignments map[string]string
	principals      int

	token       permission.AccessToken
	permissions []permission.Permission
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		groups:      map[string]*resource.Group{},
		resources:   map[string]*resource.Resource{},
		tags:        map[string]map[string]string{},
		workflows:   map[string]bool{},
		deployments: map[string]map[string]any{},

		roleAssignments: map[string]string{},
	}
}

func groupID(name string) string {
	return "/subscriptions/" + subscriptionID + "/resourceGroups/" + name
}

func (c *fakeCloud) addGroup(name string, tags map[string]string) {
	c.groups[name] = &resource.Group{ID: groupID(name), Name: name, Location: "westus2"}
	c.tags[groupID(name)] = tags
}

func (c *fakeCloud) addResource(group, typ, name string, tags map[string]string) string {
	id := groupID(group) + "/providers/" + typ + "/" + name
	c.resources[strings.ToLower(id)] = &resource.Resource{ID: id, Name: name, Type: typ}
	c.tags[id] = tags
	return id
}

func (c *fakeCloud) GetResource(_ context.Context, id, _ string) (*resource.Resource, error) {
	r, ok := c.resources[strings.ToLower(id)]
	if !ok {
		return nil, errdefs.NotFound("resource %s not found", id)
	}
	return r, nil
}

func (c *fakeCloud) GetResourceGroup(_ context.Context, name string) (*resource.Group, error) {
	g, ok := c.groups[name]
	if !ok {
		return nil, errdefs.NotFound("resource group %s not found", name)
	}
	return g, nil
}

func (c *fakeCloud) APIVersions(context.Context, string, string) ([]string, error) {
	return []string{"2024-01-01-preview", "2023-05-01"}, nil
}

func (c *fakeCloud) Tags(_ context.Context, target *resource.Descriptor) (map[string]string, error) {
	return maps.Clone(c.tags[target.ID]), nil
}

func (c *fakeCloud) MergeTags(_ context.Context, target *resource.Descriptor, t map[string]string) error {
	if c.tags[target.ID] == nil {
		c.tags[target.ID] = map[string]string{}
	}
	maps.Copy(c.tags[target.ID], t)
	return nil
}

func (c *fakeCloud) DeleteTags(_ context.Context, target *resource.Descriptor, t map[string]string) error {
	for k, v := range t {
		if cur, ok := c.tags[target.ID][k]; ok && cur == v {
			delete(c.tags[target.ID], k)
		}
	}
	return nil
}

func (c *fakeCloud) ListTaggedGroups(_ context.Context, key string) ([]tags.Tagged, error) {
	var out []tags.Tagged
	for _, name := range slices.Sorted(maps.Keys(c.groups)) {
		g := c.groups[name]
		if _, ok := c.tags[g.ID][key]; ok {
			out = append(out, tags.Tagged{ID: g.ID, Name: g.Name, ResourceGroup: g.Name, Tags: maps.Clone(c.tags[g.ID])})
		}
	}
	return out, nil
}

func (c *fakeCloud) ListTaggedResources(_ context.Context, key string) ([]tags.Tagged, error) {
	var out []tags.Tagged
	for _, k := range slices.Sorted(maps.Keys(c.resources)) {
		r := c.resources[k]
		if _, ok := c.tags[r.ID][key]; ok {
			rg := strings.Split(r.ID, "/")[4]
			// Tag-filtered resource listings come back without tag values.
			out = append(out, tags.Tagged{ID: r.ID, Name: r.Name, ResourceGroup: rg, Type: r.Type})
		}
	}
	return out, nil
}

func (c *fakeCloud) CreateOrUpdate(_ context.Context, rg, name string, _, parameters map[string]any) (*deploy.Result, error) {
	if _, ok := c.groups[rg]; !ok {
		return nil, errdefs.NotFound("resource group %s not found", rg)
	}
	if assignment, ok := parameter(parameters, "roleAssignmentName").(string); ok && !c.workflows[rg+"/"+name] {
		// A new workflow gets a new identity. Resource Manager refuses to
		// repoint an existing assignment at a different principal.
		c.principals++
		principal := fmt.Sprintf("principal-%d", c.principals)
		if granted, exists := c.roleAssignments[assignment]; exists && granted != principal {
			return nil, errdefs.External(errors.New("RoleAssignmentUpdateNotPermitted"), "deployment %s failed", name)
		}
		c.roleAssignments[assignment] = principal
	}
	c.deployments[rg+"/"+name] = parameters
	c.workflows[rg+"/"+name] = true
	return &deploy.Result{Name: name, ResourceGroup: rg, ProvisioningState: "Succeeded"}, nil
}

func (c *fakeCloud) GetWorkflow(_ context.Context, rg, name string) error {
	if !c.workflows[rg+"/"+name] {
		return errdefs.NotFound("workflow %s not found", name)
	}
	return nil
}

func (c *fakeCloud) DeleteWorkflow(_ context.Context, rg, name string) error {
	delete(c.workflows, rg+"/"+name)
	return nil
}

func (c *fakeCloud) DeleteRoleAssignment(_ context.Context, _, name string) error {
	if _, ok := c.roleAssignments[name]; !ok {
		return errdefs.NotFound("role assignment %s not found", name)
	}
	delete(c.roleAssignments, name)
	return nil
}

func (c *fakeCloud) DeleteDeployment(_ context.Context, rg, name string) error {
	delete(c.deployments, rg+"/"+name)
	return nil
}

func (c *fakeCloud) Token(context.Context, credential.Credential) (permission.AccessToken, error) {
	return c.token, nil
}

func (c *fakeCloud) Permissions(context.Context, permission.AccessToken, *resource.Descriptor) ([]permission.Permission, error) {
	return c.permissions, nil
}

func parameter(params map[string]any, key string) any {
	p, _ := params[key].(map[string]any)
	return p["value"]
}
