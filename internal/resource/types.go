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

package resource

import (
	"context"
	"strings"
)

const (
	// GroupNamespace is the provider namespace used for resource group descriptors.
	GroupNamespace = "Microsoft.Resources"
	// GroupResourceType is the ARM type segment of a resource group.
	GroupResourceType = "resourceGroups"
	// GroupParentType is the parent segment used when authorizing resource group deletion
	// (Microsoft.Resources/subscriptions/resourceGroups/delete).
	GroupParentType = "subscriptions"
	// GroupAPIVersion is the API version used to address resource groups.
	GroupAPIVersion = "2018-02-01"
	// GroupKind is how resource groups are named in deployment names and listings.
	GroupKind = "resourceGroup"
)

// Target identifies what the caller wants to schedule: either a resource id or a
// resource group name, never both.
type Target struct {
	ResourceID    string
	ResourceGroup string
}

// String returns whichever of the two fields is set.
func (t Target) String() string {
	if t.ResourceID != "" {
		return t.ResourceID
	}
	return t.ResourceGroup
}

// Descriptor is the structured form of a resource reference. It is built by the
// Locator and not modified afterwards.
type Descriptor struct {
	ID             string
	Name           string
	Namespace      string
	ResourceType   string
	ParentType     string
	ResourceGroup  string
	SubscriptionID string
	APIVersion     string
}

// IsResourceGroup reports whether the descriptor addresses a resource group.
func (d *Descriptor) IsResourceGroup() bool {
	return d.Namespace == GroupNamespace && d.ResourceType == GroupResourceType
}

// Kind is the short type used in deployment names and listings: the leaf
// resource type, or "resourceGroup" for groups.
func (d *Descriptor) Kind() string {
	if d.IsResourceGroup() {
		return GroupKind
	}
	return d.ResourceType
}

// FullType joins namespace, parent type and resource type with slashes.
func (d *Descriptor) FullType() string {
	parts := []string{d.Namespace}
	if d.ParentType != "" {
		parts = append(parts, d.ParentType)
	}
	parts = append(parts, d.ResourceType)
	return strings.Join(parts, "/")
}

// Target converts the descriptor back into the Target that addresses it.
func (d *Descriptor) Target() Target {
	if d.IsResourceGroup() {
		return Target{ResourceGroup: d.Name}
	}
	return Target{ResourceID: d.ID}
}

// Resource is what the Reader returns for a resource id.
type Resource struct {
	ID   string
	Name string
	Type string
}

// Group is what the Reader returns for a resource group name.
type Group struct {
	ID       string
	Name     string
	Location string
}

// Reader fetches resources and resource groups from the management API.
// Both methods return an errdefs NotFound error when the target does not exist.
type Reader interface {
	GetResource(ctx context.Context, id, apiVersion string) (*Resource, error)
	GetResourceGroup(ctx context.Context, name string) (*Group, error)
}

// ProviderCatalog lists the API versions a provider offers for a resource type,
// newest first.
type ProviderCatalog interface {
	APIVersions(ctx context.Context, namespace, resourceType string) ([]string, error)
}
