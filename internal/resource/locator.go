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
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/go-logr/logr"

	"github.com/mikelane/selfdestruct/internal/errdefs"
)

// Locator resolves a Target into a Descriptor.
type Locator struct {
	reader  Reader
	catalog ProviderCatalog

	mu          sync.Mutex
	apiVersions map[string]string
}

// NewLocator creates a Locator backed by the given reader and provider catalog.
func NewLocator(reader Reader, catalog ProviderCatalog) *Locator {
	return &Locator{
		reader:      reader,
		catalog:     catalog,
		apiVersions: make(map[string]string),
	}
}

// Resolve builds a Descriptor for target. Exactly one of ResourceID and
// ResourceGroup must be set. A resource id that names a resource group is
// resolved as that group.
func (l *Locator) Resolve(ctx context.Context, target Target) (*Descriptor, error) {
	hasID := strings.TrimSpace(target.ResourceID) != ""
	hasGroup := strings.TrimSpace(target.ResourceGroup) != ""
	if hasID == hasGroup {
		return nil, errdefs.InvalidInput(errdefs.ReasonAmbiguousTarget,
			"you must specify exactly one of a resource id or a resource group name")
	}

	if hasGroup {
		return l.resolveGroup(ctx, strings.TrimSpace(target.ResourceGroup))
	}
	return l.resolveID(ctx, strings.TrimSpace(target.ResourceID))
}

func (l *Locator) resolveGroup(ctx context.Context, name string) (*Descriptor, error) {
	group, err := l.reader.GetResourceGroup(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, errdefs.NotFound("could not find resource group with name: %s", name)
		}
		return nil, fmt.Errorf("failed to get resource group %s: %w", name, err)
	}

	rid, err := arm.ParseResourceID(group.ID)
	if err != nil {
		return nil, errdefs.External(err, "resource group %s has an unparseable id %q", name, group.ID)
	}

	return &Descriptor{
		ID:             group.ID,
		Name:           group.Name,
		Namespace:      GroupNamespace,
		ResourceType:   GroupResourceType,
		ParentType:     GroupParentType,
		ResourceGroup:  group.Name,
		SubscriptionID: rid.SubscriptionID,
		APIVersion:     GroupAPIVersion,
	}, nil
}

func (l *Locator) resolveID(ctx context.Context, id string) (*Descriptor, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindInvalidInput, err, "invalid resource id %q", id)
	}

	if strings.EqualFold(rid.ResourceType.String(), GroupNamespace+"/"+GroupResourceType) {
		return l.resolveGroup(ctx, rid.Name)
	}

	types := rid.ResourceType.Types
	if rid.ResourceGroupName == "" || len(types) == 0 {
		return nil, errdefs.Unsupported("%s is not a resource inside a resource group", id)
	}

	namespace := rid.ResourceType.Namespace
	leaf := types[len(types)-1]
	var parent string
	if types[0] != leaf {
		parent = types[0]
	}

	apiVersion, err := l.apiVersion(ctx, namespace, types)
	if err != nil {
		return nil, err
	}

	res, err := l.reader.GetResource(ctx, id, apiVersion)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, errdefs.NotFound("could not find resource with id: %s", id)
		}
		return nil, fmt.Errorf("failed to get resource %s: %w", id, err)
	}

	name := res.Name
	if name == "" {
		name = rid.Name
	}
	canonicalID := res.ID
	if canonicalID == "" {
		canonicalID = id
	}

	return &Descriptor{
		ID:             canonicalID,
		Name:           name,
		Namespace:      namespace,
		ResourceType:   leaf,
		ParentType:     parent,
		ResourceGroup:  rid.ResourceGroupName,
		SubscriptionID: rid.SubscriptionID,
		APIVersion:     apiVersion,
	}, nil
}

// apiVersion returns a cached or freshly looked-up API version for the type.
// Nested types are looked up by their full path first, then by leaf type.
func (l *Locator) apiVersion(ctx context.Context, namespace string, types []string) (string, error) {
	candidates := []string{strings.Join(types, "/")}
	if len(types) > 1 {
		candidates = append(candidates, types[len(types)-1])
	}

	key := strings.ToLower(namespace + "/" + candidates[0])
	l.mu.Lock()
	cached, ok := l.apiVersions[key]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	logger := logr.FromContextOrDiscard(ctx)
	for _, resourceType := range candidates {
		versions, err := l.catalog.APIVersions(ctx, namespace, resourceType)
		if err != nil {
			return "", fmt.Errorf("failed to look up API versions for %s/%s: %w", namespace, resourceType, err)
		}
		if v := PickAPIVersion(versions); v != "" {
			logger.V(1).Info("Resolved API version", "type", namespace+"/"+resourceType, "apiVersion", v)
			l.mu.Lock()
			l.apiVersions[key] = v
			l.mu.Unlock()
			return v, nil
		}
	}

	return "", errdefs.NotFound("provider %s does not list an API version for %s", namespace, candidates[0])
}

// PickAPIVersion returns the first stable version in versions, or the first
// version if all of them are previews.
func PickAPIVersion(versions []string) string {
	for _, v := range versions {
		if v != "" && !strings.Contains(strings.ToLower(v), "preview") {
			return v
		}
	}
	for _, v := range versions {
		if v != "" {
			return v
		}
	}
	return ""
}
