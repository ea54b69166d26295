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
	"errors"
	"strings"
	"testing"

	"github.com/mikelane/selfdestruct/internal/errdefs"
)

const (
	storageID = "/subscriptions/sub-1/resourceGroups/rg1/providers/Microsoft.Storage/storageAccounts/acct1"
	subnetID  = "/subscriptions/sub-1/resourceGroups/rg1/providers/Microsoft.Network/virtualNetworks/vnet1/subnets/default"
	groupID   = "/subscriptions/sub-1/resourceGroups/rg1"
)

type fakeReader struct {
	resources map[string]*Resource
	groups    map[string]*Group
	err       error
}

func (f *fakeReader) GetResource(_ context.Context, id, _ string) (*Resource, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.resources[strings.ToLower(id)]; ok {
		return r, nil
	}
	return nil, errdefs.NotFound("resource %s not found", id)
}

func (f *fakeReader) GetResourceGroup(_ context.Context, name string) (*Group, error) {
	if f.err != nil {
		return nil, f.err
	}
	if g, ok := f.groups[name]; ok {
		return g, nil
	}
	return nil, errdefs.NotFound("group %s not found", name)
}

type fakeCatalog struct {
	versions map[string][]string
	calls    []string
}

func (f *fakeCatalog) APIVersions(_ context.Context, namespace, resourceType string) ([]string, error) {
	f.calls = append(f.calls, namespace+"/"+resourceType)
	return f.versions[namespace+"/"+resourceType], nil
}

func newFakes() (*fakeReader, *fakeCatalog) {
	reader := &fakeReader{
		resources: map[string]*Resource{
			strings.ToLower(storageID): {ID: storageID, Name: "acct1", Type: "Microsoft.Storage/storageAccounts"},
			strings.ToLower(subnetID):  {ID: subnetID, Name: "default", Type: "Microsoft.Network/virtualNetworks/subnets"},
		},
		groups: map[string]*Group{
			"rg1": {ID: groupID, Name: "rg1", Location: "westus2"},
		},
	}
	catalog := &fakeCatalog{
		versions: map[string][]string{
			"Microsoft.Storage/storageAccounts":         {"2024-01-01-preview", "2023-05-01", "2022-09-01"},
			"Microsoft.Network/virtualNetworks/subnets": {"2024-03-01"},
		},
	}
	return reader, catalog
}

func TestLocator_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		target     Target
		want       *Descriptor
		wantKind   errdefs.Kind
		wantReason errdefs.Reason
	}{
		{
			name:       "neither id nor group",
			target:     Target{},
			wantKind:   errdefs.KindInvalidInput,
			wantReason: errdefs.ReasonAmbiguousTarget,
		},
		{
			name:       "both id and group",
			target:     Target{ResourceID: storageID, ResourceGroup: "rg1"},
			wantKind:   errdefs.KindInvalidInput,
			wantReason: errdefs.ReasonAmbiguousTarget,
		},
		{
			name:   "top level resource",
			target: Target{ResourceID: storageID},
			want: &Descriptor{
				ID:             storageID,
				Name:           "acct1",
				Namespace:      "Microsoft.Storage",
				ResourceType:   "storageAccounts",
				ResourceGroup:  "rg1",
				SubscriptionID: "sub-1",
				APIVersion:     "2023-05-01",
			},
		},
		{
			name:   "nested resource records parent type",
			target: Target{ResourceID: subnetID},
			want: &Descriptor{
				ID:             subnetID,
				Name:           "default",
				Namespace:      "Microsoft.Network",
				ResourceType:   "subnets",
				ParentType:     "virtualNetworks",
				ResourceGroup:  "rg1",
				SubscriptionID: "sub-1",
				APIVersion:     "2024-03-01",
			},
		},
		{
			name:   "resource group by name",
			target: Target{ResourceGroup: "rg1"},
			want: &Descriptor{
				ID:             groupID,
				Name:           "rg1",
				Namespace:      GroupNamespace,
				ResourceType:   GroupResourceType,
				ParentType:     GroupParentType,
				ResourceGroup:  "rg1",
				SubscriptionID: "sub-1",
				APIVersion:     GroupAPIVersion,
			},
		},
		{
			name:   "resource group by id",
			target: Target{ResourceID: groupID},
			want: &Descriptor{
				ID:             groupID,
				Name:           "rg1",
				Namespace:      GroupNamespace,
				ResourceType:   GroupResourceType,
				ParentType:     GroupParentType,
				ResourceGroup:  "rg1",
				SubscriptionID: "sub-1",
				APIVersion:     GroupAPIVersion,
			},
		},
		{
			name:     "missing group",
			target:   Target{ResourceGroup: "nope"},
			wantKind: errdefs.KindNotFound,
		},
		{
			name:     "missing resource",
			target:   Target{ResourceID: "/subscriptions/sub-1/resourceGroups/rg1/providers/Microsoft.Storage/storageAccounts/gone"},
			wantKind: errdefs.KindNotFound,
		},
		{
			name:     "malformed id",
			target:   Target{ResourceID: "not-an-id"},
			wantKind: errdefs.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, catalog := newFakes()
			l := NewLocator(reader, catalog)

			got, err := l.Resolve(context.Background(), tt.target)

			if (err != nil) != (tt.wantKind != "") {
				t.Fatalf("Resolve() error = %v, wantKind %q", err, tt.wantKind)
			}
			if tt.wantKind != "" {
				if errdefs.KindOf(err) != tt.wantKind {
					t.Errorf("Resolve() kind = %q, want %q", errdefs.KindOf(err), tt.wantKind)
				}
				if tt.wantReason != "" && errdefs.ReasonOf(err) != tt.wantReason {
					t.Errorf("Resolve() reason = %q, want %q", errdefs.ReasonOf(err), tt.wantReason)
				}
				return
			}
			if *got != *tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLocator_Resolve_CachesAPIVersions(t *testing.T) {
	reader, catalog := newFakes()
	l := NewLocator(reader, catalog)

	for i := 0; i < 3; i++ {
		if _, err := l.Resolve(context.Background(), Target{ResourceID: storageID}); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if len(catalog.calls) != 1 {
		t.Errorf("catalog called %d times, want 1", len(catalog.calls))
	}
}

func TestLocator_Resolve_NestedFallsBackToLeafType(t *testing.T) {
	reader, catalog := newFakes()
	catalog.versions = map[string][]string{"Microsoft.Network/subnets": {"2020-01-01"}}
	l := NewLocator(reader, catalog)

	got, err := l.Resolve(context.Background(), Target{ResourceID: subnetID})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.APIVersion != "2020-01-01" {
		t.Errorf("APIVersion = %q, want 2020-01-01", got.APIVersion)
	}
	if len(catalog.calls) != 2 {
		t.Errorf("catalog calls = %v, want full path then leaf", catalog.calls)
	}
}

func TestLocator_Resolve_ReaderFailure(t *testing.T) {
	reader, catalog := newFakes()
	reader.err = errdefs.External(errors.New("503"), "management API unavailable")
	l := NewLocator(reader, catalog)

	_, err := l.Resolve(context.Background(), Target{ResourceGroup: "rg1"})
	if !errdefs.IsExternalService(err) {
		t.Errorf("Resolve() error = %v, want ExternalServiceError", err)
	}
}

func TestDescriptor_Helpers(t *testing.T) {
	group := &Descriptor{Namespace: GroupNamespace, ResourceType: GroupResourceType, ParentType: GroupParentType, Name: "rg1"}
	if !group.IsResourceGroup() || group.Kind() != GroupKind {
		t.Errorf("group descriptor Kind() = %q", group.Kind())
	}
	if got := group.FullType(); got != "Microsoft.Resources/subscriptions/resourceGroups" {
		t.Errorf("FullType() = %q", got)
	}
	if got := group.Target(); got.ResourceGroup != "rg1" || got.ResourceID != "" {
		t.Errorf("Target() = %+v", got)
	}

	subnet := &Descriptor{ID: subnetID, Namespace: "Microsoft.Network", ResourceType: "subnets", ParentType: "virtualNetworks"}
	if subnet.Kind() != "subnets" {
		t.Errorf("Kind() = %q, want subnets", subnet.Kind())
	}
	if got := subnet.Target(); got.ResourceID != subnetID {
		t.Errorf("Target() = %+v", got)
	}
}

func TestPickAPIVersion(t *testing.T) {
	tests := []struct {
		versions []string
		want     string
	}{
		{versions: []string{"2024-01-01-preview", "2023-01-01"}, want: "2023-01-01"},
		{versions: []string{"2024-01-01-preview"}, want: "2024-01-01-preview"},
		{versions: nil, want: ""},
		{versions: []string{"", "2021-01-01"}, want: "2021-01-01"},
	}
	for _, tt := range tests {
		if got := PickAPIVersion(tt.versions); got != tt.want {
			t.Errorf("PickAPIVersion(%v) = %q, want %q", tt.versions, got, tt.want)
		}
	}
}
