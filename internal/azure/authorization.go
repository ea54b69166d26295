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

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/permission"
	"github.com/mikelane/selfdestruct/internal/resource"
)

// Authorization acquires tokens for the delegated service principal and reads
// the permissions those tokens carry.
type Authorization struct {
	env Environment
}

// NewAuthorization creates an Authorization for env.
func NewAuthorization(env Environment) *Authorization {
	return &Authorization{env: env}
}

// Token implements permission.TokenSource.
func (a *Authorization) Token(ctx context.Context, cred credential.Credential) (permission.AccessToken, error) {
	sp, err := azidentity.NewClientSecretCredential(cred.TenantID, cred.ClientID, cred.ClientSecret,
		&azidentity.ClientSecretCredentialOptions{ClientOptions: a.env.policyOptions()})
	if err != nil {
		return permission.AccessToken{}, errdefs.External(err, "invalid service principal %s", cred.ClientID)
	}

	tok, err := sp.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{a.env.Scope()}})
	if err != nil {
		return permission.AccessToken{}, translate(ctx, err, "failed to acquire a token for service principal %s", cred.ClientID)
	}
	return permission.AccessToken{Token: tok.Token, ExpiresOn: tok.ExpiresOn}, nil
}

// Permissions implements permission.Source. The request is made with token, so
// the result reflects what the delegated principal may do on target.
func (a *Authorization) Permissions(ctx context.Context, token permission.AccessToken, target *resource.Descriptor) ([]permission.Permission, error) {
	client, err := armauthorization.NewPermissionsClient(target.SubscriptionID, staticToken(token), a.env.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create permissions client: %w", err)
	}

	if target.IsResourceGroup() {
		pager := client.NewListForResourceGroupPager(target.Name, nil)
		return collect(ctx, pager, target.ID, func(page armauthorization.PermissionsClientListForResourceGroupResponse) []*armauthorization.Permission {
			return page.Value
		})
	}

	parentPath, resourceType, name, err := splitResourcePath(target.ID)
	if err != nil {
		return nil, err
	}
	pager := client.NewListForResourcePager(target.ResourceGroup, target.Namespace, parentPath, resourceType, name, nil)
	return collect(ctx, pager, target.ID, func(page armauthorization.PermissionsClientListForResourceResponse) []*armauthorization.Permission {
		return page.Value
	})
}

func collect[T any](ctx context.Context, pager *runtime.Pager[T], scope string, values func(T) []*armauthorization.Permission) ([]permission.Permission, error) {
	var out []permission.Permission
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, translate(ctx, err, "failed to read permissions on %s", scope)
		}
		for _, p := range values(page) {
			if p == nil {
				continue
			}
			out = append(out, permission.Permission{
				Actions:    derefAll(p.Actions),
				NotActions: derefAll(p.NotActions),
			})
		}
	}
	return out, nil
}

// splitResourcePath splits a resource id into the parent path, leaf type and
// leaf name expected by the permissions API, e.g. for a subnet:
// "virtualNetworks/vnet1", "subnets", "default".
func splitResourcePath(id string) (parentPath, resourceType, name string, err error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return "", "", "", errdefs.Wrap(errdefs.KindInvalidInput, err, "invalid resource id %q", id)
	}
	if len(rid.ResourceType.Types) == 0 {
		return "", "", "", errdefs.InvalidInput(errdefs.ReasonUnknown, "%s does not name a provider resource", id)
	}

	var segments []string
	for p := rid.Parent; p != nil && len(p.ResourceType.Types) > 0; p = p.Parent {
		if !strings.EqualFold(p.ResourceType.Namespace, rid.ResourceType.Namespace) ||
			strings.EqualFold(p.ResourceType.String(), arm.ResourceGroupResourceType.String()) {
			break
		}
		segments = append([]string{p.ResourceType.Types[len(p.ResourceType.Types)-1], p.Name}, segments...)
	}

	return strings.Join(segments, "/"), rid.ResourceType.Types[len(rid.ResourceType.Types)-1], rid.Name, nil
}

func derefAll(in []*string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// staticToken is a credential that always returns an already acquired token.
type staticToken permission.AccessToken

func (t staticToken) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: t.Token, ExpiresOn: t.ExpiresOn}, nil
}

var _ azcore.TokenCredential = staticToken{}

var (
	_ permission.TokenSource = (*Authorization)(nil)
	_ permission.Source      = (*Authorization)(nil)
)
