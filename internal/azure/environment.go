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
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// DefaultManagementEndpoint is the public cloud Resource Manager endpoint.
const DefaultManagementEndpoint = "https://management.azure.com"

// Environment selects the cloud the adapters talk to.
type Environment struct {
	ManagementEndpoint string
	// Transport replaces the HTTP client of every SDK client when set.
	Transport policy.Transporter
}

// Endpoint returns the management endpoint without a trailing slash.
func (e Environment) Endpoint() string {
	if e.ManagementEndpoint == "" {
		return DefaultManagementEndpoint
	}
	return strings.TrimSuffix(e.ManagementEndpoint, "/")
}

// Scope is the token scope for the management API.
func (e Environment) Scope() string {
	return e.Endpoint() + "/.default"
}

// Cloud returns the SDK cloud configuration for the environment.
func (e Environment) Cloud() cloud.Configuration {
	cfg := cloud.AzurePublic
	if e.Endpoint() == DefaultManagementEndpoint {
		return cfg
	}
	cfg.Services = map[cloud.ServiceName]cloud.ServiceConfiguration{
		cloud.ResourceManager: {
			Endpoint: e.Endpoint(),
			Audience: e.Endpoint(),
		},
	}
	return cfg
}

// ClientOptions returns options for ARM clients.
func (e Environment) ClientOptions() *arm.ClientOptions {
	return &arm.ClientOptions{ClientOptions: e.policyOptions()}
}

// NewAmbientCredential returns the credential of the signed-in user or the
// host's managed identity, as resolved by the SDK's default chain.
func NewAmbientCredential(env Environment) (*azidentity.DefaultAzureCredential, error) {
	return azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: env.policyOptions(),
	})
}

func (e Environment) policyOptions() policy.ClientOptions {
	return policy.ClientOptions{Cloud: e.Cloud(), Transport: e.Transport}
}
