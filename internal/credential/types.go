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

package credential

import "context"

// Credential is a delegated service principal used to authorize and later perform
// the scheduled deletion. It is either complete or absent.
type Credential struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	TenantID     string `json:"tenantId"`
}

// Complete reports whether all three fields are set.
func (c Credential) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TenantID != ""
}

func (c Credential) any() bool {
	return c.ClientID != "" || c.ClientSecret != "" || c.TenantID != ""
}

// Redacted returns a copy safe to print or log.
func (c Credential) Redacted() Credential {
	if c.ClientSecret != "" {
		c.ClientSecret = "********"
	}
	return c
}

// Options are the inputs of Store.Configure.
type Options struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	Force        bool
}

// Issuer creates a new service principal when the user does not supply one.
type Issuer interface {
	Issue(ctx context.Context) (Credential, error)
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context) (Credential, error)

// Issue calls f(ctx).
func (f IssuerFunc) Issue(ctx context.Context) (Credential, error) {
	return f(ctx)
}
