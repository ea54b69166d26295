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

package permission

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/resource"
)

// AccessToken is a bearer token acquired for a delegated credential.
type AccessToken struct {
	Token     string
	ExpiresOn time.Time
}

// Permission is one entry of the effective permissions returned for a scope:
// the actions a role grants and the actions it excludes.
type Permission struct {
	Actions    []string
	NotActions []string
}

// Set is the flattened permission set of a credential against a target.
type Set struct {
	Allowed sets.Set[string]
	Denied  sets.Set[string]
}

// NewSet flattens permission entries into a single allowed and denied set.
// Exclusions from any entry are kept in Denied.
func NewSet(perms []Permission) Set {
	s := Set{Allowed: sets.New[string](), Denied: sets.New[string]()}
	for _, p := range perms {
		s.Allowed.Insert(p.Actions...)
		s.Denied.Insert(p.NotActions...)
	}
	return s
}

// Authorizes reports whether the set grants at least one required action and
// denies none of them. A deny always wins over an allow.
func (s Set) Authorizes(required sets.Set[string]) bool {
	return s.Allowed.Intersection(required).Len() > 0 && s.Denied.Intersection(required).Len() == 0
}

// TokenSource acquires access tokens for delegated credentials.
type TokenSource interface {
	Token(ctx context.Context, cred credential.Credential) (AccessToken, error)
}

// Source fetches the effective permissions a token holds over a target.
type Source interface {
	Permissions(ctx context.Context, token AccessToken, target *resource.Descriptor) ([]Permission, error)
}
