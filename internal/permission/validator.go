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
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/resource"
)

// Validator decides whether a delegated credential may delete a target.
// It fails closed: any error along the way counts as unauthorized.
type Validator struct {
	tokens TokenSource
	source Source
	now    func() time.Time
}

// NewValidator creates a Validator.
func NewValidator(tokens TokenSource, source Source) *Validator {
	return &Validator{
		tokens: tokens,
		source: source,
		now:    time.Now,
	}
}

// Validate reports whether cred is authorized to delete target.
func (v *Validator) Validate(ctx context.Context, cred credential.Credential, target *resource.Descriptor) bool {
	return v.Check(ctx, cred, target) == nil
}

// Check is Validate with the reason for a denial, as an AuthorizationError.
func (v *Validator) Check(ctx context.Context, cred credential.Credential, target *resource.Descriptor) error {
	required := RequiredActions(target)
	logger := logr.FromContextOrDiscard(ctx).WithValues("target", target.ID, "clientId", cred.ClientID, "needed", sets.List(required))

	token, err := v.tokens.Token(ctx, cred)
	if err != nil {
		logger.Error(err, "There was a failure when checking service principal permissions. Your self-destruct sequence cannot be activated!")
		return errdefs.Wrap(errdefs.KindAuthorization, err, "failed to acquire a token for service principal %s", cred.ClientID)
	}

	if err := inspectToken(token, cred, v.now()); err != nil {
		logger.Error(err, "Service principal token rejected. Your self-destruct sequence cannot be activated!")
		return errdefs.Wrap(errdefs.KindAuthorization, err, "service principal %s token rejected", cred.ClientID)
	}

	perms, err := v.source.Permissions(ctx, token, target)
	if err != nil {
		logger.Error(err, "There was a failure when checking service principal permissions. Your self-destruct sequence cannot be activated!")
		return errdefs.Wrap(errdefs.KindAuthorization, err, "failed to read permissions of service principal %s", cred.ClientID)
	}

	set := NewSet(perms)
	if !set.Authorizes(required) {
		logger.Info("Service principal delete permissions could not be verified. Your self-destruct sequence cannot be activated!",
			"allow", sets.List(set.Allowed),
			"deny", sets.List(set.Denied))
		return errdefs.New(errdefs.KindAuthorization, errdefs.ReasonUnknown,
			"service principal %s is not allowed to delete %s", cred.ClientID, target.ID)
	}

	logger.V(1).Info("Verified service principal delete permissions", "matched", sets.List(set.Allowed.Intersection(required)))
	return nil
}

// RequiredActions lists the authorization actions of which at least one must be
// allowed, and none denied, for the target to be deletable.
func RequiredActions(target *resource.Descriptor) sets.Set[string] {
	ns, typ := target.Namespace, target.ResourceType
	required := sets.New(
		"*",
		ns+"/*",
		ns+"/*/delete",
		ns+"/"+typ+"/*",
		ns+"/"+typ+"/delete",
	)
	if target.ParentType != "" {
		required.Insert(
			ns+"/"+target.ParentType+"/"+typ+"/*",
			ns+"/"+target.ParentType+"/"+typ+"/delete",
		)
	}
	return required
}

// inspectToken rejects tokens that are expired or issued to a different
// principal or tenant than cred names.
func inspectToken(token AccessToken, cred credential.Credential, now time.Time) error {
	if token.Token == "" {
		return fmt.Errorf("empty access token")
	}
	if !token.ExpiresOn.IsZero() && !token.ExpiresOn.After(now) {
		return fmt.Errorf("access token expired at %s", token.ExpiresOn.UTC().Format(time.RFC3339))
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token.Token, claims); err != nil {
		return fmt.Errorf("failed to parse access token: %w", err)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && !exp.After(now) {
		return fmt.Errorf("access token expired at %s", exp.UTC().Format(time.RFC3339))
	}

	for _, claim := range []string{"appid", "azp"} {
		if appID, ok := claims[claim].(string); ok && appID != "" {
			if !strings.EqualFold(appID, cred.ClientID) {
				return fmt.Errorf("access token was issued to %s, not %s", appID, cred.ClientID)
			}
			break
		}
	}

	// Tenants may be configured by domain name; only GUIDs can be compared.
	if tid, ok := claims["tid"].(string); ok && tid != "" {
		if configured, err := uuid.Parse(cred.TenantID); err == nil {
			if issued, err := uuid.Parse(tid); err != nil || issued != configured {
				return fmt.Errorf("access token tenant %s does not match %s", tid, cred.TenantID)
			}
		}
	}

	return nil
}
