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

package tags

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/mikelane/selfdestruct/internal/resource"
)

// Tracker applies, removes and lists self-destruct tags.
type Tracker struct {
	store    Store
	resolver Resolver
}

// NewTracker creates a Tracker. The resolver is used to re-read tags of listed
// entries when the listing omits tag values.
func NewTracker(store Store, resolver Resolver) *Tracker {
	return &Tracker{
		store:    store,
		resolver: resolver,
	}
}

// Mark adds the presence and deadline tags to target. Other tags are kept as they are.
func (t *Tracker) Mark(ctx context.Context, target *resource.Descriptor, deadline time.Time) error {
	desired := Desired(deadline)
	if err := t.store.MergeTags(ctx, target, desired); err != nil {
		return fmt.Errorf("failed to apply self-destruct tags to %s: %w", target.ID, err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("Applied self-destruct tags",
		"target", target.ID, DeadlineKey, desired[DeadlineKey])
	return nil
}

// Clear removes both tags from target. It does nothing when neither is present.
func (t *Tracker) Clear(ctx context.Context, target *resource.Descriptor) error {
	current, err := t.store.Tags(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to read tags of %s: %w", target.ID, err)
	}

	owned := Owned(current)
	if len(owned) == 0 {
		return nil
	}

	if err := t.store.DeleteTags(ctx, target, owned); err != nil {
		return fmt.Errorf("failed to remove self-destruct tags from %s: %w", target.ID, err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("Removed self-destruct tags", "target", target.ID)
	return nil
}

// List returns every resource group and resource carrying the presence tag,
// resource groups first. A failure in one scope does not hide the results of
// the other: the entries found are returned along with the aggregated error.
func (t *Tracker) List(ctx context.Context) ([]Entry, error) {
	var errs []error

	groups, err := t.store.ListTaggedGroups(ctx, PresenceKey)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to list resource groups: %w", err))
	}
	resources, err := t.store.ListTaggedResources(ctx, PresenceKey)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to list resources: %w", err))
	}

	entries := make([]Entry, 0, len(groups)+len(resources))
	for _, g := range groups {
		entry, ok, err := t.entry(ctx, g, resource.Target{ResourceGroup: g.Name})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			entry.Type = resource.GroupKind
			entry.ResourceGroup = g.Name
			entries = append(entries, entry)
		}
	}
	for _, r := range resources {
		entry, ok, err := t.entry(ctx, r, resource.Target{ResourceID: r.ID})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	return entries, utilerrors.NewAggregate(errs)
}

// entry converts a listed item into an Entry, re-reading its tags when the
// listing did not include the presence tag. Tag-filtered listings may return
// no tags or an empty set for a tagged item. It reports false when the
// presence tag is gone.
func (t *Tracker) entry(ctx context.Context, item Tagged, target resource.Target) (Entry, bool, error) {
	tags := item.Tags
	if _, listed := tags[PresenceKey]; !listed {
		logr.FromContextOrDiscard(ctx).V(1).Info("Listing omitted tag values, reading them directly", "target", target.String())
		d, err := t.resolver.Resolve(ctx, target)
		if err != nil {
			return Entry{}, false, fmt.Errorf("failed to resolve %s: %w", target.String(), err)
		}
		if tags, err = t.store.Tags(ctx, d); err != nil {
			return Entry{}, false, fmt.Errorf("failed to read tags of %s: %w", d.ID, err)
		}
	}

	if _, ok := tags[PresenceKey]; !ok {
		return Entry{}, false, nil
	}

	return Entry{
		Name:          item.Name,
		ResourceGroup: item.ResourceGroup,
		Type:          item.Type,
		Date:          tags[DeadlineKey],
	}, true, nil
}

// Desired returns the tags Mark applies for deadline.
func Desired(deadline time.Time) map[string]string {
	return map[string]string{
		PresenceKey: "",
		DeadlineKey: FormatDeadline(deadline),
	}
}

// Owned returns the self-destruct tags present in current with their values.
func Owned(current map[string]string) map[string]string {
	owned := make(map[string]string, 2)
	for _, k := range []string{PresenceKey, DeadlineKey} {
		if v, ok := current[k]; ok {
			owned[k] = v
		}
	}
	return owned
}
