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
	"time"

	"github.com/mikelane/selfdestruct/internal/resource"
)

const (
	// PresenceKey marks a resource as scheduled for deletion. Its value is empty.
	PresenceKey = "self-destruct"
	// DeadlineKey holds the scheduled deletion time.
	DeadlineKey = "self-destruct-date"
	// DateLayout is the format of the DeadlineKey value.
	DateLayout = "2006-01-02T15:04:05Z"
)

// FormatDeadline renders t in UTC using DateLayout.
func FormatDeadline(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Entry is one scheduled resource or resource group as returned by List.
type Entry struct {
	Name          string `json:"name"`
	ResourceGroup string `json:"resourceGroup"`
	Type          string `json:"type"`
	Date          string `json:"date"`
}

// Deadline parses Date. It returns false when the tag is missing or malformed.
func (e Entry) Deadline() (time.Time, bool) {
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Tagged is a resource or resource group returned by a tag-filtered listing.
// Tags may be nil when the listing does not include tag values.
type Tagged struct {
	ID            string
	Name          string
	ResourceGroup string
	Type          string
	Tags          map[string]string
}

// Store reads and writes tags through the management API. Writes only touch
// the tags they name; all other tags of the target are left as they are.
type Store interface {
	Tags(ctx context.Context, target *resource.Descriptor) (map[string]string, error)
	// MergeTags adds tags to target, overwriting the values of existing keys.
	MergeTags(ctx context.Context, target *resource.Descriptor, tags map[string]string) error
	// DeleteTags removes tags from target. A tag is removed only when both its
	// name and value match.
	DeleteTags(ctx context.Context, target *resource.Descriptor, tags map[string]string) error
	ListTaggedGroups(ctx context.Context, key string) ([]Tagged, error)
	ListTaggedResources(ctx context.Context, key string) ([]Tagged, error)
}

// Resolver turns a listed id back into a Descriptor so its tags can be re-read.
type Resolver interface {
	Resolve(ctx context.Context, target resource.Target) (*resource.Descriptor, error)
}
