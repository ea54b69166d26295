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

package pipeline

// UnwrapRule extracts the created resource from a result payload. It reports
// false when the payload does not have the shape the rule handles.
type UnwrapRule func(payload map[string]any) (map[string]any, bool)

// Registry maps discriminator keys to unwrap rules. Rules are tried in the
// order they were registered; the first key present in the payload wins.
type Registry struct {
	keys  []string
	rules map[string]UnwrapRule
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]UnwrapRule)}
}

// DefaultRegistry knows the create commands that nest the resource under a key.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, key := range []string{"newVNet", "publicIp", "TrafficManagerProfile", "NewNIC", "NewNSG"} {
		r.Register(key, Nested(key))
	}
	return r
}

// Register adds or replaces the rule for key.
func (r *Registry) Register(key string, rule UnwrapRule) {
	if _, ok := r.rules[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.rules[key] = rule
}

// Unwrap returns the resource inside payload, or payload itself when no rule matches.
func (r *Registry) Unwrap(payload map[string]any) map[string]any {
	for _, key := range r.keys {
		if _, ok := payload[key]; !ok {
			continue
		}
		if inner, ok := r.rules[key](payload); ok {
			return inner
		}
	}
	return payload
}

// Nested returns a rule that takes the object stored under key.
func Nested(key string) UnwrapRule {
	return func(payload map[string]any) (map[string]any, bool) {
		inner, ok := payload[key].(map[string]any)
		return inner, ok
	}
}
