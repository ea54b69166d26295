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
	"strings"
	"time"
)

const tagsFlag = "--tags"

// InjectArgs returns a copy of args for a create invocation with the two
// self-destruct tags added to its --tags values. Existing tag values are kept;
// stale self-destruct values are replaced. When no --tags flag is present one
// is appended.
func InjectArgs(args []string, deadline time.Time) []string {
	injected := []string{PresenceKey + "=", DeadlineKey + "=" + FormatDeadline(deadline)}

	out := make([]string, 0, len(args)+len(injected)+1)
	found := false
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if found || (arg != tagsFlag && !strings.HasPrefix(arg, tagsFlag+"=")) {
			out = append(out, arg)
			continue
		}

		found = true
		out = append(out, tagsFlag)
		out = append(out, injected...)
		if inline, ok := strings.CutPrefix(arg, tagsFlag+"="); ok && !isOwnTag(inline) && inline != "" {
			out = append(out, inline)
		}
		for ; i+1 < len(args) && !strings.HasPrefix(args[i+1], "-"); i++ {
			if !isOwnTag(args[i+1]) {
				out = append(out, args[i+1])
			}
		}
	}

	if !found {
		out = append(out, tagsFlag)
		out = append(out, injected...)
	}
	return out
}

func isOwnTag(value string) bool {
	key, _, _ := strings.Cut(value, "=")
	return key == PresenceKey || key == DeadlineKey
}
