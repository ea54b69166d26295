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

import (
	"slices"
	"strings"
)

const (
	flagSelfDestruct   = "--self-destruct"
	flagSelfDestructSP = "--self-destruct-sp"
)

// untaggable lists command groups whose create commands do not accept --tags.
var untaggable = []string{"container", "identity"}

// Option is one parsed option with its values, in the order given.
type Option struct {
	Name   string
	Values []string
}

// Arguments is the parsed form of an invocation: the leading command words
// followed by options.
type Arguments struct {
	Command []string
	Options []Option
}

// parseArgs splits args into command words and options. Values that follow an
// option belong to it until the next token starting with "-".
func parseArgs(args []string) *Arguments {
	parsed := &Arguments{}
	i := 0
	for ; i < len(args) && !strings.HasPrefix(args[i], "-"); i++ {
		parsed.Command = append(parsed.Command, args[i])
	}
	for ; i < len(args); i++ {
		name, inline, hasInline := strings.Cut(args[i], "=")
		if !strings.HasPrefix(args[i], "--") {
			hasInline = false
			name = args[i]
		}
		opt := Option{Name: name}
		if hasInline {
			opt.Values = append(opt.Values, inline)
		}
		for ; i+1 < len(args) && !strings.HasPrefix(args[i+1], "-"); i++ {
			opt.Values = append(opt.Values, args[i+1])
		}
		parsed.Options = append(parsed.Options, opt)
	}
	return parsed
}

// Remove drops every option with one of the given names.
func (a *Arguments) Remove(names ...string) {
	a.Options = slices.DeleteFunc(a.Options, func(o Option) bool {
		return slices.Contains(names, o.Name)
	})
}

// Args flattens the parsed form back into an argument list.
func (a *Arguments) Args() []string {
	out := slices.Clone(a.Command)
	for _, o := range a.Options {
		out = append(out, o.Name)
		out = append(out, o.Values...)
	}
	return out
}

// commandWords returns the leading non-option tokens of args.
func commandWords(args []string) []string {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return args[:i]
		}
	}
	return args
}

// findFlag returns the index of flag in args, accepting the --flag=value form.
func findFlag(args []string, flag string) int {
	return slices.IndexFunc(args, func(arg string) bool {
		return arg == flag || strings.HasPrefix(arg, flag+"=")
	})
}

// stripSelfDestruct removes --self-destruct with its value and
// --self-destruct-sp from args and returns the timer text.
func stripSelfDestruct(args []string) (rest []string, timer string, hasTimer bool) {
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == flagSelfDestructSP:
		case arg == flagSelfDestruct:
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				timer, hasTimer = args[i+1], true
				i++
			}
		case strings.HasPrefix(arg, flagSelfDestruct+"="):
			timer, hasTimer = strings.TrimPrefix(arg, flagSelfDestruct+"="), true
		default:
			rest = append(rest, arg)
		}
	}
	return rest, timer, hasTimer
}
