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

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "selfdestruct",
		Short: "Schedule Azure resources for automatic deletion",
		Long: `selfdestruct schedules Azure resources and resource groups for deletion at a
deadline. Each scheduled target gets a Logic App workflow that deletes it when
the deadline passes, and self-destruct tags that record the deadline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.setup(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.String("subscription-id", "", "Azure subscription to operate in (default: the az CLI's active subscription)")
	flags.String("management-endpoint", "", "Azure Resource Manager endpoint")
	flags.String("config-dir", "", "directory holding config.yaml and the credential file (default: $AZURE_CONFIG_DIR or ~/.azure)")
	flags.String("az-binary", "", "path of the az CLI")
	flags.Duration("poll-frequency", 0, "how often to poll long-running deployments")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: console or json")
	flags.BoolP("verbose", "v", false, "log diagnostic detail")
	_ = a.loader.BindFlags(flags)

	root.AddCommand(
		newConfigureCommand(a),
		newArmCommand(a),
		newDisarmCommand(a),
		newListCommand(a),
		newRunCommand(a),
	)
	return root
}

// aliasFlags maps alternative flag names onto their canonical name.
func aliasFlags(aliases map[string]string) func(*pflag.FlagSet, string) pflag.NormalizedName {
	return func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if canonical, ok := aliases[strings.ToLower(name)]; ok {
			return pflag.NormalizedName(canonical)
		}
		return pflag.NormalizedName(name)
	}
}
