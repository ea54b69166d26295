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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/selfdestruct"
	"github.com/mikelane/selfdestruct/internal/tags"
)

func newConfigureCommand(a *app) *cobra.Command {
	var opts credential.Options
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store the service principal used for delegated deletion",
		Long: `Store the service principal used by --use-delegated-credential.

Pass all of --client-id, --client-secret and --tenant-id to store an existing
principal, or none of them to create one with Contributor rights over the
subscription.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, err := a.service().Configure(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(cred.Redacted())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.ClientID, "client-id", "", "application (client) id of the service principal")
	f.StringVar(&opts.ClientSecret, "client-secret", "", "client secret of the service principal")
	f.StringVar(&opts.TenantID, "tenant-id", "", "tenant of the service principal")
	f.BoolVarP(&opts.Force, "force", "f", false, "replace an existing configuration")
	return cmd
}

func addTargetFlags(cmd *cobra.Command, target *resource.Target) {
	cmd.Flags().StringVar(&target.ResourceID, "id", "", "resource id of the target")
	cmd.Flags().StringVarP(&target.ResourceGroup, "resource-group", "g", "", "name of the target resource group")
}

// armedView is the printed form of a scheduled target.
type armedView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Deadline   string `json:"deadline"`
	Timer      string `json:"timer"`
	Workflow   string `json:"workflow"`
	Delegated  bool   `json:"delegated"`
	Provision  string `json:"provisioningState,omitempty"`
	Correlated string `json:"correlationId,omitempty"`
	DeployedAt string `json:"deployedAt,omitempty"`
}

func newArmedView(armed *selfdestruct.Armed, delegated bool) armedView {
	view := armedView{
		ID:        armed.Descriptor.ID,
		Name:      armed.Descriptor.Name,
		Type:      armed.Descriptor.FullType(),
		Deadline:  tags.FormatDeadline(armed.Deadline),
		Timer:     armed.Timer,
		Delegated: delegated,
	}
	if d := armed.Deployment; d != nil {
		view.Workflow = d.Name
		view.Provision = d.ProvisioningState
		view.Correlated = d.CorrelationID
		if !d.Timestamp.IsZero() {
			view.DeployedAt = d.Timestamp.UTC().Format(time.RFC3339)
		}
	}
	return view
}

func newArmCommand(a *app) *cobra.Command {
	var opts selfdestruct.ArmOptions
	cmd := &cobra.Command{
		Use:   "arm",
		Short: "Schedule an existing resource or resource group for deletion",
		Example: `  selfdestruct arm -g my-rg --timer 2h30m
  selfdestruct arm --id /subscriptions/.../storageAccounts/acct --timer 1d --sp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("timer") {
				return errdefs.InvalidInput(errdefs.ReasonInvalidDurationFormat, "--timer is required, e.g. 1d, 6h or 2h30m")
			}
			armed, err := a.service().Arm(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(newArmedView(armed, opts.Delegated))
		},
	}
	addTargetFlags(cmd, &opts.Target)
	f := cmd.Flags()
	f.StringVarP(&opts.Timer, "timer", "t", "", "time until deletion, e.g. 1d, 6h or 2h30m")
	f.BoolVar(&opts.Delegated, "use-delegated-credential", false,
		"delete with the configured service principal instead of a managed identity (aliases: --sp, --service-principal)")
	f.SetNormalizeFunc(aliasFlags(map[string]string{
		"sp":                "use-delegated-credential",
		"service-principal": "use-delegated-credential",
	}))
	return cmd
}

func newDisarmCommand(a *app) *cobra.Command {
	var target resource.Target
	cmd := &cobra.Command{
		Use:   "disarm",
		Short: "Cancel the scheduled deletion of a resource or resource group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.service().Disarm(cmd.Context(), target)
			if err != nil {
				return err
			}
			return a.print(map[string]string{"id": d.ID, "name": d.Name, "type": d.FullType()})
		},
	}
	addTargetFlags(cmd, &target)
	return cmd
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resources and resource groups scheduled for deletion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.service().List(cmd.Context())
			if entries == nil {
				entries = []tags.Entry{}
			}
			if printErr := a.print(entries); printErr != nil {
				return printErr
			}
			return err
		},
	}
}

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run -- <az arguments>",
		Short: "Run an az create command, scheduling the new resource with --self-destruct",
		Long: `Run an az command. When it creates a resource and carries
--self-destruct DURATION, the new resource is tagged and scheduled for deletion.
Add --self-destruct-sp to delete it with the configured service principal.`,
		Example: `  selfdestruct run -- storage account create -n acct -g rg1 --self-destruct 1d`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := a.pipeline().Run(cmd.Context(), args)
			if err != nil {
				return err
			}
			if outcome.Warning != nil {
				fmt.Fprintln(a.errOut, "Warning:", outcome.Warning.Error())
			}
			return a.print(outcome.Result)
		},
	}
}
