package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/olliecrow/rec_availability_monitor/internal/recgov"
)

func (a *app) doctorCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Probe the permit and campground endpoints",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := a.newClient()
			defer client.Close()

			report := recgov.RunDoctor(cmd.Context(), client, time.Now(), a.cfg.Timeout)
			if jsonOutput {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("encode doctor report: %w", err)
				}
			} else {
				a.printDoctorHuman(report)
			}
			if !report.Healthy() {
				return errors.New("doctor found failing checks")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the doctor report as JSON")
	return cmd
}

func (a *app) printDoctorHuman(report recgov.DoctorReport) {
	fmt.Fprintln(a.stdout, "rec availability doctor")
	fmt.Fprintln(a.stdout)
	fmt.Fprintf(a.stdout, "endpoint: %s\n", a.cfg.BaseURL)
	for _, c := range report.Checks {
		state := "FAIL"
		if c.OK {
			state = "PASS"
		}
		fmt.Fprintf(a.stdout, "[%s] %s\n", state, c.Name)
		fmt.Fprintf(a.stdout, "  %s\n", c.Details)
	}
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func (a *app) completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Print a shell completion script (default bash)",
		ValidArgs: completionShells,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usagef("completion accepts zero or one shell argument")
			}
			return nil
		},
		// Completion must work without a readable config file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := "bash"
			if len(args) == 1 {
				shell = strings.TrimSpace(args[0])
			}
			root := cmd.Root()
			out := cmd.OutOrStdout()
			switch shell {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return usagef("unsupported shell %q (expected one of %s)", shell, strings.Join(completionShells, ", "))
			}
		},
	}
}
