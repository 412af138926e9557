package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for telecheck.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telecheck",
		Short: "Compliance auditor for telehealth websites",
		Long: `telecheck crawls a telehealth website and flags potential compliance issues:
unqualified guarantees, branded medication claims, prohibited marketing terms,
patient data handling and transport security.

Findings are potential issues for human review, not legal determinations.
Each run is scored per category (HIPAA, FDA, LegitScript, FTC, Technical)
and stored so that later runs can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
