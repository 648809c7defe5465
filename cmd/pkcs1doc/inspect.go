package main

import (
	"fmt"

	"github.com/sensiblebit/pkcs1doc/internal"
	"github.com/spf13/cobra"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Display RSA public key information",
	Long:  "Show size, exponent, key identifiers, and SSH fingerprint for every RSA public key in a file.",
	Example: `  pkcs1doc inspect key.pem
  pkcs1doc inspect cert.crt
  pkcs1doc inspect bundle.p12 -p secret --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text, json, or yaml")
	registerCompletion(inspectCmd, completionInput{"format", fixedCompletion("text", "json", "yaml")})
}

func runInspect(cmd *cobra.Command, args []string) error {
	passwords, err := internal.ProcessPasswords(passwordList, passwordFile)
	if err != nil {
		return fmt.Errorf("loading passwords: %w", err)
	}

	results, err := internal.InspectFile(args[0], passwords)
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResults(results, inspectFormat)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
