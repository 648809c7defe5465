package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sensiblebit/pkcs1doc"
	"github.com/sensiblebit/pkcs1doc/internal"
	"github.com/spf13/cobra"
)

var (
	convertTo      string
	convertOutFile string
	convertComment string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert an RSA public key between formats",
	Long:  "Read the single RSA public key in a file and write it as PKCS#1 PEM or DER, SubjectPublicKeyInfo PEM or DER, or an OpenSSH authorized_keys line.",
	Example: `  pkcs1doc convert id_rsa.pub --to pem
  pkcs1doc convert key.pem --to der -o key.der
  pkcs1doc convert cert.pem --to ssh --comment deploy@ci`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertTo, "to", "pem", "Output format: "+strings.Join(internal.ConvertFormats, ", "))
	convertCmd.Flags().StringVarP(&convertOutFile, "out", "o", "", "Output file (default: stdout)")
	convertCmd.Flags().StringVar(&convertComment, "comment", "", "Comment for ssh output")

	registerCompletion(convertCmd, completionInput{"to", fixedCompletion(internal.ConvertFormats...)})
	registerCompletion(convertCmd, completionInput{"out", fileCompletion})
}

func runConvert(cmd *cobra.Command, args []string) error {
	passwords, err := internal.ProcessPasswords(passwordList, passwordFile)
	if err != nil {
		return fmt.Errorf("loading passwords: %w", err)
	}

	docs, err := internal.LoadDocuments(args[0], passwords)
	if err != nil {
		return err
	}
	if len(docs) != 1 {
		return fmt.Errorf("found %d RSA public keys in %s; convert needs exactly one", len(docs), args[0])
	}

	output, binary, err := internal.ConvertDocument(docs[0], convertTo, convertComment)
	if err != nil {
		return err
	}

	if convertOutFile != "" {
		return writeOutput(convertOutFile, docs[0], convertTo, output)
	}

	if binary && isatty.IsTerminal(os.Stdout.Fd()) {
		return errors.New("refusing to write binary output to a terminal; use -o or redirect stdout")
	}
	if _, err := cmd.OutOrStdout().Write(output); err != nil {
		return fmt.Errorf("writing to stdout: %w", err)
	}
	return nil
}

// writeOutput writes PKCS#1 formats through the document file writers and
// everything else as plain bytes.
func writeOutput(path string, doc *pkcs1doc.PublicKeyDocument, format string, output []byte) error {
	var err error
	switch format {
	case "pem":
		err = doc.WritePEMFile(path)
	case "der":
		err = doc.WriteDERFile(path)
	default:
		err = os.WriteFile(path, output, 0644)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", path, len(output))
	return nil
}
