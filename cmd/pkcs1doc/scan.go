package main

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/sensiblebit/pkcs1doc/internal"
	"github.com/sensiblebit/pkcs1doc/internal/keystore"
	"github.com/spf13/cobra"
)

// maxScanFileSize bounds the files read during a scan; key material is tiny.
const maxScanFileSize = 10 << 20

var (
	scanDBPath       string
	scanLoadPath     string
	scanExportDir    string
	scanExportFormat string
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan and catalog RSA public keys",
	Long:  "Scan a file or directory (or - for stdin) for RSA public keys, including inside ZIP and TAR archives, deduplicate them by Subject Key Identifier, mark keys of Mozilla root CAs, and print a summary. Optionally save the catalog to SQLite or export every key.",
	Example: `  pkcs1doc scan ./certs
  pkcs1doc scan ~/.ssh --db keys.db
  pkcs1doc scan ./certs --load keys.db --export ./out --export-format der`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanDBPath, "db", "d", "", "Save the catalog to this SQLite database")
	scanCmd.Flags().StringVar(&scanLoadPath, "load", "", "Load an existing SQLite catalog before scanning")
	scanCmd.Flags().StringVar(&scanExportDir, "export", "", "Export every key and a manifest.yaml into this directory")
	scanCmd.Flags().StringVar(&scanExportFormat, "export-format", "pem", "Export file format: pem or der")

	registerCompletion(scanCmd, completionInput{"export", directoryCompletion})
	registerCompletion(scanCmd, completionInput{"export-format", fixedCompletion("pem", "der")})
}

func runScan(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	passwords, err := internal.ProcessPasswords(passwordList, passwordFile)
	if err != nil {
		return fmt.Errorf("loading passwords: %w", err)
	}

	store := keystore.NewMemStore()
	if scanLoadPath != "" {
		if err := keystore.LoadFromSQLite(store, scanLoadPath); err != nil {
			return err
		}
	}

	if inputPath == "-" {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, maxScanFileSize))
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		if err := keystore.ProcessData(keystore.ProcessInput{Data: data, Path: "-", Passwords: passwords, Handler: store}); err != nil {
			return fmt.Errorf("processing stdin: %w", err)
		}
	} else {
		if _, err := os.Stat(inputPath); err != nil {
			return fmt.Errorf("input path %s: %w", inputPath, err)
		}
		err := filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != inputPath && keystore.IsSkippableDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if err := scanFile(path, passwords, store); err != nil {
				slog.Warn("Error processing file", "path", path, "error", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking input path: %w", err)
		}
	}

	if anchors, err := keystore.MozillaTrustAnchors(); err != nil {
		slog.Warn("Failed to load Mozilla trust anchors", "error", err)
	} else {
		store.MarkTrustAnchors(anchors)
	}
	store.DumpDebug()

	if scanDBPath != "" {
		if err := keystore.SaveToSQLite(store, scanDBPath); err != nil {
			return err
		}
	}

	if scanExportDir != "" {
		files, err := keystore.GenerateExportFiles(store.All(), scanExportFormat)
		if err != nil {
			return err
		}
		if err := keystore.WriteExportFiles(scanExportDir, files); err != nil {
			return fmt.Errorf("exporting keys: %w", err)
		}
		slog.Info("exported keys", "dir", scanExportDir, "count", store.Len())
	}

	printSummary(cmd.OutOrStdout(), store.ScanSummary())
	return nil
}

// scanFile reads one regular file and feeds it to the store.
func scanFile(path string, passwords []string, store *keystore.MemStore) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	if info.Size() > maxScanFileSize {
		slog.Debug("skipping large file", "path", path, "size", info.Size())
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if format := keystore.ArchiveFormat(path); format != "" {
		_, err := keystore.ProcessArchive(keystore.ProcessArchiveInput{
			ArchivePath: path,
			Data:        data,
			Format:      format,
			Limits:      keystore.DefaultArchiveLimits(),
			Passwords:   passwords,
			Handler:     store,
		})
		return err
	}
	return keystore.ProcessData(keystore.ProcessInput{
		Data:      data,
		Path:      path,
		Passwords: passwords,
		Handler:   store,
	})
}

func printSummary(w io.Writer, summary keystore.ScanSummary) {
	fmt.Fprintf(w, "\nFound %d RSA public key(s)\n", summary.Keys)
	if summary.Keys == 0 {
		return
	}
	sizes := make([]int, 0, len(summary.BySize))
	for size := range summary.BySize {
		sizes = append(sizes, size)
	}
	slices.Sort(sizes)
	for _, size := range sizes {
		fmt.Fprintf(w, "  %5d bits:    %d\n", size, summary.BySize[size])
	}
	fmt.Fprintf(w, "  Trust anchors: %d\n", summary.TrustAnchors)
	if summary.Weak > 0 {
		fmt.Fprintf(w, "  Weak (<%d):  %d\n", keystore.MinimumBitLength, summary.Weak)
	}
}
