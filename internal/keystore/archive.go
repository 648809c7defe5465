package keystore

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// ArchiveLimits bounds what is extracted from a single archive.
type ArchiveLimits struct {
	// MaxDecompressionRatio caps uncompressed/compressed size of a ZIP entry.
	MaxDecompressionRatio int64
	// MaxTotalSize caps bytes extracted across all entries.
	MaxTotalSize int64
	// MaxEntryCount caps the number of entries processed.
	MaxEntryCount int
	// MaxEntrySize caps a single decompressed entry; larger entries are skipped.
	MaxEntrySize int64
}

// DefaultArchiveLimits returns conservative defaults for archive extraction.
// Key material is small, so the limits are far below what real archives of
// keys and certificates need.
func DefaultArchiveLimits() ArchiveLimits {
	return ArchiveLimits{
		MaxDecompressionRatio: 100,
		MaxTotalSize:          64 << 20,
		MaxEntryCount:         10_000,
		MaxEntrySize:          1 << 20,
	}
}

// ProcessArchiveInput holds the parameters for ProcessArchive.
type ProcessArchiveInput struct {
	ArchivePath string
	Data        []byte
	Format      string // "zip", "tar", or "tar.gz"; see ArchiveFormat
	Limits      ArchiveLimits
	Passwords   []string
	Handler     KeyHandler
}

// ArchiveFormat returns "zip", "tar", or "tar.gz" for recognized archive
// paths and "" otherwise.
func ArchiveFormat(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".tar.gz") {
		return "tar.gz"
	}
	switch filepath.Ext(lower) {
	case ".zip":
		return "zip"
	case ".tar":
		return "tar"
	case ".tgz":
		return "tar.gz"
	}
	return ""
}

// archiveBudget tracks the limits while entries are extracted.
type archiveBudget struct {
	input     ProcessArchiveInput
	total     int64
	processed int
}

var errBudgetExhausted = errors.New("archive limit reached")

// admit checks whether an entry of the claimed size may be read.
// errBudgetExhausted stops the archive; false skips just this entry.
func (b *archiveBudget) admit(name string, size int64) (bool, error) {
	lim := b.input.Limits
	if b.processed >= lim.MaxEntryCount {
		slog.Warn("archive entry count limit reached, stopping", "archive", b.input.ArchivePath, "limit", lim.MaxEntryCount)
		return false, errBudgetExhausted
	}
	if ArchiveFormat(name) != "" {
		slog.Debug("skipping nested archive", "archive", b.input.ArchivePath, "entry", name)
		return false, nil
	}
	if size > lim.MaxEntrySize {
		slog.Debug("skipping oversized entry", "archive", b.input.ArchivePath, "entry", name, "size", size)
		return false, nil
	}
	if b.total+size > lim.MaxTotalSize {
		slog.Warn("archive total size limit reached, stopping", "archive", b.input.ArchivePath, "limit", lim.MaxTotalSize)
		return false, errBudgetExhausted
	}
	return true, nil
}

// consume reads one entry through a hard size limit and processes it.
func (b *archiveBudget) consume(name string, r io.Reader) {
	max := b.input.Limits.MaxEntrySize
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		slog.Debug("reading archive entry", "archive", b.input.ArchivePath, "entry", name, "error", err)
		return
	}
	if int64(len(data)) > max {
		slog.Warn("archive entry exceeded max size despite header claim", "archive", b.input.ArchivePath, "entry", name)
		return
	}
	b.total += int64(len(data))
	b.processed++

	virtualPath := b.input.ArchivePath + ":" + name
	if err := ProcessData(ProcessInput{
		Data:      data,
		Path:      virtualPath,
		Passwords: b.input.Passwords,
		Handler:   b.input.Handler,
	}); err != nil {
		slog.Debug("processing archive entry", "path", virtualPath, "error", err)
	}
}

// ProcessArchive extracts each entry of an archive and runs it through
// ProcessData under the path "<archive>:<entry>". Nested archives are not
// opened. Returns the number of entries processed.
func ProcessArchive(input ProcessArchiveInput) (int, error) {
	if input.Handler == nil {
		return 0, errors.New("handler is nil")
	}
	b := &archiveBudget{input: input}

	var err error
	switch input.Format {
	case "zip":
		err = b.walkZip()
	case "tar":
		err = b.walkTar(bytes.NewReader(input.Data))
	case "tar.gz":
		var gr *gzip.Reader
		gr, err = gzip.NewReader(bytes.NewReader(input.Data))
		if err != nil {
			return 0, fmt.Errorf("opening gzip layer of %s: %w", input.ArchivePath, err)
		}
		defer gr.Close()
		err = b.walkTar(gr)
	default:
		return 0, fmt.Errorf("unsupported archive format: %q", input.Format)
	}
	if err != nil {
		return b.processed, err
	}

	slog.Info("processed archive", "archive", input.ArchivePath, "format", input.Format, "entries", b.processed)
	return b.processed, nil
}

func (b *archiveBudget) walkZip() error {
	reader, err := zip.NewReader(bytes.NewReader(b.input.Data), int64(len(b.input.Data)))
	if err != nil {
		return fmt.Errorf("opening ZIP archive %s: %w", b.input.ArchivePath, err)
	}

	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.CompressedSize64 > 0 {
			if ratio := int64(f.UncompressedSize64 / f.CompressedSize64); ratio > b.input.Limits.MaxDecompressionRatio {
				slog.Warn("skipping ZIP entry with suspicious compression ratio", "archive", b.input.ArchivePath, "entry", f.Name, "ratio", ratio)
				continue
			}
		}
		ok, err := b.admit(f.Name, int64(f.UncompressedSize64))
		if errors.Is(err, errBudgetExhausted) {
			return nil
		}
		if !ok {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			slog.Debug("opening ZIP entry", "archive", b.input.ArchivePath, "entry", f.Name, "error", err)
			continue
		}
		b.consume(f.Name, rc)
		_ = rc.Close()
	}
	return nil
}

func (b *archiveBudget) walkTar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Keep what a partially corrupted archive already yielded.
			if b.processed > 0 {
				slog.Warn("TAR read error after processing entries", "archive", b.input.ArchivePath, "processed", b.processed, "error", err)
				return nil
			}
			return fmt.Errorf("reading TAR archive %s: %w", b.input.ArchivePath, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		ok, err := b.admit(header.Name, header.Size)
		if errors.Is(err, errBudgetExhausted) {
			return nil
		}
		if ok {
			b.consume(header.Name, tr)
		}
	}
}
