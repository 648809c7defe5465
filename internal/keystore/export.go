package keystore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sensiblebit/pkcs1doc"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file name of the export manifest.
const ManifestName = "manifest.yaml"

// ExportFile represents a single output file in an export.
type ExportFile struct {
	Name string
	Data []byte
}

// ManifestEntry describes one exported key.
type ManifestEntry struct {
	File           string   `yaml:"file"`
	SKI            string   `yaml:"subject_key_id"`
	SKILegacy      string   `yaml:"subject_key_id_sha1"`
	BitLength      int      `yaml:"bit_length"`
	Exponent       string   `yaml:"public_exponent"`
	SSHFingerprint string   `yaml:"ssh_fingerprint,omitempty"`
	TrustAnchor    bool     `yaml:"trust_anchor"`
	Sources        []string `yaml:"sources"`
}

// Manifest lists every key in an export.
type Manifest struct {
	Format string          `yaml:"format"`
	Keys   []ManifestEntry `yaml:"keys"`
}

// GenerateExportFiles renders each record as "<ski>.pem" or "<ski>.der" and
// appends a YAML manifest describing them. format is "pem" or "der".
func GenerateExportFiles(records []*KeyRecord, format string) ([]ExportFile, error) {
	var ext string
	switch format {
	case "pem":
		ext = ".pem"
	case "der":
		ext = ".der"
	default:
		return nil, fmt.Errorf("unsupported export format %q (use pem or der)", format)
	}

	manifest := Manifest{Format: format, Keys: make([]ManifestEntry, 0, len(records))}
	files := make([]ExportFile, 0, len(records)+1)
	for _, rec := range records {
		name := rec.SKI + ext
		var data []byte
		if format == "pem" {
			data = []byte(rec.Doc.ToPEM())
		} else {
			data = rec.Doc.Bytes()
		}
		files = append(files, ExportFile{Name: name, Data: data})

		entry := ManifestEntry{
			File:        name,
			SKI:         pkcs1doc.ColonHex(rec.Doc.SKI()),
			SKILegacy:   pkcs1doc.ColonHex(rec.Doc.SKILegacy()),
			BitLength:   rec.BitLength,
			Exponent:    rec.Exponent,
			TrustAnchor: rec.TrustAnchor,
			Sources:     rec.Sources,
		}
		// Exponents too large for OpenSSH have no fingerprint.
		if fp, err := rec.Doc.SSHFingerprint(); err == nil {
			entry.SSHFingerprint = fp
		}
		manifest.Keys = append(manifest.Keys, entry)
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	files = append(files, ExportFile{Name: ManifestName, Data: data})
	return files, nil
}

// WriteExportFiles writes files into dir, creating it if needed.
func WriteExportFiles(dir string, files []ExportFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory %s: %w", dir, err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
