package internal

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sensiblebit/pkcs1doc"
	"github.com/sensiblebit/pkcs1doc/internal/keystore"
	"gopkg.in/yaml.v3"
)

// InspectResult holds the inspection details for one RSA public key.
type InspectResult struct {
	Type           string `json:"type" yaml:"type"`
	BitLength      int    `json:"bit_length" yaml:"bit_length"`
	Exponent       string `json:"public_exponent" yaml:"public_exponent"`
	SKI            string `json:"subject_key_id" yaml:"subject_key_id"`
	SKILegacy      string `json:"subject_key_id_sha1" yaml:"subject_key_id_sha1"`
	SSHFingerprint string `json:"ssh_fingerprint,omitempty" yaml:"ssh_fingerprint,omitempty"`
	TrustAnchor    bool   `json:"trust_anchor" yaml:"trust_anchor"`
	Weak           bool   `json:"weak" yaml:"weak"`
	PEM            string `json:"pem" yaml:"pem"`
}

// collector is a KeyHandler that keeps distinct documents in discovery order.
type collector struct {
	docs []*pkcs1doc.PublicKeyDocument
}

func (c *collector) HandleKey(doc *pkcs1doc.PublicKeyDocument, _ string) error {
	for _, d := range c.docs {
		if d.Equal(doc) {
			return nil
		}
	}
	c.docs = append(c.docs, doc)
	return nil
}

// LoadDocuments reads a file and returns every distinct RSA public key in it,
// in the order found. Any format the scan pipeline understands is accepted.
func LoadDocuments(path string, passwords []string) ([]*pkcs1doc.PublicKeyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	c := &collector{}
	if err := keystore.ProcessData(keystore.ProcessInput{
		Data:      data,
		Path:      path,
		Passwords: passwords,
		Handler:   c,
	}); err != nil {
		return nil, fmt.Errorf("processing %s: %w", path, err)
	}

	// Bare DER with an unfamiliar extension is still worth one strict try.
	if len(c.docs) == 0 {
		if doc, err := pkcs1doc.FromDER(data); err == nil {
			c.docs = append(c.docs, doc)
		}
	}

	if len(c.docs) == 0 {
		return nil, fmt.Errorf("no RSA public keys found in %s", path)
	}
	return c.docs, nil
}

// InspectFile reads a file and returns inspection results for all RSA public
// keys found.
func InspectFile(path string, passwords []string) ([]InspectResult, error) {
	docs, err := LoadDocuments(path, passwords)
	if err != nil {
		return nil, err
	}

	anchors, err := keystore.MozillaTrustAnchors()
	if err != nil {
		slog.Warn("loading Mozilla trust anchors", "error", err)
	}

	results := make([]InspectResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, inspectDocument(doc, anchors))
	}
	return results, nil
}

func inspectDocument(doc *pkcs1doc.PublicKeyDocument, anchors keystore.TrustAnchors) InspectResult {
	key := doc.PublicKey()
	r := InspectResult{
		Type:        "rsa_public_key",
		BitLength:   key.BitLen(),
		Exponent:    key.PublicExponent.String(),
		SKI:         pkcs1doc.ColonHex(doc.SKI()),
		SKILegacy:   pkcs1doc.ColonHex(doc.SKILegacy()),
		TrustAnchor: anchors[hex.EncodeToString(doc.SKI())],
		Weak:        key.BitLen() < keystore.MinimumBitLength,
		PEM:         doc.ToPEM(),
	}
	if fp, err := doc.SSHFingerprint(); err == nil {
		r.SSHFingerprint = fp
	}
	return r
}

// FormatInspectResults formats inspection results as text, JSON, or YAML.
func FormatInspectResults(results []InspectResult, format string) (string, error) {
	switch format {
	case "text":
		return formatInspectText(results), nil
	case "json":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(results)
		if err != nil {
			return "", fmt.Errorf("marshaling YAML: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text, json, or yaml)", format)
	}
}

func formatInspectText(results []InspectResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "RSA Public Key:\n")
		fmt.Fprintf(&sb, "  Size:          %d bits", r.BitLength)
		if r.Weak {
			sb.WriteString(" (weak)")
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "  Exponent:      %s\n", r.Exponent)
		fmt.Fprintf(&sb, "  SKI (SHA-256): %s\n", r.SKI)
		fmt.Fprintf(&sb, "  SKI (SHA-1):   %s\n", r.SKILegacy)
		if r.SSHFingerprint != "" {
			fmt.Fprintf(&sb, "  SSH:           %s\n", r.SSHFingerprint)
		}
		if r.TrustAnchor {
			fmt.Fprintf(&sb, "  Trust anchor:  Mozilla root store\n")
		}
	}
	return sb.String()
}
