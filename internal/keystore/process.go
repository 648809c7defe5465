package keystore

import (
	"bufio"
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sensiblebit/pkcs1doc"
)

// ProcessData extracts RSA public keys from in-memory data and dispatches
// them to the handler. PEM, OpenSSH authorized keys, and (for recognized
// extensions) binary formats are tried. Inputs that hold no RSA public key
// are logged and skipped; only documents that passed validation reach the
// handler.
func ProcessData(input ProcessInput) error {
	if input.Handler == nil {
		return errors.New("handler is nil")
	}
	if len(input.Data) == 0 {
		return nil
	}

	switch {
	case isPEM(input.Data):
		slog.Debug("processing as PEM format", "path", input.Path)
		processPEM(input)
	case isAuthorizedKeys(input.Data):
		slog.Debug("processing as OpenSSH authorized keys", "path", input.Path)
		processAuthorizedKeys(input)
	case HasBinaryExtension(input.Path):
		slog.Debug("processing as binary format", "path", input.Path)
		processDER(input)
	default:
		slog.Debug("skipping file with unrecognized format", "path", input.Path)
	}
	return nil
}

// dispatch hands docs to the handler, logging rejections.
func dispatch(handler KeyHandler, docs []*pkcs1doc.PublicKeyDocument, source, kind string) {
	for _, doc := range docs {
		if err := handler.HandleKey(doc, source); err != nil {
			slog.Debug("handler rejected key", "path", source, "kind", kind, "error", err)
		}
	}
}

// processPEM walks every PEM block. Blocks that fail to parse are logged and
// skipped; the remaining blocks are still processed.
func processPEM(input ProcessInput) {
	rest := input.Data
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		docs, err := decodePEMBlock(block)
		switch {
		case errors.Is(err, pkcs1doc.ErrNotRSA):
			slog.Debug("skipping non-RSA key", "path", input.Path, "type", block.Type)
		case err != nil:
			slog.Warn("skipping malformed PEM block", "path", input.Path, "type", block.Type, "error", err)
		default:
			dispatch(input.Handler, docs, input.Path, block.Type)
		}
	}
}

// decodePEMBlock returns the RSA public keys carried by one PEM block. Block
// types that never carry a key yield no documents and no error.
func decodePEMBlock(block *pem.Block) ([]*pkcs1doc.PublicKeyDocument, error) {
	if len(block.Headers) > 0 {
		return nil, errors.New("encrypted or annotated PEM blocks are not supported")
	}

	switch block.Type {
	case pkcs1doc.PublicKeyLabel:
		return single(pkcs1doc.FromDER(block.Bytes))
	case pkcs1doc.PKIXPublicKeyLabel:
		return single(pkcs1doc.FromPKIX(block.Bytes))
	case "CERTIFICATE":
		return single(pkcs1doc.ExtractFromCertificateDER(block.Bytes))
	case "PKCS7":
		return pkcs1doc.ExtractFromPKCS7(block.Bytes)
	case pkcs1doc.PrivateKeyLabel:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#1 private key: %w", err)
		}
		return single(pkcs1doc.FromRSA(&key.PublicKey))
	case "PRIVATE KEY":
		return publicHalfPKCS8(block.Bytes)
	default:
		return nil, nil
	}
}

func single(doc *pkcs1doc.PublicKeyDocument, err error) ([]*pkcs1doc.PublicKeyDocument, error) {
	if err != nil {
		return nil, err
	}
	return []*pkcs1doc.PublicKeyDocument{doc}, nil
}

// publicHalfPKCS8 returns the public key of an unencrypted PKCS#8 RSA key.
func publicHalfPKCS8(der []byte) ([]*pkcs1doc.PublicKeyDocument, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#8 private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: PKCS#8 key is %T", pkcs1doc.ErrNotRSA, key)
	}
	return single(pkcs1doc.FromRSA(&rsaKey.PublicKey))
}

// processAuthorizedKeys parses each ssh-rsa line. Comments, blank lines, and
// other key types are skipped.
func processAuthorizedKeys(input ProcessInput) {
	scanner := bufio.NewScanner(bytes.NewReader(input.Data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "ssh-rsa ") {
			continue
		}
		doc, comment, err := pkcs1doc.FromSSHAuthorizedKey([]byte(line))
		if err != nil {
			slog.Warn("skipping unparseable authorized key", "path", input.Path, "line", lineNo, "error", err)
			continue
		}
		slog.Debug("parsed authorized key", "path", input.Path, "line", lineNo, "comment", comment)
		dispatch(input.Handler, []*pkcs1doc.PublicKeyDocument{doc}, input.Path, "ssh-rsa")
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("reading authorized keys", "path", input.Path, "error", err)
	}
}

// processDER tries all binary formats in priority order:
// PKCS#1 → SubjectPublicKeyInfo → certificate(s) → PKCS#7 → PKCS#1/PKCS#8
// private key → JKS → PKCS#12.
func processDER(input ProcessInput) {
	data, source := input.Data, input.Path
	handler := input.Handler

	if doc, err := pkcs1doc.FromDER(data); err == nil {
		slog.Debug("parsed PKCS#1 public key", "path", source)
		dispatch(handler, []*pkcs1doc.PublicKeyDocument{doc}, source, "pkcs1")
		return
	}

	doc, err := pkcs1doc.FromPKIX(data)
	switch {
	case err == nil:
		slog.Debug("parsed SubjectPublicKeyInfo", "path", source)
		dispatch(handler, []*pkcs1doc.PublicKeyDocument{doc}, source, "pkix")
		return
	case errors.Is(err, pkcs1doc.ErrNotRSA):
		slog.Debug("skipping non-RSA SubjectPublicKeyInfo", "path", source)
		return
	}

	if certs, err := x509.ParseCertificates(data); err == nil && len(certs) > 0 {
		slog.Debug("parsed DER certificate(s)", "path", source, "count", len(certs))
		docs, err := pkcs1doc.ExtractFromCertificates(certs)
		if err != nil {
			slog.Warn("extracting certificate keys", "path", source, "error", err)
			return
		}
		dispatch(handler, docs, source, "certificate")
		return
	}

	if docs, err := pkcs1doc.ExtractFromPKCS7(data); err == nil {
		slog.Debug("parsed PKCS#7 bundle", "path", source, "count", len(docs))
		dispatch(handler, docs, source, "pkcs7")
		return
	}

	if key, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		slog.Debug("parsed PKCS#1 private key", "path", source)
		docs, err := single(pkcs1doc.FromRSA(&key.PublicKey))
		if err == nil {
			dispatch(handler, docs, source, "pkcs1-private")
		}
		return
	}

	if docs, err := publicHalfPKCS8(data); err == nil {
		slog.Debug("parsed PKCS#8 private key", "path", source)
		dispatch(handler, docs, source, "pkcs8")
		return
	} else if errors.Is(err, pkcs1doc.ErrNotRSA) {
		slog.Debug("skipping non-RSA PKCS#8 key", "path", source)
		return
	}

	// Certificates the standard library rejects may still parse leniently.
	if doc, err := pkcs1doc.ExtractFromCertificateDER(data); err == nil {
		slog.Debug("parsed certificate leniently", "path", source)
		dispatch(handler, []*pkcs1doc.PublicKeyDocument{doc}, source, "certificate")
		return
	}

	if isJKS(data) {
		slog.Debug("attempting JKS parsing", "path", source)
		docs, err := pkcs1doc.ExtractFromJKS(data, input.Passwords)
		if err != nil {
			slog.Warn("JKS decode failed", "path", source, "error", err)
			return
		}
		dispatch(handler, docs, source, "jks")
		return
	}

	slog.Debug("attempting PKCS#12 parsing", "path", source)
	docs, err := pkcs1doc.ExtractFromPKCS12(data, input.Passwords)
	if err != nil {
		slog.Debug("no known format matched binary data", "path", source, "error", err)
		return
	}
	dispatch(handler, docs, source, "pkcs12")
}
