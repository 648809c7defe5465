package pkcs1doc

import (
	"bytes"
	"encoding/pem"
	"fmt"
)

// PEM labels relevant to RSA keys.
const (
	// PublicKeyLabel is the RFC 7468 label of a PKCS#1 RSAPublicKey.
	PublicKeyLabel = "RSA PUBLIC KEY"
	// PrivateKeyLabel is the label of a PKCS#1 RSAPrivateKey.
	PrivateKeyLabel = "RSA PRIVATE KEY"
	// PKIXPublicKeyLabel is the label of a SubjectPublicKeyInfo.
	PKIXPublicKeyLabel = "PUBLIC KEY"
)

var pemBegin = []byte("-----BEGIN ")

// EnvelopeCodec converts between a labeled binary payload and its textual
// envelope. It does not interpret the label; PublicKeyDocument owns the
// label policy.
type EnvelopeCodec interface {
	Decode(text string) (label string, der []byte, err error)
	Encode(label string, der []byte) string
}

// PEMEnvelope is the EnvelopeCodec for RFC 7468 PEM. Decode requires exactly
// one block with no headers and nothing but whitespace around it.
type PEMEnvelope struct{}

// Decode returns the label and payload of the single PEM block in text.
func (PEMEnvelope) Decode(text string) (string, []byte, error) {
	data := []byte(text)
	switch n := bytes.Count(data, pemBegin); n {
	case 0:
		return "", nil, fmt.Errorf("%w: no PEM block found", ErrEnvelopeDecode)
	case 1:
	default:
		return "", nil, fmt.Errorf("%w: expected 1 PEM block, found %d", ErrEnvelopeDecode, n)
	}

	start := bytes.Index(data, pemBegin)
	if len(bytes.TrimSpace(data[:start])) > 0 {
		return "", nil, fmt.Errorf("%w: unexpected data before PEM block", ErrEnvelopeDecode)
	}

	block, rest := pem.Decode(data)
	if block == nil {
		return "", nil, fmt.Errorf("%w: invalid PEM block", ErrEnvelopeDecode)
	}
	if len(block.Headers) > 0 {
		return "", nil, fmt.Errorf("%w: PEM headers are not allowed", ErrEnvelopeDecode)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return "", nil, fmt.Errorf("%w: unexpected data after PEM block", ErrEnvelopeDecode)
	}
	return block.Type, block.Bytes, nil
}

// Encode wraps der in a PEM block with the given label.
func (PEMEnvelope) Encode(label string, der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: label, Bytes: der}))
}
