package pkcs1doc

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"strings"
)

// oidRSAEncryption is rsaEncryption from RFC 8017 A.1.
var oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

func rsaAlgorithmIdentifier() pkix.AlgorithmIdentifier {
	return pkix.AlgorithmIdentifier{
		Algorithm:  oidRSAEncryption,
		Parameters: asn1.NullRawValue,
	}
}

type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// PKIX wraps the document in a DER SubjectPublicKeyInfo (RFC 5280) with the
// rsaEncryption algorithm. The document bytes become the BIT STRING contents
// unchanged.
func (d *PublicKeyDocument) PKIX() ([]byte, error) {
	spki := subjectPublicKeyInfo{
		Algorithm: rsaAlgorithmIdentifier(),
		PublicKey: asn1.BitString{
			Bytes:     d.der,
			BitLength: len(d.der) * 8,
		},
	}
	der, err := asn1.Marshal(spki)
	if err != nil {
		return nil, fmt.Errorf("marshaling SubjectPublicKeyInfo: %w", err)
	}
	return der, nil
}

// PKIXPEM returns the SubjectPublicKeyInfo as a "PUBLIC KEY" PEM block.
func (d *PublicKeyDocument) PKIXPEM() (string, error) {
	der, err := d.PKIX()
	if err != nil {
		return "", err
	}
	return d.codec.envelope().Encode(PKIXPublicKeyLabel, der), nil
}

// FromPKIX extracts the PKCS#1 key from a DER SubjectPublicKeyInfo. Keys of
// other algorithms fail with ErrNotRSA.
func (c Codec) FromPKIX(der []byte) (*PublicKeyDocument, error) {
	var spki subjectPublicKeyInfo
	rest, err := asn1.Unmarshal(der, &spki)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing SubjectPublicKeyInfo: %w", ErrMalformed, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data after SubjectPublicKeyInfo", ErrMalformed)
	}
	if !spki.Algorithm.Algorithm.Equal(oidRSAEncryption) {
		return nil, fmt.Errorf("%w: algorithm %s", ErrNotRSA, spki.Algorithm.Algorithm)
	}
	if spki.PublicKey.BitLength%8 != 0 {
		return nil, fmt.Errorf("%w: subjectPublicKey is not byte aligned", ErrMalformed)
	}
	return c.FromDER(spki.PublicKey.Bytes)
}

// FromPKIXPEM parses a "PUBLIC KEY" PEM block holding an RSA key.
func (c Codec) FromPKIXPEM(text string) (*PublicKeyDocument, error) {
	label, der, err := c.envelope().Decode(text)
	if err != nil {
		return nil, err
	}
	if label != PKIXPublicKeyLabel {
		return nil, &LabelError{Got: label, Want: PKIXPublicKeyLabel}
	}
	return c.FromPKIX(der)
}

// FromPKIX extracts the PKCS#1 key from a DER SubjectPublicKeyInfo with
// DefaultCodec.
func FromPKIX(der []byte) (*PublicKeyDocument, error) {
	return DefaultCodec.FromPKIX(der)
}

// FromPKIXPEM parses a "PUBLIC KEY" PEM block with DefaultCodec.
func FromPKIXPEM(text string) (*PublicKeyDocument, error) {
	return DefaultCodec.FromPKIXPEM(text)
}

// SKI computes a Subject Key Identifier per RFC 7093 Section 2 Method 1: the
// leftmost 160 bits of the SHA-256 hash of the subjectPublicKey BIT STRING
// value, which for RSA is the PKCS#1 DER itself.
func (d *PublicKeyDocument) SKI() []byte {
	sum := sha256.Sum256(d.der)
	return sum[:20]
}

// SKILegacy computes the RFC 5280 SHA-1 Subject Key Identifier.
func (d *PublicKeyDocument) SKILegacy() []byte {
	sum := sha1.Sum(d.der)
	return sum[:]
}

// ColonHex formats a byte slice as colon-separated lowercase hex.
func ColonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		parts = append(parts, h[i:i+2])
	}
	return strings.Join(parts, ":")
}
