// Package pkcs1doc stores PKCS#1 RSA public keys as validated DER documents
// and converts them to and from PEM, typed fields, files, PKIX, OpenSSH
// authorized keys, and certificate containers.
//
// A PublicKeyDocument can only be obtained from a constructor that has
// decoded its bytes successfully, so every document in hand is well-formed.
package pkcs1doc

import (
	"bytes"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
)

// Codec pairs the binary and textual adapters used to build and read
// documents. A nil field falls back to DERCodec or PEMEnvelope.
type Codec struct {
	Key      KeyCodec
	Envelope EnvelopeCodec
}

// DefaultCodec backs the package-level constructors.
var DefaultCodec = Codec{Key: DERCodec{}, Envelope: PEMEnvelope{}}

func (c Codec) keyCodec() KeyCodec {
	if c.Key == nil {
		return DERCodec{}
	}
	return c.Key
}

func (c Codec) envelope() EnvelopeCodec {
	if c.Envelope == nil {
		return PEMEnvelope{}
	}
	return c.Envelope
}

// PublicKeyDocument is an immutable PKCS#1 RSAPublicKey in DER form. Its
// bytes always decode under the KeyCodec that admitted them. Documents are
// safe for concurrent use.
//
// The zero value is not a valid document; use one of the constructors.
type PublicKeyDocument struct {
	der   []byte
	codec Codec
}

// build admits der as a document after decoding it. Every constructor goes
// through here, and der must not be shared with the caller.
func (c Codec) build(der []byte) (*PublicKeyDocument, error) {
	if _, err := c.keyCodec().Decode(der); err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &PublicKeyDocument{der: der, codec: c}, nil
}

// FromDER validates der and stores an exact copy of it.
func (c Codec) FromDER(der []byte) (*PublicKeyDocument, error) {
	return c.build(bytes.Clone(der))
}

// FromPEM decodes a single "RSA PUBLIC KEY" PEM block. A block with any other
// label fails with a *LabelError before its payload is looked at.
func (c Codec) FromPEM(text string) (*PublicKeyDocument, error) {
	label, der, err := c.envelope().Decode(text)
	if err != nil {
		if errors.Is(err, ErrEnvelopeDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEnvelopeDecode, err)
	}
	if label != PublicKeyLabel {
		return nil, &LabelError{Got: label, Want: PublicKeyLabel}
	}
	return c.FromDER(der)
}

// FromPublicKey encodes key canonically and wraps the result.
func (c Codec) FromPublicKey(key RSAPublicKey) (*PublicKeyDocument, error) {
	der, err := c.keyCodec().Encode(key)
	if err != nil {
		if errors.Is(err, ErrEncoding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	doc, err := c.build(bytes.Clone(der))
	if err != nil {
		return nil, fmt.Errorf("%w: encoder output rejected: %w", ErrEncoding, err)
	}
	return doc, nil
}

// FromRSA builds a document from a standard library RSA public key.
func (c Codec) FromRSA(pub *rsa.PublicKey) (*PublicKeyDocument, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil RSA public key", ErrEncoding)
	}
	return c.FromPublicKey(NewRSAPublicKey(pub))
}

// FromDER validates der with DefaultCodec and stores an exact copy of it.
func FromDER(der []byte) (*PublicKeyDocument, error) {
	return DefaultCodec.FromDER(der)
}

// FromPEM parses an "RSA PUBLIC KEY" PEM block with DefaultCodec.
//
// PEM-encoded PKCS#1 public keys start with:
//
//	-----BEGIN RSA PUBLIC KEY-----
func FromPEM(text string) (*PublicKeyDocument, error) {
	return DefaultCodec.FromPEM(text)
}

// FromPublicKey builds a document from typed fields with DefaultCodec.
func FromPublicKey(key RSAPublicKey) (*PublicKeyDocument, error) {
	return DefaultCodec.FromPublicKey(key)
}

// FromRSA builds a document from a standard library RSA public key with
// DefaultCodec.
func FromRSA(pub *rsa.PublicKey) (*PublicKeyDocument, error) {
	return DefaultCodec.FromRSA(pub)
}

// PublicKey decodes the document. It parses on every call; nothing is cached.
// It panics with an error wrapping ErrInvariant if the stored bytes no longer
// decode, which can only happen through a faulty KeyCodec.
func (d *PublicKeyDocument) PublicKey() RSAPublicKey {
	key, err := d.codec.keyCodec().Decode(d.der)
	if err != nil {
		panic(fmt.Errorf("%w: %w", ErrInvariant, err))
	}
	return key
}

// Bytes returns a copy of the DER encoding.
func (d *PublicKeyDocument) Bytes() []byte {
	return bytes.Clone(d.der)
}

// Len returns the length of the DER encoding in bytes.
func (d *PublicKeyDocument) Len() int {
	return len(d.der)
}

// WriteTo writes the DER encoding to w.
func (d *PublicKeyDocument) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.der)
	return int64(n), err
}

// Equal reports whether both documents hold identical bytes.
func (d *PublicKeyDocument) Equal(other *PublicKeyDocument) bool {
	if d == nil || other == nil {
		return d == other
	}
	return bytes.Equal(d.der, other.der)
}

// ToPEM encodes the document as an "RSA PUBLIC KEY" PEM block.
func (d *PublicKeyDocument) ToPEM() string {
	return d.codec.envelope().Encode(PublicKeyLabel, d.der)
}

// MarshalText implements encoding.TextMarshaler using the PEM form.
func (d *PublicKeyDocument) MarshalText() ([]byte, error) {
	return []byte(d.ToPEM()), nil
}

// String describes the decoded key.
func (d *PublicKeyDocument) String() string {
	key := d.PublicKey()
	return fmt.Sprintf("PublicKeyDocument{modulus: %d bits, exponent: %s}", key.BitLen(), key.PublicExponent)
}
