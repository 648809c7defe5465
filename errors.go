package pkcs1doc

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned when bytes do not decode as a PKCS#1
	// RSAPublicKey.
	ErrMalformed = errors.New("malformed PKCS#1 RSA public key")

	// ErrEnvelopeDecode is returned when PEM text cannot be parsed as a
	// single well-formed block.
	ErrEnvelopeDecode = errors.New("decoding PEM envelope")

	// ErrLabelMismatch is returned when a PEM block parses but carries a
	// label other than the one expected. Use errors.As with *LabelError to
	// recover the labels.
	ErrLabelMismatch = errors.New("PEM label mismatch")

	// ErrEncoding is returned when a typed key cannot be serialized to
	// canonical DER.
	ErrEncoding = errors.New("encoding PKCS#1 RSA public key")

	// ErrIO is returned when reading or writing a document file fails. The
	// underlying *fs.PathError stays reachable through errors.As.
	ErrIO = errors.New("document I/O")

	// ErrInvariant marks a document whose stored bytes no longer decode.
	// It is only ever raised through a panic.
	ErrInvariant = errors.New("document invariant violated")

	// ErrNotRSA is returned when a container or SubjectPublicKeyInfo holds a
	// key of another algorithm.
	ErrNotRSA = errors.New("not an RSA public key")
)

// LabelError describes a PEM block whose label differs from the expected one.
type LabelError struct {
	Got  string
	Want string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("%s: got %q, want %q", ErrLabelMismatch, e.Got, e.Want)
}

// Is reports ErrLabelMismatch as matching.
func (e *LabelError) Is(target error) bool {
	return target == ErrLabelMismatch
}
