package pkcs1doc

import (
	"crypto/rsa"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// RSAPublicKey is the typed view of a PKCS#1 RSAPublicKey (RFC 8017 A.1.1):
//
//	RSAPublicKey ::= SEQUENCE {
//	    modulus           INTEGER,  -- n
//	    publicExponent    INTEGER   -- e
//	}
//
// Values returned by a KeyCodec are independent of the bytes they were
// decoded from.
type RSAPublicKey struct {
	Modulus        *big.Int
	PublicExponent *big.Int
}

// NewRSAPublicKey copies the fields of a standard library RSA public key.
func NewRSAPublicKey(pub *rsa.PublicKey) RSAPublicKey {
	if pub == nil {
		return RSAPublicKey{}
	}
	var n *big.Int
	if pub.N != nil {
		n = new(big.Int).Set(pub.N)
	}
	return RSAPublicKey{
		Modulus:        n,
		PublicExponent: big.NewInt(int64(pub.E)),
	}
}

// Equal reports whether both keys have the same modulus and exponent.
func (k RSAPublicKey) Equal(other RSAPublicKey) bool {
	return bigEqual(k.Modulus, other.Modulus) && bigEqual(k.PublicExponent, other.PublicExponent)
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// BitLen returns the bit length of the modulus, or 0 if it is unset.
func (k RSAPublicKey) BitLen() int {
	if k.Modulus == nil {
		return 0
	}
	return k.Modulus.BitLen()
}

// RSA converts the key to a *rsa.PublicKey. The modulus must be positive and
// the exponent must be positive and fit in an int.
func (k RSAPublicKey) RSA() (*rsa.PublicKey, error) {
	if k.Modulus == nil || k.Modulus.Sign() <= 0 {
		return nil, fmt.Errorf("converting to rsa.PublicKey: modulus must be positive")
	}
	if k.PublicExponent == nil || k.PublicExponent.Sign() <= 0 || !k.PublicExponent.IsInt64() {
		return nil, fmt.Errorf("converting to rsa.PublicKey: exponent out of range")
	}
	e := k.PublicExponent.Int64()
	if int64(int(e)) != e {
		return nil, fmt.Errorf("converting to rsa.PublicKey: exponent %d overflows int", e)
	}
	return &rsa.PublicKey{N: new(big.Int).Set(k.Modulus), E: int(e)}, nil
}

// MarshalDER encodes the key with DERCodec.
func (k RSAPublicKey) MarshalDER() ([]byte, error) {
	return DERCodec{}.Encode(k)
}

// ParseRSAPublicKey decodes PKCS#1 DER with DERCodec.
func ParseRSAPublicKey(der []byte) (RSAPublicKey, error) {
	return DERCodec{}.Decode(der)
}

// KeyCodec decodes and encodes the binary form of an RSAPublicKey. Decode is
// the authority on well-formedness for every PublicKeyDocument built with it;
// Encode must produce canonical bytes that Decode accepts.
type KeyCodec interface {
	Decode(der []byte) (RSAPublicKey, error)
	Encode(key RSAPublicKey) ([]byte, error)
}

// DERCodec is the KeyCodec for ASN.1 DER, built on cryptobyte. It accepts
// exactly one SEQUENCE of two non-negative, minimally encoded INTEGERs with
// nothing after it.
type DERCodec struct{}

// Decode parses der into a fresh RSAPublicKey.
func (DERCodec) Decode(der []byte) (RSAPublicKey, error) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return RSAPublicKey{}, fmt.Errorf("%w: invalid SEQUENCE", ErrMalformed)
	}
	if !input.Empty() {
		return RSAPublicKey{}, fmt.Errorf("%w: %d trailing bytes after SEQUENCE", ErrMalformed, len(input))
	}

	n, e := new(big.Int), new(big.Int)
	if !seq.ReadASN1Integer(n) {
		return RSAPublicKey{}, fmt.Errorf("%w: invalid modulus", ErrMalformed)
	}
	if !seq.ReadASN1Integer(e) {
		return RSAPublicKey{}, fmt.Errorf("%w: invalid public exponent", ErrMalformed)
	}
	if !seq.Empty() {
		return RSAPublicKey{}, fmt.Errorf("%w: unexpected fields after public exponent", ErrMalformed)
	}
	if n.Sign() < 0 {
		return RSAPublicKey{}, fmt.Errorf("%w: negative modulus", ErrMalformed)
	}
	if e.Sign() < 0 {
		return RSAPublicKey{}, fmt.Errorf("%w: negative public exponent", ErrMalformed)
	}
	return RSAPublicKey{Modulus: n, PublicExponent: e}, nil
}

// Encode serializes key as canonical DER.
func (DERCodec) Encode(key RSAPublicKey) ([]byte, error) {
	if key.Modulus == nil || key.PublicExponent == nil {
		return nil, fmt.Errorf("%w: missing field", ErrEncoding)
	}
	if key.Modulus.Sign() < 0 || key.PublicExponent.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative field", ErrEncoding)
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(key.Modulus)
		b.AddASN1BigInt(key.PublicExponent)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return der, nil
}
