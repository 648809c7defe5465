package pkcs1doc

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// minimalDER is RSAPublicKey{modulus: 3, publicExponent: 65537}.
var minimalDER = []byte{0x30, 0x08, 0x02, 0x01, 0x03, 0x02, 0x03, 0x01, 0x00, 0x01}

const minimalPEM = "-----BEGIN RSA PUBLIC KEY-----\nMAgCAQMCAwEAAQ==\n-----END RSA PUBLIC KEY-----\n"

// testRSAKey is generated once per test binary; RSA key generation is slow.
var testRSAKey = sync.OnceValue(func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
})

// rsaDoc returns a document for the shared test RSA key.
func rsaDoc(t *testing.T) *PublicKeyDocument {
	t.Helper()
	doc, err := FromDER(x509.MarshalPKCS1PublicKey(&testRSAKey().PublicKey))
	if err != nil {
		t.Fatalf("FromDER: %v", err)
	}
	return doc
}

// selfSignedCert creates a self-signed certificate for priv.
func selfSignedCert(t *testing.T, cn string, priv crypto.Signer) *x509.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, priv.Public(), priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

func newECDSAKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ECDSA key: %v", err)
	}
	return key
}

// flakyCodec decodes successfully a fixed number of times, then fails. It
// stands in for a KeyCodec that breaks after admitting a document.
type flakyCodec struct {
	remaining atomic.Int32
}

func newFlakyCodec(successes int32) *flakyCodec {
	c := &flakyCodec{}
	c.remaining.Store(successes)
	return c
}

func (c *flakyCodec) Decode(der []byte) (RSAPublicKey, error) {
	if c.remaining.Add(-1) < 0 {
		return RSAPublicKey{}, errors.New("flaky codec exhausted")
	}
	return DERCodec{}.Decode(der)
}

func (c *flakyCodec) Encode(key RSAPublicKey) ([]byte, error) {
	return DERCodec{}.Encode(key)
}

// stubEncoder returns fixed output from Encode and defers Decode to DERCodec.
type stubEncoder struct {
	out []byte
	err error
}

func (s stubEncoder) Decode(der []byte) (RSAPublicKey, error) {
	return DERCodec{}.Decode(der)
}

func (s stubEncoder) Encode(RSAPublicKey) ([]byte, error) {
	return s.out, s.err
}

// plainDecodeError fails every Decode with an error that does not wrap
// ErrMalformed.
type plainDecodeError struct{}

func (plainDecodeError) Decode([]byte) (RSAPublicKey, error) {
	return RSAPublicKey{}, errors.New("grammar rejected input")
}

func (plainDecodeError) Encode(RSAPublicKey) ([]byte, error) {
	return nil, errors.New("not implemented")
}
