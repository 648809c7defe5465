package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/sensiblebit/pkcs1doc"
)

// testRSAKeys are generated once; RSA key generation dominates test time.
var testRSAKeys = sync.OnceValue(func() []*rsa.PrivateKey {
	keys := make([]*rsa.PrivateKey, 2)
	for i := range keys {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		keys[i] = key
	}
	return keys
})

// docFor returns the document of the i-th shared test key.
func docFor(t *testing.T, i int) *pkcs1doc.PublicKeyDocument {
	t.Helper()
	doc, err := pkcs1doc.FromRSA(&testRSAKeys()[i].PublicKey)
	if err != nil {
		t.Fatalf("FromRSA: %v", err)
	}
	return doc
}

// minimalDoc is the 3/65537 document; it is valid PKCS#1 but a weak key.
func minimalDoc(t *testing.T) *pkcs1doc.PublicKeyDocument {
	t.Helper()
	doc, err := pkcs1doc.FromDER([]byte{0x30, 0x08, 0x02, 0x01, 0x03, 0x02, 0x03, 0x01, 0x00, 0x01})
	if err != nil {
		t.Fatalf("FromDER: %v", err)
	}
	return doc
}

// selfSignedCert creates a self-signed CA certificate for signer.
func selfSignedCert(t *testing.T, cn string, signer crypto.Signer) *x509.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, signer.Public(), signer)
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

func certPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// recorder is a KeyHandler that keeps documents and sources in arrival order.
type recorder struct {
	docs    []*pkcs1doc.PublicKeyDocument
	sources []string
}

func (r *recorder) HandleKey(doc *pkcs1doc.PublicKeyDocument, source string) error {
	r.docs = append(r.docs, doc)
	r.sources = append(r.sources, source)
	return nil
}
