package internal

import (
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sensiblebit/pkcs1doc"
)

var testRSAKey = sync.OnceValue(func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
})

func rsaDoc(t *testing.T) *pkcs1doc.PublicKeyDocument {
	t.Helper()
	doc, err := pkcs1doc.FromRSA(&testRSAKey().PublicKey)
	if err != nil {
		t.Fatalf("FromRSA: %v", err)
	}
	return doc
}

// writeTemp writes data to name inside a fresh temp dir and returns the path.
func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
