// Package keystore catalogs RSA public keys found while scanning files. Every
// key it holds is a validated pkcs1doc.PublicKeyDocument indexed by its
// hex-encoded RFC 7093 Subject Key Identifier.
package keystore

import "github.com/sensiblebit/pkcs1doc"

// KeyHandler receives documents from the processing pipeline.
type KeyHandler interface {
	HandleKey(doc *pkcs1doc.PublicKeyDocument, source string) error
}

// ProcessInput holds parameters for ProcessData.
type ProcessInput struct {
	Data      []byte     // raw file content
	Path      string     // path for logging and extension detection
	Passwords []string   // passwords to try for PKCS#12 and JKS containers
	Handler   KeyHandler // receives extracted documents
}
