package keystore

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// derExtensions contains file extensions that may hold DER-encoded keys,
// certificates, or containers. Only files with these extensions are tried as
// DER to avoid feeding arbitrary binary files to ASN.1 parsers.
var derExtensions = map[string]bool{
	// Public keys
	".der":  true,
	".pub":  true,
	".rsa":  true,
	".spki": true,
	".key":  true,
	".pem":  true, // sometimes DER despite extension

	// Certificates
	".cer":  true,
	".crt":  true,
	".cert": true,
	".ca":   true,

	// PKCS#7
	".p7b": true,
	".p7c": true,
	".p7":  true,

	// PKCS#12
	".p12": true,
	".pfx": true,

	// PKCS#8
	".p8": true,
}

// jksExtensions contains file extensions for Java KeyStore files.
var jksExtensions = map[string]bool{
	".jks":        true,
	".keystore":   true,
	".truststore": true,
}

// HasBinaryExtension reports whether the file path has a recognized DER or JKS
// extension. The extension is matched case-insensitively. For archive entry
// paths of the form "<archive>:<entry>" only the entry name is considered.
func HasBinaryExtension(path string) bool {
	if i := strings.LastIndex(path, ":"); i >= 0 {
		path = path[i+1:]
	}
	ext := strings.ToLower(filepath.Ext(path))
	return derExtensions[ext] || jksExtensions[ext]
}

// skippableDirs are directory names a scan never descends into.
var skippableDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
}

// IsSkippableDir reports whether a directory with this base name is skipped
// during scans.
func IsSkippableDir(name string) bool {
	return skippableDirs[name]
}

var pemBegin = []byte("-----BEGIN ")

// isPEM reports whether data contains a PEM block header.
func isPEM(data []byte) bool {
	return bytes.Contains(data, pemBegin)
}

// isAuthorizedKeys reports whether data is text containing an OpenSSH RSA
// public key line.
func isAuthorizedKeys(data []byte) bool {
	return utf8.Valid(data) && bytes.Contains(data, []byte("ssh-rsa "))
}

// isJKS reports whether data starts with the JKS magic 0xFEEDFEED.
func isJKS(data []byte) bool {
	return len(data) >= 4 && data[0] == 0xFE && data[1] == 0xED && data[2] == 0xFE && data[3] == 0xED
}
