package pkcs1doc

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// appendUnique appends doc unless an identical document is already present.
func appendUnique(docs []*PublicKeyDocument, doc *PublicKeyDocument) []*PublicKeyDocument {
	for _, d := range docs {
		if d.Equal(doc) {
			return docs
		}
	}
	return append(docs, doc)
}

// ExtractFromCertificates returns the RSA public keys of certs, taken
// byte-for-byte from each SubjectPublicKeyInfo. Certificates with other key
// algorithms are skipped; duplicates are dropped.
func ExtractFromCertificates(certs []*x509.Certificate) ([]*PublicKeyDocument, error) {
	var docs []*PublicKeyDocument
	for _, cert := range certs {
		if cert == nil || cert.PublicKeyAlgorithm != x509.RSA {
			continue
		}
		doc, err := FromPKIX(cert.RawSubjectPublicKeyInfo)
		if err != nil {
			return nil, fmt.Errorf("extracting key of %q: %w", cert.Subject.CommonName, err)
		}
		docs = appendUnique(docs, doc)
	}
	return docs, nil
}

// ExtractFromCertificateDER returns the RSA key of a single DER certificate.
// Certificates the standard library rejects are retried with the
// certificate-transparency parser, which tolerates non-fatal violations
// found in older real-world certificates.
func ExtractFromCertificateDER(der []byte) (*PublicKeyDocument, error) {
	if cert, err := x509.ParseCertificate(der); err == nil {
		if cert.PublicKeyAlgorithm != x509.RSA {
			return nil, fmt.Errorf("%w: certificate key algorithm %s", ErrNotRSA, cert.PublicKeyAlgorithm)
		}
		return FromPKIX(cert.RawSubjectPublicKeyInfo)
	}

	cert, err := ctx509.ParseCertificate(der)
	if err != nil && ctx509.IsFatal(err) {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}
	if cert == nil {
		return nil, errors.New("parsing certificate: no certificate returned")
	}
	return FromPKIX(cert.RawSubjectPublicKeyInfo)
}

// ExtractFromPKCS7 returns the RSA keys of the certificates in a DER PKCS#7
// bundle.
func ExtractFromPKCS7(der []byte) ([]*PublicKeyDocument, error) {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#7: %w", err)
	}
	if len(p7.Certificates) == 0 {
		return nil, errors.New("PKCS#7 bundle contains no certificates")
	}
	return ExtractFromCertificates(p7.Certificates)
}

// ExtractFromPKCS12 returns the RSA public keys in a PKCS#12/PFX file: the
// private key's public half, the leaf, and CA certificates. Each password is
// tried in order; trust-store-only files are also accepted.
func ExtractFromPKCS12(data []byte, passwords []string) ([]*PublicKeyDocument, error) {
	for _, pw := range passwords {
		privateKey, leaf, caCerts, err := gopkcs12.DecodeChain(data, pw)
		if err != nil {
			continue
		}
		var docs []*PublicKeyDocument
		if key, ok := privateKey.(*rsa.PrivateKey); ok {
			doc, err := FromRSA(&key.PublicKey)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		certDocs, err := ExtractFromCertificates(append([]*x509.Certificate{leaf}, caCerts...))
		if err != nil {
			return nil, err
		}
		for _, doc := range certDocs {
			docs = appendUnique(docs, doc)
		}
		return docs, nil
	}

	for _, pw := range passwords {
		certs, err := gopkcs12.DecodeTrustStore(data, pw)
		if err != nil {
			continue
		}
		return ExtractFromCertificates(certs)
	}
	return nil, errors.New("decoding PKCS#12 with any provided password")
}

// ExtractFromJKS returns the RSA public keys in a Java KeyStore: trusted
// certificate entries, private key entries, and their certificate chains.
// The same password protects the store and its entries (Java convention).
func ExtractFromJKS(data []byte, passwords []string) ([]*PublicKeyDocument, error) {
	for _, pw := range passwords {
		ks := keystore.New()
		if err := ks.Load(bytes.NewReader(data), []byte(pw)); err != nil {
			continue
		}
		return extractJKSEntries(ks, []byte(pw))
	}
	return nil, errors.New("loading JKS with any provided password")
}

func extractJKSEntries(ks keystore.KeyStore, password []byte) ([]*PublicKeyDocument, error) {
	var certs []*x509.Certificate
	var docs []*PublicKeyDocument

	for _, alias := range ks.Aliases() {
		if ks.IsTrustedCertificateEntry(alias) {
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				continue
			}
			cert, err := x509.ParseCertificate(entry.Certificate.Content)
			if err != nil {
				continue
			}
			certs = append(certs, cert)
		}

		if ks.IsPrivateKeyEntry(alias) {
			entry, err := ks.GetPrivateKeyEntry(alias, password)
			if err != nil {
				continue
			}
			if key, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey); err == nil {
				if rsaKey, ok := key.(*rsa.PrivateKey); ok {
					doc, err := FromRSA(&rsaKey.PublicKey)
					if err != nil {
						return nil, err
					}
					docs = appendUnique(docs, doc)
				}
			}
			for _, certEntry := range entry.CertificateChain {
				cert, err := x509.ParseCertificate(certEntry.Content)
				if err != nil {
					continue
				}
				certs = append(certs, cert)
			}
		}
	}

	certDocs, err := ExtractFromCertificates(certs)
	if err != nil {
		return nil, err
	}
	for _, doc := range certDocs {
		docs = appendUnique(docs, doc)
	}
	if len(docs) == 0 {
		return nil, errors.New("JKS contains no RSA public keys")
	}
	return docs, nil
}
