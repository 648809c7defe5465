package keystore

import (
	"encoding/hex"
	"encoding/pem"
	"errors"
	"log/slog"
	"sync"

	"github.com/breml/rootcerts/embedded"
	"github.com/sensiblebit/pkcs1doc"
)

// TrustAnchors is a set of hex SKIs of RSA keys that belong to trusted root
// certificates.
type TrustAnchors map[string]bool

// ParseTrustAnchors collects the RSA keys of the CERTIFICATE blocks in
// pemData. Certificates with other key types are skipped.
func ParseTrustAnchors(pemData []byte) (TrustAnchors, error) {
	anchors := make(TrustAnchors)
	rest := pemData
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		doc, err := pkcs1doc.ExtractFromCertificateDER(block.Bytes)
		if err != nil {
			if !errors.Is(err, pkcs1doc.ErrNotRSA) {
				slog.Debug("skipping unparseable root certificate", "error", err)
			}
			continue
		}
		anchors[hex.EncodeToString(doc.SKI())] = true
	}
	if len(anchors) == 0 {
		return nil, errors.New("no RSA root certificates found")
	}
	return anchors, nil
}

// MozillaTrustAnchors returns the RSA keys of the Mozilla root store embedded
// in the binary. The bundle is parsed once.
var MozillaTrustAnchors = sync.OnceValues(func() (TrustAnchors, error) {
	return ParseTrustAnchors([]byte(embedded.MozillaCACertificatesPEM()))
})
