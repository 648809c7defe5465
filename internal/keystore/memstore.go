package keystore

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/sensiblebit/pkcs1doc"
)

// KeyRecord holds a document and its computed metadata.
type KeyRecord struct {
	Doc         *pkcs1doc.PublicKeyDocument
	SKI         string   // hex-encoded RFC 7093 SKI
	BitLength   int      // modulus size
	Exponent    string   // decimal public exponent
	Sources     []string // inputs that contained this key, in discovery order
	TrustAnchor bool     // key of a trusted root CA
}

// MemStore is an in-memory catalog of RSA public keys that implements
// KeyHandler. Keys are deduplicated by SKI; every source that produced a key
// is remembered. It is not safe for concurrent use.
type MemStore struct {
	keys map[string]*KeyRecord
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{keys: make(map[string]*KeyRecord)}
}

// HandleKey stores doc under its SKI, or records source against the existing
// record when the key is already known.
func (s *MemStore) HandleKey(doc *pkcs1doc.PublicKeyDocument, source string) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	ski := hex.EncodeToString(doc.SKI())

	if rec, ok := s.keys[ski]; ok {
		if !slices.Contains(rec.Sources, source) {
			rec.Sources = append(rec.Sources, source)
		}
		return nil
	}

	key := doc.PublicKey()
	s.keys[ski] = &KeyRecord{
		Doc:       doc,
		SKI:       ski,
		BitLength: key.BitLen(),
		Exponent:  key.PublicExponent.String(),
		Sources:   []string{source},
	}
	return nil
}

// Get returns the record for the given hex SKI, or nil.
func (s *MemStore) Get(ski string) *KeyRecord {
	return s.keys[strings.ToLower(ski)]
}

// All returns every record sorted by SKI.
func (s *MemStore) All() []*KeyRecord {
	result := make([]*KeyRecord, 0, len(s.keys))
	for _, rec := range s.keys {
		result = append(result, rec)
	}
	slices.SortFunc(result, func(a, b *KeyRecord) int {
		return strings.Compare(a.SKI, b.SKI)
	})
	return result
}

// Len returns the number of distinct keys.
func (s *MemStore) Len() int {
	return len(s.keys)
}

// MarkTrustAnchors flags every record whose SKI is in anchors and returns
// how many were flagged.
func (s *MemStore) MarkTrustAnchors(anchors TrustAnchors) int {
	n := 0
	for ski, rec := range s.keys {
		if anchors[ski] {
			rec.TrustAnchor = true
			n++
		}
	}
	return n
}

// ScanSummary returns aggregate counts of stored keys.
func (s *MemStore) ScanSummary() ScanSummary {
	summary := ScanSummary{
		Keys:   len(s.keys),
		BySize: make(map[int]int),
	}
	for _, rec := range s.keys {
		summary.BySize[rec.BitLength]++
		if rec.BitLength < MinimumBitLength {
			summary.Weak++
		}
		if rec.TrustAnchor {
			summary.TrustAnchors++
		}
	}
	return summary
}

// DumpDebug logs all keys at debug level.
func (s *MemStore) DumpDebug() {
	slog.Debug("dumping keys")
	for _, rec := range s.All() {
		slog.Debug("key record",
			"ski", rec.SKI,
			"bits", rec.BitLength,
			"exponent", rec.Exponent,
			"trust_anchor", rec.TrustAnchor,
			"sources", strings.Join(rec.Sources, ","))
	}
	slog.Debug("total keys", "count", len(s.keys))
}

// Reset clears all stored keys.
func (s *MemStore) Reset() {
	s.keys = make(map[string]*KeyRecord)
}
