package keystore

// MinimumBitLength is the smallest modulus not counted as weak (NIST SP
// 800-131A).
const MinimumBitLength = 2048

// ScanSummary holds aggregate counts from a scan operation.
type ScanSummary struct {
	Keys         int         `json:"keys" yaml:"keys"`
	TrustAnchors int         `json:"trust_anchors" yaml:"trust_anchors"`
	Weak         int         `json:"weak_keys" yaml:"weak_keys"`
	BySize       map[int]int `json:"by_size" yaml:"by_size"`
}
