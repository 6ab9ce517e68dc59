package models

// CachedDocument is a read-side record kept locally for offline access,
// independent of the write queue.
type CachedDocument struct {
	ID       string `json:"id"`       // ID unique identifier of the document
	Name     string `json:"name"`     // Name display name
	Data     []byte `json:"data"`     // Data document content
	Size     int64  `json:"size"`     // Size content size in bytes
	CachedAt int64  `json:"cached_at"` // CachedAt epoch millis of the fetch that populated the cache
}
