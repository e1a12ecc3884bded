package domain

// RetrievedChunk is one nearest-neighbor hit. ID is the stable
// source-assigned identifier and the deduplication key for merging.
type RetrievedChunk struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score"`
}

// RankedChunk carries a secondary relevance judgment in [1,10] alongside the
// original similarity score.
type RankedChunk struct {
	RetrievedChunk
	Judgment int `json:"judgment"`
}
