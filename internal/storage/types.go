package storage

import "time"

// Config configures storage.
//
// Driver values:
//   - "file": two human-readable JSON documents under Dir (default)
//   - "sqlite": SQLite database file under Dir (build with -tags sqlite)
type Config struct {
	Driver      string
	Dir         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ProcessedRecord marks one delivered insight.
// Keep it compact and schema-stable.
type ProcessedRecord struct {
	ID          string    `json:"id"`
	ProcessedAt time.Time `json:"processedAt"`

	// Background actually used for delivery, for operator forensics.
	BackgroundKind  string `json:"backgroundKind,omitempty"`
	BackgroundValue string `json:"backgroundValue,omitempty"`
}

// ProcessedSet is the bounded, ordered history of delivered ids,
// oldest first. TotalCount counts every record ever appended, including
// ones since evicted by the cap.
type ProcessedSet struct {
	ProcessedIDs []ProcessedRecord `json:"processedIds"`
	LastUpdated  time.Time         `json:"lastUpdated"`
	TotalCount   int               `json:"totalCount"`
}

// Checkpoint is the watermark of the last successfully delivered item.
// It is a cheap pre-filter only; the processed-set stays the source of
// truth for dedup.
type Checkpoint struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"publishedAt"`
	SentAt      time.Time `json:"sentAt"`
}

func (c Checkpoint) IsZero() bool {
	return c.ID == "" && c.PublishedAt.IsZero()
}
