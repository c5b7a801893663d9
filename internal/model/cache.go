package model

import (
	"fmt"
	"time"
)

// Epochs are independently incrementing version stamps of upstream data
type Epochs struct {
	KB            int64  `json:"kb_epoch"`
	Golden        int64  `json:"golden_epoch"`
	CCNL          int64  `json:"ccnl_epoch"`
	ParserVersion string `json:"parser_version"`
}

// String renders the epochs for logs
func (e Epochs) String() string {
	return fmt.Sprintf("kb=%d golden=%d ccnl=%d parser=%s", e.KB, e.Golden, e.CCNL, e.ParserVersion)
}

// CacheKey is a deterministic composite key for a cached response
type CacheKey string

// CachedResponse is the stored form of a generated response
type CachedResponse struct {
	Key       CacheKey      `json:"key"`
	Response  Response      `json:"response"`
	TTL       time.Duration `json:"ttl"`
	CreatedAt time.Time     `json:"created_at"`
}
