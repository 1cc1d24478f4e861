package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/annotatehq/prepper/helper"
)

// Entity represents a real-world entity identified by its key. The key is the
// only match criterion in chunk queries; canonical form and kind are
// descriptive payload.
type Entity struct {
	ID            int64     `json:"id"`
	Key           string    `json:"key"`
	CanonicalForm string    `json:"canonical_form"`
	Kind          string    `json:"kind"`
	Metadata      Metadata  `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// EntityInChunk records one mention of an entity within a chunk. Offset is
// the position of the mention inside the chunk text. A chunk may mention the
// same entity key any number of times.
type EntityInChunk struct {
	Key           string `json:"key"`
	CanonicalForm string `json:"canonical_form"`
	Kind          string `json:"kind"`
	Offset        int    `json:"offset"`
}

// EntityList is the ordered list of entity mentions of a chunk, stored in
// PostgreSQL as JSONB.
type EntityList []EntityInChunk

// Keys returns the distinct entity keys mentioned, in first-mention order.
func (l EntityList) Keys() []string {
	seen := make(map[string]struct{}, len(l))
	var keys []string
	for _, mention := range l {
		if _, ok := seen[mention.Key]; ok {
			continue
		}
		seen[mention.Key] = struct{}{}
		keys = append(keys, mention.Key)
	}
	return keys
}

// Value implements the driver.Valuer interface for database storage
func (l EntityList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(EntityList{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for database retrieval
func (l *EntityList) Scan(value interface{}) error {
	if value == nil {
		*l = EntityList{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, l)
}
