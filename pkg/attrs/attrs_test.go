package attrs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	kv := []any{"reservation_id", "r-1", "count", 3, "reason"}
	assert.Equal(t, "r-1", ExtractString(kv, "reservation_id"))
	assert.Equal(t, "", ExtractString(kv, "count"))
	assert.Equal(t, "", ExtractString(kv, "reason"))
}

func TestToMap(t *testing.T) {
	u := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	m := ToMap([]any{"id", u, "at", at, "count", 2, 7, "skipped", "dangling"})

	assert.Equal(t, map[string]any{
		"id":    "0f8fad5b-d9cb-469f-a165-70867728950e",
		"at":    "2026-05-04T09:00:00Z",
		"count": 2,
	}, m)
	assert.Nil(t, ToMap(nil))
}
