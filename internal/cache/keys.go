package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func WorkStatusKey(id uuid.UUID) string {
	return fmt.Sprintf("work:%s", id)
}

// DocumentTextKey holds extracted document text so a re-scan after a model
// failure does not parse the file again.
func DocumentTextKey(docID uuid.UUID) string {
	return fmt.Sprintf("doctext:%s", docID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
