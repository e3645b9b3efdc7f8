package utils

import (
	"github.com/google/uuid"
)

// GenID returns a new time-ordered UUIDv7 string. V7 ids sort by creation
// time, which keeps persisted collections roughly chronological when
// inspected by hand.
func GenID() string {
	return uuid.Must(uuid.NewV7()).String()
}
