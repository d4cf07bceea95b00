package suite

import (
	"time"

	"github.com/google/uuid"
)

// session tags one harness invocation so that artifacts from different
// invocations stay distinguishable.
type session struct {
	ID        string
	StartedAt time.Time
}

func newSession() session {
	return session{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}
