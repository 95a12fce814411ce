package history

import (
	"strconv"
	"sync"
	"time"
)

// Clock supplies wall-clock readings for record ids and timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// idMinter derives record ids from clock readings in Unix milliseconds.
//
// Ids from one minter are strictly increasing: a reading that has not moved
// past the last id is bumped by one millisecond. Two minters sharing a
// substrate can still produce the same id on the same tick.
type idMinter struct {
	mu   sync.Mutex
	last int64
}

func (m *idMinter) next(now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= m.last {
		ms = m.last + 1
	}
	m.last = ms
	return strconv.FormatInt(ms, 10)
}
