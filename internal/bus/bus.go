// Package bus is a small in-process fanout for check-in events, feeding
// the live stats websocket.
package bus

import (
	"sync"
	"time"
)

// CheckInEvent is published once per winning check-in.
type CheckInEvent struct {
	TeamID      string    `json:"team_id"`
	TeamCode    string    `json:"team_code"`
	TeamName    string    `json:"team_name"`
	CheckInTime time.Time `json:"check_in_time"`
}

// Bus fans events out to subscribers. Slow subscribers drop events
// rather than block publishers: the feed is advisory, the database is
// the record.
type Bus struct {
	mu   sync.Mutex
	subs map[chan CheckInEvent]struct{}
}

func New() *Bus {
	return &Bus{subs: make(map[chan CheckInEvent]struct{})}
}

// Subscribe registers a new subscriber. Call the returned cancel func
// to unsubscribe; the channel is closed by cancel.
func (b *Bus) Subscribe() (<-chan CheckInEvent, func()) {
	ch := make(chan CheckInEvent, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *Bus) Publish(ev CheckInEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
