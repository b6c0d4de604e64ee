package history

import (
	"strings"
	"sync"
	"time"
)

// DefaultCap is the number of PCR readings kept per index.
const DefaultCap = 50

// Entry is one PCR reading.
type Entry struct {
	At  time.Time `json:"at"`
	PCR float64   `json:"pcr"`
}

// Ring is a fixed-capacity, append-only sequence that drops its oldest entry
// once full. It is not safe for concurrent use.
type Ring struct {
	buf   []Entry
	start int
	size  int
}

// NewRing returns an empty ring. Capacities below 1 are raised to 1.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Entry, capacity)}
}

func (r *Ring) Cap() int { return len(r.buf) }
func (r *Ring) Len() int { return r.size }

// Append adds e as the newest entry, evicting the oldest when full.
func (r *Ring) Append(e Entry) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// Entries returns a copy in arrival order, oldest first.
func (r *Ring) Entries() []Entry {
	out := make([]Entry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Values returns the PCR values in arrival order.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)].PCR
	}
	return out
}

// Last returns the newest entry.
func (r *Ring) Last() (Entry, bool) {
	if r.size == 0 {
		return Entry{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Book holds one ring per index symbol.
type Book struct {
	capacity int

	mu    sync.RWMutex
	rings map[string]*Ring
}

func NewBook(capacity int) *Book {
	return &Book{capacity: capacity, rings: make(map[string]*Ring)}
}

// Append records a reading for symbol and returns the updated values.
func (b *Book) Append(symbol string, e Entry) []float64 {
	key := strings.ToUpper(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rings[key]
	if !ok {
		r = NewRing(b.capacity)
		b.rings[key] = r
	}
	r.Append(e)
	return r.Values()
}

// Entries returns a copy of the readings for symbol, oldest first.
func (b *Book) Entries(symbol string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.rings[strings.ToUpper(symbol)]
	if !ok {
		return []Entry{}
	}
	return r.Entries()
}
