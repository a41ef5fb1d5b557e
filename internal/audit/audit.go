package audit

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

// Entry is one audit log record kept by the backend.
type Entry struct {
	ID       int64
	At       time.Time
	User     string
	Action   string
	Entity   string
	EntityID string
	Details  string
}

// Filter narrows an audit log query. Empty fields match everything.
type Filter struct {
	From   time.Time
	To     time.Time
	Action string
	User   string
}

func (f Filter) Normalize() Filter {
	f.Action = strings.TrimSpace(f.Action)
	f.User = strings.TrimSpace(f.User)

	return f
}

type Source interface {
	AuditLogs(ctx context.Context, sess *session.Session, filter Filter) ([]Entry, error)
}

// Sequencer hands out increasing query numbers and remembers the latest.
// A response is applied only when its number is still the latest issued.
type Sequencer struct {
	latest atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

func (s *Sequencer) IsLatest(seq uint64) bool {
	return s.latest.Load() == seq
}

// Result is one answered query.
type Result struct {
	Seq     uint64
	Filter  Filter
	Entries []Entry
	Err     error
}

// Loader runs filtered audit queries and drops responses that were
// overtaken by a newer query while in flight.
type Loader struct {
	src Source
	seq Sequencer
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Load issues a query. ok is false when a newer query was issued before
// this one answered; the result must then be ignored.
func (l *Loader) Load(ctx context.Context, sess *session.Session, filter Filter) (res Result, ok bool) {
	filter = filter.Normalize()
	seq := l.seq.Next()

	entries, err := l.src.AuditLogs(ctx, sess, filter)
	if err != nil {
		err = fmt.Errorf("loading audit log: %w", err)
	}

	if !l.seq.IsLatest(seq) {
		return Result{}, false
	}

	return Result{Seq: seq, Filter: filter, Entries: entries, Err: err}, true
}

// Current reports whether seq is the latest query issued by the loader.
func (l *Loader) Current(seq uint64) bool {
	return l.seq.IsLatest(seq)
}
