package datacontext

import (
	"context"

	"github.com/ahrav/tinydal/internal/infra/storage"
)

type opKind uint8

const (
	opInsert opKind = iota
	opUpdate
	opDelete
)

func (k opKind) String() string {
	switch k {
	case opInsert:
		return "insert"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// stagedOp is a write waiting for Save. The statement is built when the op
// runs so it reflects the entity as it is at flush time.
type stagedOp struct {
	kind  opKind
	table string
	run   func(ctx context.Context, tx storage.Tx) error
}

type identityKey struct {
	table string
	id    int64
}

// tracker holds the staged writes and the identity map of one session.
// It is only touched from the session executor, so it needs no locking.
type tracker struct {
	pending  []stagedOp
	identity map[identityKey]any
}

func newTracker() *tracker {
	return &tracker{identity: make(map[identityKey]any)}
}

func (t *tracker) stage(op stagedOp) { t.pending = append(t.pending, op) }

// drain returns the staged ops in staging order and clears the queue.
func (t *tracker) drain() []stagedOp {
	ops := t.pending
	t.pending = nil
	return ops
}

func (t *tracker) attach(table string, id int64, e any) {
	if id == 0 {
		return
	}
	t.identity[identityKey{table: table, id: id}] = e
}

func (t *tracker) lookup(table string, id int64) (any, bool) {
	e, ok := t.identity[identityKey{table: table, id: id}]
	return e, ok
}

func (t *tracker) detach(table string, id int64) {
	delete(t.identity, identityKey{table: table, id: id})
}

func (t *tracker) reset() {
	t.pending = nil
	clear(t.identity)
}
