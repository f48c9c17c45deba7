package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentic-research/seedgraph/internal/record"
)

type directLink struct {
	field  record.Field
	parent *record.Record
}

type externalLink struct {
	field      record.Field
	target     record.Descriptor
	externalID any
}

type entry struct {
	rec       *record.Record
	links     []directLink
	externals []externalLink
}

// queue is the bookkeeping shared by every engine's unit of work.
type queue struct {
	order   []record.EntityType
	entries []*entry
	byRec   map[*record.Record]*entry
}

func newQueue(order []record.EntityType) *queue {
	return &queue{
		order: append([]record.EntityType(nil), order...),
		byRec: make(map[*record.Record]*entry),
	}
}

func (q *queue) entry(rec *record.Record) *entry {
	if e, ok := q.byRec[rec]; ok {
		return e
	}
	e := &entry{rec: rec}
	q.byRec[rec] = e
	q.entries = append(q.entries, e)
	return e
}

func (q *queue) RegisterNew(rec *record.Record) {
	q.entry(rec)
}

func (q *queue) RegisterRelationship(rec *record.Record, field record.Field, parent *record.Record) {
	e := q.entry(rec)
	e.links = append(e.links, directLink{field: field, parent: parent})
}

func (q *queue) RegisterExternalRelationship(rec *record.Record, field record.Field, target record.Descriptor, externalID any) {
	e := q.entry(rec)
	e.externals = append(e.externals, externalLink{field: field, target: target, externalID: externalID})
}

func (q *queue) Len() int {
	return len(q.entries)
}

// row is one planned insert.
type row struct {
	rec    *record.Record
	id     string
	values record.Values
}

type lookupFunc func(ctx context.Context, target record.Descriptor, externalID any) (string, bool, error)

// plan orders the queued records by type, pre-assigns identifiers and resolves
// every relationship to a concrete identifier. Records are not touched.
func (q *queue) plan(ctx context.Context, newID func() string, lookup lookupFunc) ([]row, error) {
	rank := make(map[record.EntityType]int, len(q.order))
	for i, t := range q.order {
		rank[t] = i
	}

	pending := make([]*entry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.rec.Persisted() {
			continue
		}
		if _, ok := rank[e.rec.Type]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrTypeNotOrdered, e.rec.Type)
		}
		pending = append(pending, e)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return rank[pending[i].rec.Type] < rank[pending[j].rec.Type]
	})

	ids := make(map[*record.Record]string, len(pending))
	for _, e := range pending {
		ids[e.rec] = newID()
	}

	rows := make([]row, 0, len(pending))
	for _, e := range pending {
		values := e.rec.Values()
		for _, l := range e.links {
			pid := l.parent.ID
			if pid == "" {
				pid = ids[l.parent]
			}
			if pid == "" {
				return nil, fmt.Errorf("%w: %s.%s -> %s", ErrUnresolvedParent, e.rec.Type, l.field, l.parent.Type)
			}
			values[l.field] = pid
		}
		for _, x := range e.externals {
			id, ok, err := lookup(ctx, x.target, x.externalID)
			if err != nil {
				return nil, fmt.Errorf("lookup %s = %v: %w", x.target, x.externalID, err)
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s -> %s = %v", ErrUnresolvedReference, e.rec.Type, x.field, x.target, x.externalID)
			}
			values[x.field] = id
		}
		rows = append(rows, row{rec: e.rec, id: ids[e.rec], values: values})
	}
	return rows, nil
}

// apply copies identifiers and resolved link values back onto the records
// once the write succeeded.
func apply(rows []row) {
	for _, r := range rows {
		r.rec.ID = r.id
		for f, v := range r.values {
			r.rec.Set(f, v)
		}
	}
}
