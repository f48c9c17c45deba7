package batch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentic-research/seedgraph/internal/record"
)

// IDGenerator hands out mock identifiers.
type IDGenerator interface {
	NextID(t record.EntityType) string
}

// SequentialIDs produces "<type>-0001", "<type>-0002", ... from one counter
// shared across types.
type SequentialIDs struct {
	n int
}

func NewSequentialIDs() *SequentialIDs { return &SequentialIDs{} }

func (g *SequentialIDs) NextID(t record.EntityType) string {
	g.n++
	return fmt.Sprintf("%s-%04d", strings.ToLower(string(t)), g.n)
}

// MockStore keeps simulated records across MockAll calls so later batches can
// resolve external references against earlier ones.
type MockStore struct {
	ids     IDGenerator
	records map[record.EntityType][]*record.Record
	byID    map[string]*record.Record
}

func NewMockStore(g IDGenerator) *MockStore {
	return &MockStore{
		ids:     g,
		records: make(map[record.EntityType][]*record.Record),
		byID:    make(map[string]*record.Record),
	}
}

// Records returns copies of the simulated records of type t.
func (m *MockStore) Records(t record.EntityType) []*record.Record {
	out := make([]*record.Record, 0, len(m.records[t]))
	for _, r := range m.records[t] {
		out = append(out, r.Clone())
	}
	return out
}

func (m *MockStore) Lookup(id string) (*record.Record, bool) {
	r, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// MockResult is the outcome of MockAll.
type MockResult struct {
	Order      []record.EntityType   `json:"order"`
	Records    []*record.Record      `json:"records"`
	Unresolved []UnresolvedReference `json:"unresolved,omitempty"`
}

func (m *MockStore) find(target record.Descriptor, externalID any) (string, bool) {
	for _, r := range m.records[target.Entity] {
		if v, ok := r.Get(target.Field); ok && record.Equal(v, externalID) {
			return r.ID, true
		}
	}
	return "", false
}

// apply assigns identifiers in commit order, then fills every link field
// with the identifier of the record on the other end.
func (m *MockStore) apply(order []record.EntityType, builders []*Builder, d *Discovery) *MockResult {
	rank := make(map[record.EntityType]int, len(order))
	for i, t := range order {
		rank[t] = i
	}
	pending := make([]*Builder, 0, len(builders))
	for _, b := range builders {
		if !b.Persisted() {
			pending = append(pending, b)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return rank[pending[i].Type()] < rank[pending[j].Type()]
	})

	for _, b := range pending {
		b.record.ID = m.ids.NextID(b.Type())
		b.mocked = true
	}

	res := &MockResult{Order: order}
	for _, b := range pending {
		for _, l := range d.parents[b] {
			b.record.Set(l.field, l.builder.ID())
		}
		for _, ref := range d.references[b] {
			if ref.resolved != nil {
				b.record.Set(ref.Field, ref.resolved.ID())
				continue
			}
			if id, ok := m.find(ref.Target, ref.ExternalID); ok {
				b.record.Set(ref.Field, id)
				continue
			}
			res.Unresolved = append(res.Unresolved, UnresolvedReference{
				Builder:    b.String(),
				Field:      ref.Field,
				Target:     ref.Target,
				ExternalID: ref.ExternalID,
			})
		}
	}

	for _, b := range pending {
		r := b.record.Clone()
		m.records[r.Type] = append(m.records[r.Type], r)
		m.byID[r.ID] = r
		res.Records = append(res.Records, r.Clone())
	}
	return res
}
