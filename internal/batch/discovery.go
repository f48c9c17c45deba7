package batch

import (
	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/agentic-research/seedgraph/internal/store"
)

type indexKey struct {
	entity record.EntityType
	field  record.Field
	value  string
}

// SyncLink mirrors Source.SourceField into Target.TargetField during
// reclamation.
type SyncLink struct {
	Source      *Builder
	SourceField record.Field
	Target      *Builder
	TargetField record.Field
}

// Discovery indexes builders by (entity type, field, value) for the fields
// marked discoverable, and keeps the resolved relationships the commit pass
// hands to a unit of work.
type Discovery struct {
	reg          *registry
	discoverable map[record.EntityType]map[record.Field]struct{}
	index        map[indexKey]*Builder
	parents      map[*Builder][]link
	references   map[*Builder][]*ExternalReference
	syncs        []SyncLink
}

func newDiscovery(reg *registry) *Discovery {
	d := &Discovery{reg: reg}
	d.reset()
	return d
}

func (d *Discovery) reset() {
	d.discoverable = make(map[record.EntityType]map[record.Field]struct{})
	d.index = make(map[indexKey]*Builder)
	d.parents = make(map[*Builder][]link)
	d.references = make(map[*Builder][]*ExternalReference)
	d.syncs = nil
}

func (d *Discovery) SetDiscoverableField(t record.EntityType, f record.Field) {
	fields, ok := d.discoverable[t]
	if !ok {
		fields = make(map[record.Field]struct{})
		d.discoverable[t] = fields
	}
	fields[f] = struct{}{}
}

func (d *Discovery) IsDiscoverable(t record.EntityType, f record.Field) bool {
	_, ok := d.discoverable[t][f]
	return ok
}

// DiscoverableFields returns the discoverable fields of t in sorted order.
func (d *Discovery) DiscoverableFields(t record.EntityType) []record.Field {
	vals := make(record.Values, len(d.discoverable[t]))
	for f := range d.discoverable[t] {
		vals[f] = nil
	}
	return vals.Fields()
}

// RegisterForDiscovery indexes b under (t, f, v) when f is discoverable for t.
// A later registration of the same triple replaces the earlier one.
func (d *Discovery) RegisterForDiscovery(t record.EntityType, b *Builder, f record.Field, v any) {
	if !d.IsDiscoverable(t, f) {
		return
	}
	d.index[indexKey{entity: t, field: f, value: record.ValueKey(v)}] = b
}

func (d *Discovery) DiscoverRelationshipFor(t record.EntityType, f record.Field, v any) (*Builder, bool) {
	b, ok := d.index[indexKey{entity: t, field: f, value: record.ValueKey(v)}]
	return b, ok
}

// SetParent records a resolved link from child.f to parent. A second link on
// the same field replaces the first.
func (d *Discovery) SetParent(child *Builder, f record.Field, parent *Builder) {
	links := d.parents[child]
	for i, l := range links {
		if l.field == f {
			links[i].builder = parent
			return
		}
	}
	d.parents[child] = append(links, link{field: f, builder: parent})
}

func (d *Discovery) SetChild(parent *Builder, f record.Field, child *Builder) {
	d.SetParent(child, f, parent)
}

// Parents returns the resolved parent links of b keyed by relationship field.
func (d *Discovery) Parents(b *Builder) map[record.Field]*Builder {
	out := make(map[record.Field]*Builder, len(d.parents[b]))
	for _, l := range d.parents[b] {
		out[l.field] = l.builder
	}
	return out
}

// SetReference records ref against b and returns the entity type the
// reference points at.
func (d *Discovery) SetReference(b *Builder, ref *ExternalReference) record.EntityType {
	for _, r := range d.references[b] {
		if r == ref {
			return ref.Target.Entity
		}
	}
	d.references[b] = append(d.references[b], ref)
	return ref.Target.Entity
}

// References returns the external references recorded against b.
func (d *Discovery) References(b *Builder) []*ExternalReference {
	return append([]*ExternalReference(nil), d.references[b]...)
}

// DeterminePreExisting decides, for every recorded reference, whether an
// in-flight or already-committed builder carries the target value. Matches
// become direct links; the rest stay external lookups for the engine. For a
// real commit, builders that were only mocked never match.
func (d *Discovery) DeterminePreExisting(inflight []*Builder, forCommit bool) {
	byType := make(map[record.EntityType][]*Builder)
	for _, b := range inflight {
		byType[b.Type()] = append(byType[b.Type()], b)
	}
	for _, refs := range d.references {
		for _, ref := range refs {
			ref.resolved = d.findTarget(ref, byType[ref.Target.Entity], forCommit)
		}
	}
}

func (d *Discovery) findTarget(ref *ExternalReference, candidates []*Builder, forCommit bool) *Builder {
	if b, ok := d.DiscoverRelationshipFor(ref.Target.Entity, ref.Target.Field, ref.ExternalID); ok && !(forCommit && b.mocked) {
		if v, has := b.Value(ref.Target.Field); has && record.Equal(v, ref.ExternalID) {
			if b.Persisted() || d.reg.contains(b) {
				return b
			}
		}
	}
	for _, b := range candidates {
		if v, ok := b.Value(ref.Target.Field); ok && record.Equal(v, ref.ExternalID) {
			return b
		}
	}
	return nil
}

func (d *Discovery) registerParents(b *Builder, seen map[*Builder]bool) {
	if seen[b] {
		return
	}
	seen[b] = true
	if !b.Persisted() {
		d.reg.add(b)
	}
	for _, p := range b.parentBuilders() {
		d.registerParents(p, seen)
	}
}

func (d *Discovery) unregisterParents(b *Builder, seen map[*Builder]bool) {
	if seen[b] {
		return
	}
	seen[b] = true
	d.reg.remove(b)
	for _, p := range b.parentBuilders() {
		d.unregisterParents(p, seen)
	}
}

func (d *Discovery) SyncOnChange(source *Builder, sourceField record.Field, target *Builder, targetField record.Field) {
	for _, s := range d.syncs {
		if s.Source == source && s.SourceField == sourceField && s.Target == target && s.TargetField == targetField {
			return
		}
	}
	d.syncs = append(d.syncs, SyncLink{Source: source, SourceField: sourceField, Target: target, TargetField: targetField})
}

// applySyncs copies source values into every sync target in round, through
// the normal Set path.
func (d *Discovery) applySyncs(round []*Builder) {
	inRound := make(map[*Builder]bool, len(round))
	for _, b := range round {
		inRound[b] = true
	}
	for _, s := range d.syncs {
		if !inRound[s.Target] {
			continue
		}
		if v, ok := s.Source.Value(s.SourceField); ok {
			s.Target.Set(s.TargetField, v)
		}
	}
}

// PrepareUoW queues each unpersisted builder's record and resolved links on
// the privileged or ordinary unit of work.
func (d *Discovery) PrepareUoW(builders []*Builder, privileged, ordinary store.UnitOfWork) {
	for _, b := range builders {
		if b.Persisted() {
			continue
		}
		uow := ordinary
		if b.privileged {
			uow = privileged
		}
		uow.RegisterNew(b.record)
		for _, l := range d.parents[b] {
			uow.RegisterRelationship(b.record, l.field, l.builder.record)
		}
		for _, ref := range d.references[b] {
			if ref.resolved != nil {
				uow.RegisterRelationship(b.record, ref.Field, ref.resolved.record)
				continue
			}
			uow.RegisterExternalRelationship(b.record, ref.Field, ref.Target, ref.ExternalID)
		}
	}
}

// forget drops relationship bookkeeping for committed builders. Index entries
// stay so later batches can still discover them.
func (d *Discovery) forget(builders []*Builder) {
	done := make(map[*Builder]bool, len(builders))
	for _, b := range builders {
		done[b] = true
		delete(d.parents, b)
		delete(d.references, b)
	}
	kept := d.syncs[:0]
	for _, s := range d.syncs {
		if !done[s.Target] {
			kept = append(kept, s)
		}
	}
	d.syncs = kept
}
