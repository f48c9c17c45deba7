package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/agentic-research/seedgraph/internal/record"
)

// link is one relationship: field on the dependent record, builder on the
// other end.
type link struct {
	field   record.Field
	builder *Builder
}

// Builder accumulates field values and relationships for one record before
// commit. Values the store will not accept as a direct write are shelved and
// folded back in at reclamation.
type Builder struct {
	session    *Session
	serial     uint32
	record     *record.Record
	privileged bool
	// mocked is set when the identifier came from the mock store.
	mocked bool

	shelved record.Values
	// restricted values never reach a persistence engine.
	restricted map[record.Field]struct{}
	// deferred fields were rejected as direct writes; later writes skip the attempt.
	deferred map[record.Field]struct{}

	pendingParents  []link
	pendingChildren []link
	pendingRefs     []*ExternalReference

	// faults holds misuse reported by fluent calls, keyed by the field the
	// call targeted. Setting the field again clears it.
	faults map[record.Field]error
}

func (b *Builder) Type() record.EntityType { return b.record.Type }

// ID is empty until the record has been committed or mocked.
func (b *Builder) ID() string { return b.record.ID }

func (b *Builder) Persisted() bool { return b.record.Persisted() }

func (b *Builder) Privileged() bool { return b.privileged }

func (b *Builder) Session() *Session { return b.session }

func (b *Builder) String() string {
	return fmt.Sprintf("%s#%d", b.record.Type, b.serial)
}

// Set writes v to f, or shelves it when f does not accept direct writes.
func (b *Builder) Set(f record.Field, v any) *Builder {
	delete(b.faults, f)
	if b.acceptsDirectWrite(f) {
		b.record.Set(f, v)
		delete(b.shelved, f)
	} else {
		b.deferred[f] = struct{}{}
		b.shelve(f, v)
	}
	b.session.discovery.RegisterForDiscovery(b.Type(), b, f, v)
	return b
}

// SetDescriptor normalizes d to a field of this builder's type and sets it.
// A descriptor of another type is reported by every commit until the field
// is set again.
func (b *Builder) SetDescriptor(d record.Descriptor, v any) *Builder {
	if d.Entity != "" && d.Entity != b.Type() {
		b.fault(d.Field, fmt.Errorf("%w: %s set on %s", ErrFieldMismatch, d, b))
		return b
	}
	return b.Set(d.Field, v)
}

// AssignRestrictedFieldValue shelves v for f unconditionally. The value shows
// up in Record and in mocked output, and is never sent to a persistence engine.
func (b *Builder) AssignRestrictedFieldValue(f record.Field, v any) *Builder {
	delete(b.faults, f)
	b.restricted[f] = struct{}{}
	b.shelve(f, v)
	b.session.discovery.RegisterForDiscovery(b.Type(), b, f, v)
	return b
}

// RecordType sets RecordTypeId to the identifier of the named variant.
func (b *Builder) RecordType(name string) *Builder {
	id, ok := b.session.recordTypes.RecordTypeID(b.Type(), name)
	if !ok {
		b.fault(record.RecordTypeField, fmt.Errorf("%w: %s %q", ErrUnknownRecordType, b.Type(), name))
		return b
	}
	return b.Set(record.RecordTypeField, id)
}

func (b *Builder) fault(f record.Field, err error) {
	if b.faults == nil {
		b.faults = make(map[record.Field]error)
	}
	b.faults[f] = err
}

// err joins the outstanding faults in field order.
func (b *Builder) err() error {
	fields := make([]string, 0, len(b.faults))
	for f := range b.faults {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	errs := make([]error, 0, len(fields))
	for _, f := range fields {
		errs = append(errs, b.faults[record.Field(f)])
	}
	return errors.Join(errs...)
}

func (b *Builder) acceptsDirectWrite(f record.Field) bool {
	if _, ok := b.restricted[f]; ok {
		return false
	}
	if _, ok := b.deferred[f]; ok {
		return false
	}
	return b.session.constraints.Writable(b.Type(), f)
}

func (b *Builder) shelve(f record.Field, v any) {
	b.record.Delete(f)
	b.shelved[f] = v
	_, restricted := b.restricted[f]
	b.session.recorder.ObserveShelved(b.Type())
	b.session.logger.Debug("shelved field value", "builder", b.String(), "field", f, "restricted", restricted)
}

// Record returns a copy of the record with every shelved value folded in,
// restricted ones included. The builder is left untouched.
func (b *Builder) Record() *record.Record {
	r := b.record.Clone()
	r.Merge(b.shelved)
	return r
}

// Value returns the current value of f, applied or shelved.
func (b *Builder) Value(f record.Field) (any, bool) {
	if v, ok := b.record.Get(f); ok {
		return v, true
	}
	v, ok := b.shelved[f]
	return v, ok
}

// IsShelved reports whether f currently holds a shelved value.
func (b *Builder) IsShelved(f record.Field) bool {
	_, ok := b.shelved[f]
	return ok
}

// reclaimSuspendedFieldValues folds shelved values into the record. For a
// commit restricted values stay shelved; otherwise everything is folded.
func (b *Builder) reclaimSuspendedFieldValues(forCommit bool) {
	if len(b.shelved) == 0 {
		return
	}
	if forCommit {
		for _, f := range b.record.MergeExcept(b.shelved, b.restricted) {
			delete(b.shelved, f)
		}
		return
	}
	b.record.Merge(b.shelved)
	b.shelved = make(record.Values)
}

// SetParent links f on this record to parent. Resolution is deferred to
// commit time.
func (b *Builder) SetParent(f record.Field, parent *Builder) *Builder {
	if parent == nil {
		b.fault(f, fmt.Errorf("%w: parent for %s.%s", ErrNilBuilder, b.Type(), f))
		return b
	}
	delete(b.faults, f)
	for i, l := range b.pendingParents {
		if l.field == f {
			b.pendingParents[i].builder = parent
			return b
		}
	}
	b.pendingParents = append(b.pendingParents, link{field: f, builder: parent})
	return b
}

// SetChild links f on child's record to this record. Resolution is deferred
// to commit time.
func (b *Builder) SetChild(f record.Field, child *Builder) *Builder {
	if child == nil {
		b.fault(f, fmt.Errorf("%w: child via %s on %s", ErrNilBuilder, f, b.Type()))
		return b
	}
	delete(b.faults, f)
	for _, l := range b.pendingChildren {
		if l.field == f && l.builder == child {
			return b
		}
	}
	b.pendingChildren = append(b.pendingChildren, link{field: f, builder: child})
	return b
}

// SetReference links f to whichever record of target.Entity has
// target.Field = externalID, in flight or already stored.
func (b *Builder) SetReference(f record.Field, target record.Descriptor, externalID any) *Builder {
	b.pendingRefs = append(b.pendingRefs, &ExternalReference{
		Field:      f,
		Target:     target,
		ExternalID: externalID,
	})
	return b
}

// reclaimRelationships materializes pending links into graph edges and
// discovery bookkeeping, registering related builders as needed.
func (b *Builder) reclaimRelationships() {
	s := b.session
	for _, l := range b.pendingParents {
		s.doSetParent(b, l.field, l.builder)
	}
	for _, l := range b.pendingChildren {
		s.doSetParent(l.builder, l.field, b)
		l.builder.RegisterIncludingParents()
	}
	for _, ref := range b.pendingRefs {
		s.doSetReference(b, ref)
	}
	b.pendingParents = nil
	b.pendingChildren = nil
	b.pendingRefs = nil
}

// RegisterDiscoverable marks f discoverable for this builder's type and
// indexes the current value, if any.
func (b *Builder) RegisterDiscoverable(f record.Field) *Builder {
	b.session.discovery.SetDiscoverableField(b.Type(), f)
	if v, ok := b.Value(f); ok {
		b.session.discovery.RegisterForDiscovery(b.Type(), b, f, v)
	}
	return b
}

// DiscoverRelatedBuilder is Session.DiscoverRelatedBuilder.
func (b *Builder) DiscoverRelatedBuilder(t record.EntityType, f record.Field, v any) (*Builder, bool) {
	return b.session.DiscoverRelatedBuilder(t, f, v)
}

// SyncOnChange mirrors this builder's f into target's targetField at
// reclamation time.
func (b *Builder) SyncOnChange(f record.Field, target *Builder, targetField record.Field) *Builder {
	if target == nil {
		b.fault(f, fmt.Errorf("%w: sync target for %s.%s", ErrNilBuilder, b.Type(), f))
		return b
	}
	delete(b.faults, f)
	b.session.discovery.SyncOnChange(b, f, target, targetField)
	return b
}

// RegisterIncludingParents adds the builder and its known parents to the
// registration set. Persisted builders are never registered.
func (b *Builder) RegisterIncludingParents() *Builder {
	b.session.discovery.registerParents(b, make(map[*Builder]bool))
	return b
}

// UnregisterIncludingParents removes the builder and its parent chain from
// the registration set.
func (b *Builder) UnregisterIncludingParents() *Builder {
	b.session.discovery.unregisterParents(b, make(map[*Builder]bool))
	return b
}

// parentBuilders lists pending and resolved parents.
func (b *Builder) parentBuilders() []*Builder {
	var out []*Builder
	for _, l := range b.pendingParents {
		out = append(out, l.builder)
	}
	for _, l := range b.session.discovery.parents[b] {
		out = append(out, l.builder)
	}
	return out
}

// Persist commits every builder registered in the session.
func (b *Builder) Persist(ctx context.Context) error {
	_, err := b.session.PersistAll(ctx)
	return err
}

// Mock simulates a commit of every builder registered in the session.
func (b *Builder) Mock(ctx context.Context) (*MockResult, error) {
	return b.session.MockAll(ctx)
}
