package record

// Constraints answers whether a field accepts a direct in-memory write.
// It is supplied by the backing-store side; the builder only reacts to it.
type Constraints interface {
	Writable(t EntityType, f Field) bool
}

// AllWritable accepts every direct write.
type AllWritable struct{}

func (AllWritable) Writable(EntityType, Field) bool { return true }

// FieldRules is a declarative Constraints implementation.
type FieldRules struct {
	readOnly map[EntityType]map[Field]struct{}
}

func NewFieldRules() *FieldRules {
	return &FieldRules{readOnly: make(map[EntityType]map[Field]struct{})}
}

// ReadOnly marks fields of t as rejecting direct writes. A rejected value is
// not written in memory but is still persisted: the builder shelves it and
// folds it back in at commit. Use a restricted field to keep a value out of
// the store.
func (r *FieldRules) ReadOnly(t EntityType, fields ...Field) *FieldRules {
	set, ok := r.readOnly[t]
	if !ok {
		set = make(map[Field]struct{})
		r.readOnly[t] = set
	}
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return r
}

func (r *FieldRules) Writable(t EntityType, f Field) bool {
	_, ro := r.readOnly[t][f]
	return !ro
}

// RecordTypeField receives the identifier resolved by Builder.RecordType.
const RecordTypeField Field = "RecordTypeId"

// RecordTypeResolver maps a named record variant of an entity type to its identifier.
type RecordTypeResolver interface {
	RecordTypeID(t EntityType, name string) (string, bool)
}

// RecordTypes is a map-backed RecordTypeResolver.
type RecordTypes map[EntityType]map[string]string

func (rt RecordTypes) RecordTypeID(t EntityType, name string) (string, bool) {
	id, ok := rt[t][name]
	return id, ok
}

// Add registers a named variant.
func (rt RecordTypes) Add(t EntityType, name, id string) {
	m, ok := rt[t]
	if !ok {
		m = make(map[string]string)
		rt[t] = m
	}
	m[name] = id
}
