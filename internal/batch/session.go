// Package batch builds graphs of related, unpersisted records and commits them
// in foreign-key order.
//
// A Session owns everything one build cycle needs: the dependency graph over
// entity types, the discovery graph indexing builders by field value, and the
// registration set of builders waiting to be committed. Callers create
// Builders from the session, set fields and relationships, then call
// PersistAll (durable engine) or MockAll (in-memory simulation). Both paths
// reclaim shelved values, resolve deferred relationships, and order the batch
// with the dependency graph.
//
// Graph nodes, edges and discoverable-field configuration outlive a commit so
// they can be configured once and reused across cycles; Reset drops them.
//
// A Session is not safe for concurrent use. Run one build cycle at a time per
// session, or give each caller its own session.
package batch

import (
	"log/slog"

	"github.com/agentic-research/seedgraph/internal/depgraph"
	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/agentic-research/seedgraph/internal/store"
)

type Session struct {
	graph       *depgraph.Graph
	discovery   *Discovery
	registry    *registry
	constraints record.Constraints
	recordTypes record.RecordTypeResolver
	engine      store.Engine
	gate        store.PrivilegeGate
	mock        *MockStore
	recorder    Recorder
	logger      *slog.Logger
	nextSerial  uint32
}

// Option configures a Session.
type Option func(*Session)

// WithEngine sets the persistence engine used by PersistAll.
func WithEngine(e store.Engine) Option {
	return func(s *Session) { s.engine = e }
}

// WithConstraints sets the field write-capability check.
func WithConstraints(c record.Constraints) Option {
	return func(s *Session) { s.constraints = c }
}

// WithRecordTypes sets the resolver behind Builder.RecordType.
func WithRecordTypes(r record.RecordTypeResolver) Option {
	return func(s *Session) { s.recordTypes = r }
}

// WithPrivilegeGate sets the policy deciding whether privileged records commit.
func WithPrivilegeGate(g store.PrivilegeGate) Option {
	return func(s *Session) { s.gate = g }
}

// WithIDGenerator replaces the mock store's identifier generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) { s.mock = NewMockStore(g) }
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession returns a session backed by an in-memory engine unless
// WithEngine says otherwise. Privileged commits are denied by default.
func NewSession(opts ...Option) *Session {
	s := &Session{
		graph:       depgraph.New(),
		registry:    newRegistry(),
		constraints: record.AllWritable{},
		recordTypes: record.RecordTypes{},
		engine:      store.NewMemory(),
		gate:        store.DenyPrivileged,
		mock:        NewMockStore(NewSequentialIDs()),
		recorder:    nopRecorder{},
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.discovery = newDiscovery(s.registry)
	return s
}

// NewBuilder creates and registers a builder for a new record of type t.
func (s *Session) NewBuilder(t record.EntityType) *Builder {
	return s.newBuilder(t, false)
}

// NewPrivilegedBuilder creates a builder whose record commits in the
// privileged phase.
func (s *Session) NewPrivilegedBuilder(t record.EntityType) *Builder {
	return s.newBuilder(t, true)
}

func (s *Session) newBuilder(t record.EntityType, privileged bool) *Builder {
	s.nextSerial++
	b := &Builder{
		session:    s,
		serial:     s.nextSerial,
		record:     record.New(t),
		privileged: privileged,
		shelved:    make(record.Values),
		restricted: make(map[record.Field]struct{}),
		deferred:   make(map[record.Field]struct{}),
	}
	s.graph.Node(t)
	s.registry.add(b)
	return b
}

func (s *Session) Graph() *depgraph.Graph { return s.graph }

func (s *Session) Discovery() *Discovery { return s.discovery }

func (s *Session) MockStore() *MockStore { return s.mock }

func (s *Session) Logger() *slog.Logger { return s.logger }

// DependsOn records that dependent commits after each of dependencies.
func (s *Session) DependsOn(dependent record.EntityType, dependencies ...record.EntityType) {
	s.graph.Node(dependent)
	for _, d := range dependencies {
		s.graph.Edge(dependent, d)
	}
}

// SetDiscoverableField marks f on t as indexed for discovery.
func (s *Session) SetDiscoverableField(t record.EntityType, f record.Field) {
	s.discovery.SetDiscoverableField(t, f)
}

func (s *Session) SetDiscoverableFields(t record.EntityType, fields ...record.Field) {
	for _, f := range fields {
		s.discovery.SetDiscoverableField(t, f)
	}
}

func (s *Session) SetDiscoverable(d record.Descriptor) {
	s.discovery.SetDiscoverableField(d.Entity, d.Field)
}

// DiscoverRelatedBuilder returns the builder that last set f = v on a record
// of type t, if f is discoverable.
func (s *Session) DiscoverRelatedBuilder(t record.EntityType, f record.Field, v any) (*Builder, bool) {
	return s.discovery.DiscoverRelationshipFor(t, f, v)
}

// Registered returns the builders pending commit in registration order.
func (s *Session) Registered() []*Builder {
	return s.registry.list()
}

func (s *Session) IsRegistered(b *Builder) bool {
	return s.registry.contains(b)
}

// Reset drops the registration set, the dependency graph and the discovery
// graph. The mock store keeps its records.
func (s *Session) Reset() {
	s.registry.clear()
	s.graph.Reset()
	s.discovery.reset()
}
