package batch

import (
	"fmt"

	"github.com/agentic-research/seedgraph/internal/record"
)

// ExternalReference links Field to whichever record of Target.Entity has
// Target.Field = ExternalID. It is resolved when a commit or simulation
// starts, against in-flight builders first.
type ExternalReference struct {
	Field      record.Field
	Target     record.Descriptor
	ExternalID any

	resolved *Builder
}

// Resolved reports whether the reference matched a known builder.
func (r *ExternalReference) Resolved() bool { return r.resolved != nil }

// Builder returns the matched builder, or nil.
func (r *ExternalReference) Builder() *Builder { return r.resolved }

func (r *ExternalReference) String() string {
	return fmt.Sprintf("%s -> %s = %v", r.Field, r.Target, r.ExternalID)
}

// UnresolvedReference is a reference the mock store could not link.
type UnresolvedReference struct {
	Builder    string            `json:"builder"`
	Field      record.Field      `json:"field"`
	Target     record.Descriptor `json:"target"`
	ExternalID any               `json:"external_id"`
}

// doSetParent materializes a parent link: discovery bookkeeping, the
// dependency edge, and registration of the parent chain.
func (s *Session) doSetParent(child *Builder, f record.Field, parent *Builder) {
	s.discovery.SetParent(child, f, parent)
	s.graph.Edge(child.Type(), parent.Type())
	parent.RegisterIncludingParents()
}

func (s *Session) doSetReference(b *Builder, ref *ExternalReference) {
	target := s.discovery.SetReference(b, ref)
	s.graph.Edge(b.Type(), target)
}
