// Package store defines the persistence-engine contract consumed by the commit
// orchestrator, and ships an in-memory engine and a database/sql engine.
package store

import (
	"context"
	"errors"

	"github.com/agentic-research/seedgraph/internal/record"
)

var (
	// ErrTypeNotOrdered is returned when a unit of work holds a record whose
	// type is absent from the insertion order it was created with.
	ErrTypeNotOrdered = errors.New("entity type not in insertion order")
	// ErrUnresolvedParent is returned when a direct relationship points at a
	// record that is neither persisted nor part of the unit of work.
	ErrUnresolvedParent = errors.New("unresolved parent record")
	// ErrUnresolvedReference is returned when an external-id lookup matches nothing.
	ErrUnresolvedReference = errors.New("unresolved external reference")
	// ErrPrivilegedDenied is returned by callers that require privileged writes
	// in a context that does not allow them.
	ErrPrivilegedDenied = errors.New("privileged commit not allowed")
)

// UnitOfWork queues new records and their relationships and writes them in
// one step. Commit either persists everything or returns an error without
// assigning identifiers.
type UnitOfWork interface {
	RegisterNew(rec *record.Record)
	RegisterRelationship(rec *record.Record, field record.Field, parent *record.Record)
	RegisterExternalRelationship(rec *record.Record, field record.Field, target record.Descriptor, externalID any)
	Len() int
	Commit(ctx context.Context) error
}

// Engine hands out units of work that insert in the given type order.
type Engine interface {
	NewUnitOfWork(order []record.EntityType) UnitOfWork
}

// PrivilegeGate decides whether privileged records may be written in ctx.
type PrivilegeGate interface {
	AllowPrivileged(ctx context.Context) bool
}

// AllowPrivileged is a fixed PrivilegeGate.
type AllowPrivileged bool

func (a AllowPrivileged) AllowPrivileged(context.Context) bool { return bool(a) }

// DenyPrivileged refuses privileged writes.
var DenyPrivileged PrivilegeGate = AllowPrivileged(false)
