package batch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentic-research/seedgraph/internal/record"
)

var (
	ErrFieldMismatch     = errors.New("field belongs to another entity type")
	ErrUnknownRecordType = errors.New("unknown record type")
	ErrNilBuilder        = errors.New("nil builder")
	ErrSimulatedLink     = errors.New("link to a record that was only mocked")
)

// Diagnostic is the state of one registered builder at the time a commit failed.
type Diagnostic struct {
	Builder    string            `json:"builder"`
	Type       record.EntityType `json:"type"`
	Privileged bool              `json:"privileged"`
	Record     *record.Record    `json:"record"`
}

// CommitError wraps a failed commit together with the state of every
// builder that was pending. The registration set is left as it was.
type CommitError struct {
	Stage   string
	Err     error
	Pending []Diagnostic
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v (%d pending builders)", e.Stage, e.Err, len(e.Pending))
}

func (e *CommitError) Unwrap() error { return e.Err }

// fail captures diagnostics for every registered builder, logs them and
// wraps err.
func (s *Session) fail(stage string, err error) *CommitError {
	builders := s.registry.list()
	ce := &CommitError{Stage: stage, Err: err, Pending: make([]Diagnostic, 0, len(builders))}
	for _, b := range builders {
		d := Diagnostic{
			Builder:    b.String(),
			Type:       b.Type(),
			Privileged: b.privileged,
			Record:     b.Record(),
		}
		ce.Pending = append(ce.Pending, d)
		payload, _ := json.Marshal(d.Record)
		s.logger.Error("pending builder", "stage", stage, "builder", d.Builder, "privileged", d.Privileged, "record", string(payload))
	}
	return ce
}

// validate reports misuse recorded by fluent calls.
func (s *Session) validate() error {
	var errs []error
	for _, b := range s.registry.list() {
		if err := b.err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// simulatedParents reports links from builders about to be committed to
// builders whose identifier came from the mock store.
func (s *Session) simulatedParents(builders []*Builder) error {
	var errs []error
	for _, b := range builders {
		for _, l := range s.discovery.parents[b] {
			if l.builder.mocked {
				errs = append(errs, fmt.Errorf("%w: %s.%s -> %s (%s)", ErrSimulatedLink, b, l.field, l.builder, l.builder.ID()))
			}
		}
	}
	return errors.Join(errs...)
}
