package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/agentic-research/seedgraph/internal/record"
)

// CommitResult describes a successful PersistAll.
type CommitResult struct {
	// Order is the insertion order handed to the engine, dependencies first.
	Order     []record.EntityType
	Committed []*Builder
	// Skipped holds privileged builders the gate refused.
	Skipped []*Builder
}

// prepare runs the reclamation passes over the registration set until it
// stops growing, then resolves external references and computes the commit
// order. forCommit selects protective field reclamation.
func (s *Session) prepare(forCommit bool) ([]record.EntityType, error) {
	done := make(map[*Builder]bool)
	for {
		var round []*Builder
		for _, b := range s.registry.list() {
			if !done[b] {
				done[b] = true
				round = append(round, b)
			}
		}
		if len(round) == 0 {
			break
		}
		s.discovery.applySyncs(round)
		for _, b := range round {
			b.reclaimSuspendedFieldValues(forCommit)
		}
		for _, b := range round {
			b.reclaimRelationships()
			b.RegisterIncludingParents()
		}
	}
	s.discovery.DeterminePreExisting(s.registry.list(), forCommit)
	return s.graph.TopologicalOrder()
}

// PersistAll commits every registered builder through the engine: ordinary
// records first, then privileged ones when the gate allows it. On failure the
// registration set is left intact and a *CommitError carries the state of
// every pending builder.
func (s *Session) PersistAll(ctx context.Context) (res *CommitResult, err error) {
	start := time.Now()
	n := s.registry.len()
	defer func() { s.recorder.ObserveCycle(ModePersist, n, err, time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, s.fail("validate", err)
	}
	order, err := s.prepare(true)
	if err != nil {
		return nil, s.fail("order", err)
	}
	builders := s.registry.list()
	n = len(builders)
	if err := s.simulatedParents(builders); err != nil {
		return nil, s.fail("validate", err)
	}

	ordinary := s.engine.NewUnitOfWork(order)
	privileged := s.engine.NewUnitOfWork(order)
	s.discovery.PrepareUoW(builders, privileged, ordinary)

	res = &CommitResult{Order: order}
	if ordinary.Len() > 0 {
		if err := ordinary.Commit(ctx); err != nil {
			return nil, s.fail("ordinary", err)
		}
	}
	if privileged.Len() > 0 {
		if s.gate.AllowPrivileged(ctx) {
			if err := privileged.Commit(ctx); err != nil {
				return nil, s.fail("privileged", err)
			}
		} else {
			for _, b := range builders {
				if b.privileged && !b.Persisted() {
					res.Skipped = append(res.Skipped, b)
				}
			}
			s.logger.Warn("privileged commit not allowed, skipping", "records", len(res.Skipped))
		}
	}

	for _, b := range builders {
		if b.Persisted() {
			res.Committed = append(res.Committed, b)
		}
	}
	s.discovery.forget(builders)
	s.registry.clear()
	s.logger.Info("commit complete", "committed", len(res.Committed), "skipped", len(res.Skipped), "order", fmt.Sprint(order))
	return res, nil
}

// MockAll simulates a commit of every registered builder against the mock
// store. Shelved values, restricted ones included, land in the output.
func (s *Session) MockAll(ctx context.Context) (res *MockResult, err error) {
	start := time.Now()
	n := s.registry.len()
	defer func() { s.recorder.ObserveCycle(ModeMock, n, err, time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, s.fail("validate", err)
	}
	order, err := s.prepare(false)
	if err != nil {
		return nil, s.fail("order", err)
	}
	builders := s.registry.list()
	n = len(builders)

	res = s.mock.apply(order, builders, s.discovery)
	for _, u := range res.Unresolved {
		s.logger.Warn("unresolved reference in simulation", "builder", u.Builder, "field", u.Field, "target", u.Target.String(), "external_id", u.ExternalID)
	}
	s.discovery.forget(builders)
	s.registry.clear()
	s.logger.Info("simulation complete", "records", len(res.Records), "unresolved", len(res.Unresolved))
	return res, nil
}
