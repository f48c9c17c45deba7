// Package config loads a seedgraph schema and turns it into a configured
// batch session.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/agentic-research/seedgraph/api"
	"github.com/agentic-research/seedgraph/internal/batch"
	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultPath is the schema file looked up when none is given.
const DefaultPath = "seedgraph.hcl"

var ErrInvalidSchema = errors.New("invalid schema")

// Load reads a schema from fs. Files ending in .json are decoded as JSON,
// everything else as HCL.
func Load(fs billy.Filesystem, path string) (*api.Schema, error) {
	src, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	if filepath.Ext(path) == ".json" {
		return Parse(src, path, true)
	}
	return Parse(src, path, false)
}

// Parse decodes and validates schema source. filename is only used in
// diagnostics.
func Parse(src []byte, filename string, isJSON bool) (*api.Schema, error) {
	var schema api.Schema
	if isJSON {
		if err := json.Unmarshal(src, &schema); err != nil {
			return nil, fmt.Errorf("decode schema %s: %w", filename, err)
		}
	} else {
		file, diags := hclparse.NewParser().ParseHCL(src, filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse schema %s: %w", filename, diags)
		}
		if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
			return nil, fmt.Errorf("decode schema %s: %w", filename, diags)
		}
	}
	if err := Validate(&schema); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &schema, nil
}

// Validate checks that names are unique and every reference names a
// declared entity. Cycles are reported when the order is computed.
func Validate(s *api.Schema) error {
	declared := make(map[string]bool, len(s.Entities))
	var errs []error
	for _, e := range s.Entities {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%w: entity without a name", ErrInvalidSchema))
			continue
		}
		if declared[e.Name] {
			errs = append(errs, fmt.Errorf("%w: entity %q declared twice", ErrInvalidSchema, e.Name))
		}
		declared[e.Name] = true
	}
	for _, e := range s.Entities {
		for _, d := range e.DependsOn {
			if !declared[d] {
				errs = append(errs, fmt.Errorf("%w: %s depends on undeclared entity %q", ErrInvalidSchema, e.Name, d))
			}
		}
		for _, l := range e.Links {
			if !declared[l.Entity] {
				errs = append(errs, fmt.Errorf("%w: %s.%s links to undeclared entity %q", ErrInvalidSchema, e.Name, l.Field, l.Entity))
			}
		}
	}
	return errors.Join(errs...)
}

// Constraints builds the field rules declared by the schema.
func Constraints(s *api.Schema) *record.FieldRules {
	rules := record.NewFieldRules()
	for _, e := range s.Entities {
		rules.ReadOnly(record.EntityType(e.Name), fields(e.ReadOnly)...)
	}
	return rules
}

// RecordTypes collects the record-type identifiers declared by the schema.
func RecordTypes(s *api.Schema) record.RecordTypes {
	rt := record.RecordTypes{}
	for _, e := range s.Entities {
		for name, id := range e.RecordTypes {
			rt.Add(record.EntityType(e.Name), name, id)
		}
	}
	return rt
}

// NewSession returns a session configured from s: graph nodes in declaration
// order, dependency edges (explicit and implied by links), discoverable
// fields, field rules and record types. opts are applied after the schema
// defaults.
func NewSession(s *api.Schema, opts ...batch.Option) *batch.Session {
	base := []batch.Option{
		batch.WithConstraints(Constraints(s)),
		batch.WithRecordTypes(RecordTypes(s)),
	}
	sess := batch.NewSession(append(base, opts...)...)
	Apply(s, sess)
	return sess
}

// Apply registers the schema's graph and discovery configuration on sess.
func Apply(s *api.Schema, sess *batch.Session) {
	for _, e := range s.Entities {
		sess.Graph().Node(record.EntityType(e.Name))
	}
	for _, e := range s.Entities {
		t := record.EntityType(e.Name)
		for _, d := range e.DependsOn {
			sess.DependsOn(t, record.EntityType(d))
		}
		for _, l := range e.Links {
			sess.DependsOn(t, record.EntityType(l.Entity))
			sess.SetDiscoverableField(record.EntityType(l.Entity), record.Field(l.Match))
		}
		sess.SetDiscoverableFields(t, fields(e.Discoverable)...)
	}
}

func fields(names []string) []record.Field {
	out := make([]record.Field, len(names))
	for i, n := range names {
		out[i] = record.Field(n)
	}
	return out
}
