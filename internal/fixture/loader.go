// Package fixture turns data files into builders, following the entity
// sources and links declared in a schema.
package fixture

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentic-research/seedgraph/api"
	"github.com/agentic-research/seedgraph/internal/batch"
	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"
)

// RecordTypeKey names the item key resolved through Builder.RecordType.
const RecordTypeKey = "record_type"

// Result lists the builders created per entity type, in creation order.
type Result struct {
	Builders map[record.EntityType][]*batch.Builder
	Count    int
}

type Loader struct {
	schema *api.Schema
	sess   *batch.Session
	walker *Walker
}

func NewLoader(schema *api.Schema, sess *batch.Session) *Loader {
	return &Loader{schema: schema, sess: sess, walker: NewWalker()}
}

// Decode parses a data document. .yaml and .yml files are YAML, everything
// else JSON.
func Decode(src []byte, path string) (any, error) {
	var data any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(src, &data); err != nil {
			return nil, fmt.Errorf("decode yaml %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(src, &data); err != nil {
			return nil, fmt.Errorf("decode json %s: %w", path, err)
		}
	}
	return data, nil
}

// LoadFile reads path from fs and loads it.
func (l *Loader) LoadFile(fs billy.Filesystem, path string) (*Result, error) {
	src, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read data %s: %w", path, err)
	}
	data, err := Decode(src, path)
	if err != nil {
		return nil, err
	}
	return l.Load(data)
}

// Load creates one builder per selected item. Entities are visited in commit
// order so link targets are usually already in flight and can be discovered;
// otherwise the link becomes an external reference.
func (l *Loader) Load(data any) (*Result, error) {
	order, err := l.sess.Graph().TopologicalOrder()
	if err != nil {
		return nil, err
	}
	res := &Result{Builders: make(map[record.EntityType][]*batch.Builder)}
	for _, t := range order {
		e, ok := l.schema.Entity(string(t))
		if !ok || e.Source == "" {
			continue
		}
		items, err := l.walker.Query(data, e.Source)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
		for _, item := range items {
			b, err := l.build(e, item)
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", e.Name, err)
			}
			res.Builders[t] = append(res.Builders[t], b)
			res.Count++
		}
	}
	return res, nil
}

func (l *Loader) build(e *api.Entity, values map[string]any) (*batch.Builder, error) {
	t := record.EntityType(e.Name)
	var b *batch.Builder
	if e.Privileged {
		b = l.sess.NewPrivilegedBuilder(t)
	} else {
		b = l.sess.NewBuilder(t)
	}

	linkKeys := make(map[string]bool, len(e.Links))
	for _, lk := range e.Links {
		linkKeys[lk.Value] = true
	}
	restricted := make(map[string]bool, len(e.Restricted))
	for _, f := range e.Restricted {
		restricted[f] = true
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		switch {
		case linkKeys[k]:
		case k == RecordTypeKey:
			name, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a string, got %T", RecordTypeKey, v)
			}
			b.RecordType(name)
		case restricted[k]:
			b.AssignRestrictedFieldValue(record.Field(k), v)
		default:
			b.Set(record.Field(k), v)
		}
	}

	for _, lk := range e.Links {
		v, ok := values[lk.Value]
		if !ok {
			continue
		}
		target := record.EntityType(lk.Entity)
		if parent, ok := l.sess.DiscoverRelatedBuilder(target, record.Field(lk.Match), v); ok {
			b.SetParent(record.Field(lk.Field), parent)
			continue
		}
		b.SetReference(record.Field(lk.Field), record.Descriptor{Entity: target, Field: record.Field(lk.Match)}, v)
	}
	return b, nil
}
