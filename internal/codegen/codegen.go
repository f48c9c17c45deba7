// Package codegen renders Go constants for the entity types and fields a
// schema declares, so application code can name them without string literals.
package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"github.com/agentic-research/seedgraph/api"
	"github.com/agentic-research/seedgraph/internal/config"
	"mvdan.cc/gofumpt/format"
)

var fileTmpl = template.Must(template.New("constants").Parse(`// Code generated by seedgraph gen. DO NOT EDIT.

package {{.Package}}

// Entity types.
const (
{{- range .Entities}}
	{{.Ident}} = {{printf "%q" .Name}}
{{- end}}
)
{{range .Entities}}{{if .Fields}}
// {{.Name}} fields.
const (
{{- range .Fields}}
	{{.Ident}} = {{printf "%q" .Name}}
{{- end}}
)
{{end}}{{end}}
// CommitOrder lists entity types dependencies first.
var CommitOrder = []string{
{{- range .Order}}
	{{printf "%q" .}},
{{- end}}
}
`))

type constant struct {
	Ident string
	Name  string
}

type entityData struct {
	constant
	Fields []constant
}

type fileData struct {
	Package  string
	Entities []entityData
	Order    []string
}

// Generate renders the constants file for schema s in package pkg, formatted
// with gofumpt.
func Generate(s *api.Schema, pkg string) ([]byte, error) {
	if !isIdent(pkg) {
		return nil, fmt.Errorf("invalid package name %q", pkg)
	}
	order, err := config.NewSession(s).Graph().TopologicalOrder()
	if err != nil {
		return nil, err
	}

	data := fileData{Package: pkg}
	for _, t := range order {
		data.Order = append(data.Order, string(t))
	}
	fields := schemaFields(s)
	for _, e := range s.Entities {
		ent := entityData{constant: constant{Ident: "Entity" + exported(e.Name), Name: e.Name}}
		for _, f := range fields[e.Name] {
			ent.Fields = append(ent.Fields, constant{Ident: exported(e.Name) + exported(f), Name: f})
		}
		data.Entities = append(data.Entities, ent)
	}

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render constants: %w", err)
	}
	out, err := format.Source(buf.Bytes(), format.Options{ExtraRules: true})
	if err != nil {
		return nil, fmt.Errorf("format constants: %w", err)
	}
	return out, nil
}

// schemaFields collects, per entity, every field the schema mentions: its
// own field lists and link fields, plus the match fields other entities link
// through.
func schemaFields(s *api.Schema) map[string][]string {
	seen := make(map[string]map[string]bool)
	add := func(entity string, names ...string) {
		if seen[entity] == nil {
			seen[entity] = make(map[string]bool)
		}
		for _, n := range names {
			seen[entity][n] = true
		}
	}
	for _, e := range s.Entities {
		add(e.Name, e.Discoverable...)
		add(e.Name, e.ReadOnly...)
		add(e.Name, e.Restricted...)
		for _, l := range e.Links {
			add(e.Name, l.Field)
			add(l.Entity, l.Match)
		}
	}
	out := make(map[string][]string, len(seen))
	for entity, fields := range seen {
		names := make([]string, 0, len(fields))
		for n := range fields {
			names = append(names, n)
		}
		sort.Strings(names)
		out[entity] = names
	}
	return out
}

// exported turns a schema name into an exported Go identifier fragment:
// non-alphanumerics split words, each word is capitalized.
func exported(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	s := b.String()
	if s == "" || unicode.IsDigit([]rune(s)[0]) {
		s = "X" + s
	}
	return s
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
