package config

import (
	"context"
	"testing"

	"github.com/agentic-research/seedgraph/internal/depgraph"
	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
version = "v1"

entity "Account" {
  discoverable = ["Name"]
  read_only    = ["CreatedDate"]
  source       = "$.accounts[*]"
  record_types = { Business = "012000000000001" }
}

entity "Contact" {
  depends_on = ["Account"]
  restricted = ["FullName"]
  source     = "$.contacts[*]"

  link "AccountId" {
    entity = "Account"
    match  = "Name"
    value  = "account"
  }
}

entity "Campaign" {
  privileged = true
}
`

func TestLoad_HCL(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, DefaultPath, []byte(sampleHCL), 0o644))

	s, err := Load(fs, DefaultPath)
	require.NoError(t, err)

	assert.Equal(t, "v1", s.Version)
	require.Len(t, s.Entities, 3)
	contact, ok := s.Entity("Contact")
	require.True(t, ok)
	assert.Equal(t, []string{"Account"}, contact.DependsOn)
	assert.Equal(t, []string{"FullName"}, contact.Restricted)
	require.Len(t, contact.Links, 1)
	assert.Equal(t, "AccountId", contact.Links[0].Field)
	assert.Equal(t, "account", contact.Links[0].Value)

	acct, _ := s.Entity("Account")
	assert.Equal(t, map[string]string{"Business": "012000000000001"}, acct.RecordTypes)

	campaign, _ := s.Entity("Campaign")
	assert.True(t, campaign.Privileged)
}

func TestLoad_JSON(t *testing.T) {
	fs := memfs.New()
	src := `{"version":"v1","entities":[{"name":"Account"},{"name":"Contact","depends_on":["Account"]}]}`
	require.NoError(t, util.WriteFile(fs, "schema.json", []byte(src), 0o644))

	s, err := Load(fs, "schema.json")
	require.NoError(t, err)
	require.Len(t, s.Entities, 2)
	assert.Equal(t, []string{"Account"}, s.Entities[1].DependsOn)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(memfs.New(), "nope.hcl")
	assert.Error(t, err)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte(`entity "A" {`), "bad.hcl", false)
	assert.ErrorContains(t, err, "parse schema bad.hcl")
}

func TestValidate(t *testing.T) {
	src := `
entity "A" { depends_on = ["Missing"] }
entity "A" {}
entity "B" {
  link "AId" {
    entity = "Ghost"
    match  = "Name"
    value  = "a"
  }
}
`
	_, err := Parse([]byte(src), "invalid.hcl", false)
	require.ErrorIs(t, err, ErrInvalidSchema)
	assert.ErrorContains(t, err, `undeclared entity "Missing"`)
	assert.ErrorContains(t, err, `declared twice`)
	assert.ErrorContains(t, err, `undeclared entity "Ghost"`)
}

func TestNewSession(t *testing.T) {
	s, err := Parse([]byte(sampleHCL), "sample.hcl", false)
	require.NoError(t, err)
	sess := NewSession(s)

	order, err := sess.Graph().TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []record.EntityType{"Account", "Contact", "Campaign"}, order)

	assert.True(t, sess.Discovery().IsDiscoverable("Account", "Name"))

	b := sess.NewBuilder("Account").Set("CreatedDate", "2020-01-01").RecordType("Business")
	assert.True(t, b.IsShelved("CreatedDate"))
	v, _ := b.Value(record.RecordTypeField)
	assert.Equal(t, "012000000000001", v)

	got, ok := sess.DiscoverRelatedBuilder("Account", "Name", "Acme")
	assert.False(t, ok)
	assert.Nil(t, got)

	_, err = sess.MockAll(context.Background())
	require.NoError(t, err)
}

func TestNewSession_CycleSurfacesAtOrder(t *testing.T) {
	src := `
entity "A" { depends_on = ["B"] }
entity "B" { depends_on = ["A"] }
`
	s, err := Parse([]byte(src), "cycle.hcl", false)
	require.NoError(t, err)

	_, err = NewSession(s).Graph().TopologicalOrder()
	assert.ErrorIs(t, err, depgraph.ErrCycle)
}
