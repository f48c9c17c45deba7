package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/seedgraph/internal/batch"
	"github.com/agentic-research/seedgraph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
entity "Account" {
  discoverable = ["Name"]
  source       = "$.accounts[*]"
}

entity "Contact" {
  restricted = ["FullName"]
  source     = "$.contacts[*]"

  link "AccountId" {
    entity = "Account"
    match  = "Name"
    value  = "account"
  }
}

entity "Audit" {
  privileged = true
  source     = "$.audits[*]"
}
`

const testData = `{
  "accounts": [{"Name": "Acme"}],
  "contacts": [{"Email": "a@acme.test", "FullName": "Ann", "account": "Acme"}],
  "audits":   [{"Note": "seeded"}]
}`

func writeFiles(t *testing.T) (schema, data string) {
	t.Helper()
	dir := t.TempDir()
	schema = filepath.Join(dir, config.DefaultPath)
	data = filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(schema, []byte(testSchema), 0o644))
	require.NoError(t, os.WriteFile(data, []byte(testData), 0o644))
	return schema, data
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	schemaPath = config.DefaultPath
	verbose = false
	planReverse = false
	loadMock, loadDriver, loadDSN, loadAllowPrivileged, loadMetricsOut = false, "memory", "", false, ""
	genPackage, genOut = "seeds", ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPlan(t *testing.T) {
	schema, _ := writeFiles(t)

	out, err := run(t, "plan", "--schema", schema)
	require.NoError(t, err)
	assert.Equal(t, "1. Account\n2. Contact (after [Account])\n3. Audit\n", out)

	out, err = run(t, "plan", "--schema", schema, "--reverse")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Audit\n2. Contact")
}

func TestPlan_MissingSchema(t *testing.T) {
	_, err := run(t, "plan", "--schema", filepath.Join(t.TempDir(), "nope.hcl"))
	assert.ErrorContains(t, err, "read schema")
}

func TestLoad_Mock(t *testing.T) {
	schema, data := writeFiles(t)

	out, err := run(t, "load", data, "--schema", schema, "--mock")
	require.NoError(t, err)

	var res batch.MockResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Records, 3)
	contact := res.Records[1]
	link, _ := contact.Get("AccountId")
	assert.Equal(t, res.Records[0].ID, link)
	name, _ := contact.Get("FullName")
	assert.Equal(t, "Ann", name)
}

func TestLoad_SQLiteWithMetrics(t *testing.T) {
	schema, data := writeFiles(t)
	dir := t.TempDir()
	dsn := filepath.Join(dir, "seed.db")
	prom := filepath.Join(dir, "seed.prom")

	out, err := run(t, "load", data, "--schema", schema, "--driver", "sqlite", "--dsn", dsn, "--metrics-out", prom)
	require.NoError(t, err)
	assert.Contains(t, out, "Committed 2 records")
	assert.Contains(t, out, "(1 privileged skipped)")

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `seedgraph_cycles_total{mode="persist",status="success"} 1`)
	assert.Contains(t, string(metrics), `seedgraph_shelved_fields_total{entity="Contact"} 1`)

	out, err = run(t, "load", data, "--schema", schema, "--driver", "sqlite", "--dsn", dsn, "--allow-privileged")
	require.NoError(t, err)
	assert.Contains(t, out, "Committed 3 records")
}

func TestLoad_BadDriver(t *testing.T) {
	schema, data := writeFiles(t)

	_, err := run(t, "load", data, "--schema", schema, "--driver", "oracle")
	assert.ErrorContains(t, err, `unknown driver "oracle"`)

	_, err = run(t, "load", data, "--schema", schema, "--driver", "sqlite")
	assert.ErrorContains(t, err, "--dsn is required")
}

func TestGen(t *testing.T) {
	schema, _ := writeFiles(t)
	out, err := run(t, "gen", "--schema", schema, "--package", "fixtures")
	require.NoError(t, err)
	assert.Contains(t, out, "package fixtures")
	assert.Contains(t, out, `EntityAccount = "Account"`)

	target := filepath.Join(t.TempDir(), "seeds.go")
	_, err = run(t, "gen", "--schema", schema, "--out", target)
	require.NoError(t, err)
	src, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package seeds")
}
