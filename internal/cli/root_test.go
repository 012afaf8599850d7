package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrag-mcp-server/internal/history"
	"github.com/medrag-mcp-server/internal/knowledge"
	"github.com/medrag-mcp-server/internal/service"
)

// run executes the command tree with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func isolate(t *testing.T, historyEnabled bool) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MEDRAG_DATA_DIR", dir)
	t.Setenv("MEDRAG_KNOWLEDGE_DIR", "")
	t.Setenv("MEDRAG_REDIS_URL", "")
	if historyEnabled {
		t.Setenv("MEDRAG_HISTORY", "true")
	} else {
		t.Setenv("MEDRAG_HISTORY", "false")
	}
	return dir
}

func TestSetVersionInfo(t *testing.T) {
	origVersion, origCommit, origDate := appVersion, appCommit, appDate
	defer func() {
		appVersion, appCommit, appDate = origVersion, origCommit, origDate
	}()

	SetVersionInfo("1.2.3", "abc1234", "2026-02-13")

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "medrag 1.2.3")
	assert.Contains(t, out, "abc1234")
}

func TestExecute_UnknownCommand(t *testing.T) {
	_, err := run(t, "nonexistent-command")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestResolveCommand(t *testing.T) {
	isolate(t, false)

	tests := []struct {
		args    []string
		subject string
		stage   string
	}{
		{[]string{"resolve", "Type", "2", "Diabetes", "first-line", "treatment"}, "Type 2 Diabetes", "direct"},
		{[]string{"resolve", "HTN management"}, "Hypertension", "alias"},
		{[]string{"resolve", "Kawasaki disease treatment protocol"}, "Kawasaki disease", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.subject)
			assert.Contains(t, out, "Match: "+tt.stage)
			assert.Contains(t, out, "## ")
			assert.Contains(t, out, "pubmed.ncbi.nlm.nih.gov")
		})
	}
}

func TestResolveCommand_JSON(t *testing.T) {
	isolate(t, false)

	out, err := run(t, "resolve", "--json", "HTN", "in", "pregnancy")
	require.NoError(t, err)

	var decoded struct {
		Subject  string `json:"subject"`
		Stage    string `json:"stage"`
		Query    string `json:"query"`
		Sections []struct {
			Heading string `json:"heading"`
		} `json:"sections"`
		service.SearchLinks
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "Hypertension", decoded.Subject)
	assert.Equal(t, "alias", decoded.Stage)
	assert.Equal(t, "HTN in pregnancy", decoded.Query)
	assert.NotEmpty(t, decoded.Sections)
	assert.Contains(t, decoded.Google, "google.com")
}

func TestResolveCommand_EmptyQuery(t *testing.T) {
	isolate(t, false)

	_, err := run(t, "resolve", "??")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no searchable terms")
}

func TestClassifyCommand(t *testing.T) {
	isolate(t, false)

	out, err := run(t, "classify", "necrotising fasciitis in children")
	require.NoError(t, err)
	assert.Contains(t, out, "Category: Infectious-Severe")
	assert.Contains(t, out, "Acute:    true")
	assert.Contains(t, out, "paediatric")
}

func TestConditionsCommand(t *testing.T) {
	isolate(t, false)

	all, err := run(t, "conditions")
	require.NoError(t, err)
	assert.Contains(t, all, "Hypertension")

	oncology, err := run(t, "conditions", "--category", "Oncology")
	require.NoError(t, err)
	assert.NotContains(t, oncology, "Hypertension")
	assert.Contains(t, oncology, "Oncology")

	_, err = run(t, "conditions", "--category", "Dermatology")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "embedded:")

	_, err = run(t, "validate", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\nhistory:\n  driver: none\n"), 0644))

	_, err := run(t, "--config", path, "resolve", "asthma")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestHistoryCommands(t *testing.T) {
	dir := isolate(t, true)

	store, err := history.NewSQLiteStore(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	resolver := newTestResolver(t)
	for _, q := range []string{"asthma", "HTN"} {
		result, err := resolver.Resolve(context.Background(), q)
		require.NoError(t, err)
		require.NoError(t, store.Save(context.Background(), history.NewRecord("dr-grey", q, result, 0)))
	}
	require.NoError(t, store.Close())

	out, err := run(t, "history", "list", "--user", "dr-grey")
	require.NoError(t, err)
	assert.Contains(t, out, "Hypertension")
	assert.Contains(t, out, "Asthma")

	out, err = run(t, "history", "export", "-o", "-")
	require.NoError(t, err)
	var export history.Export
	require.NoError(t, json.Unmarshal([]byte(out), &export))
	assert.Equal(t, 2, export.Count)

	out, err = run(t, "history", "export")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "exports"))
	files, err := os.ReadDir(filepath.Join(dir, "exports"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestHistoryCommands_Disabled(t *testing.T) {
	isolate(t, false)

	_, err := run(t, "history", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestSetupCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")
	binary := filepath.Join(dir, "medrag")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	out, err := run(t, "setup", "claude-desktop", "--config-path", configPath, "--binary", binary, "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "medrag-query-resolver")

	out, err = run(t, "setup", "status", "--config-path", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered: true")
	assert.NotContains(t, out, "!")
}

func newTestResolver(t *testing.T) *service.Resolver {
	t.Helper()
	catalog, err := knowledge.Open("", nil)
	require.NoError(t, err)
	return service.NewResolver(catalog, nil)
}
