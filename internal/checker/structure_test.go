package checker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stlcheck/internal/config"
	"github.com/philipparndt/stlcheck/internal/logger"
	"github.com/philipparndt/stlcheck/pkg/analysis"
	"github.com/philipparndt/stlcheck/pkg/stl/stltest"
)

const clampMetadata = `title: Clamp
description: Cable clamp for the frame
cad:
  - clamp.step
stl:
  - clamp.stl
  - missing.stl
images: []
`

// modRepository builds a small repository with one well formed mod and
// several broken ones
func modRepository(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	cube := stltest.Binary(stltest.Cube())

	writeFile(t, root, "README.md", []byte("# mods"))
	writeFile(t, root, "stray.txt", []byte("stray"))
	writeFile(t, root, ".git/config", []byte("[core]"))
	writeFile(t, root, "alice/notes.txt", []byte("notes"))

	writeFile(t, root, "alice/clamp/.metadata.yml", []byte(clampMetadata))
	writeFile(t, root, "alice/clamp/clamp.step", []byte("step"))
	writeFile(t, root, "alice/clamp/clamp.stl", cube)
	writeFile(t, root, "alice/clamp/extra part.stl", cube)

	writeFile(t, root, "alice/empty/.metadata.yml", []byte("title: Empty\ndescription: Nothing here\ncad: []\nstl: []\n"))
	writeFile(t, root, "bob/nometa/part.stl", cube)
	writeFile(t, root, "bob/broken/.metadata.yml", []byte("title: [unclosed\n"))
	writeFile(t, root, "bob/schema/.metadata.yml", []byte("title: Only a title\n"))
	return root
}

func structureConfig() *config.Config {
	cfg := config.Default()
	cfg.Structure.Enabled = true
	return cfg
}

func TestCheckStructure(t *testing.T) {
	root := modRepository(t)

	issues, err := New(structureConfig(), logger.Nop()).CheckStructure(context.Background(), root)
	require.NoError(t, err)

	type got struct {
		kind IssueKind
		path string
	}
	var actual []got
	for _, i := range issues {
		actual = append(actual, got{i.Kind, i.Path})
	}
	assert.Equal(t, []got{
		{IssueWhitespaceInPath, "alice/clamp/extra part.stl"},
		{IssueUnlistedMesh, "alice/clamp/extra part.stl"},
		{IssueMissingListedFile, "alice/clamp/missing.stl"},
		{IssueEmptyFileList, "alice/empty/.metadata.yml"},
		{IssueEmptyFileList, "alice/empty/.metadata.yml"},
		{IssueOutsideModFolder, "alice/notes.txt"},
		{IssueInvalidMetadata, "bob/broken/.metadata.yml"},
		{IssueMissingMetadata, "bob/nometa"},
		{IssueInvalidMetadata, "bob/schema/.metadata.yml"},
		{IssueOutsideModFolder, "stray.txt"},
	}, actual)

	assert.Equal(t, "alice/clamp", issues[1].ModDir)
	assert.Equal(t, analysis.SeverityWarning, issues[1].Severity)
	assert.Equal(t, analysis.SeverityError, issues[2].Severity)
	assert.Contains(t, issues[3].Message, "CAD")
	assert.Contains(t, issues[4].Message, "STL")
}

func TestCheckStructureLicenseAndSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "alice/clamp/.metadata.yml", []byte("title: Clamp\ndescription: Clamp\ncad: [clamp.step]\nstl: [clamp.stl]\n"))
	writeFile(t, root, "alice/clamp/clamp.step", []byte("step"))
	writeFile(t, root, "alice/clamp/clamp.stl", stltest.Binary(stltest.Cube()))
	writeFile(t, root, "alice/clamp/LICENSE", []byte("MIT"))

	cfg := structureConfig()
	issues, err := New(cfg, logger.Nop()).CheckStructure(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, issues)

	cfg.Structure.CheckLicense = true
	cfg.Structure.MaxFileSizeMB = 0.0005 // about 500 bytes
	issues, err = New(cfg, logger.Nop()).CheckStructure(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, issues, 2)
	assert.Equal(t, IssueLicenseFile, issues[0].Kind)
	assert.Equal(t, "alice/clamp/LICENSE", issues[0].Path)
	assert.Equal(t, IssueFileTooLarge, issues[1].Kind)
	assert.Equal(t, "alice/clamp/clamp.stl", issues[1].Path)
	assert.Equal(t, analysis.SeverityWarning, issueSeverity(issues))
}

func TestCheckStructureCancelled(t *testing.T) {
	root := modRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(structureConfig(), logger.Nop()).CheckStructure(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTreeMergesIssues(t *testing.T) {
	root := modRepository(t)
	targets, _, err := CollectTargets(root, nil, 0)
	require.NoError(t, err)

	report, err := New(config.Default(), logger.Nop()).RunTree(context.Background(), root, targets)
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.Equal(t, analysis.SeverityOK, report.Severity)

	report, err = New(structureConfig(), logger.Nop()).RunTree(context.Background(), root, targets)
	require.NoError(t, err)
	assert.Len(t, report.Issues, 10)
	assert.Equal(t, analysis.SeverityError, report.Severity)
	assert.False(t, report.Incomplete)
	assert.Equal(t, 1, ExitCode(report))

	report, err = New(structureConfig(), logger.Nop()).RunTree(context.Background(), "", targets)
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
}

func TestRunTreeMissingRoot(t *testing.T) {
	report, err := New(structureConfig(), logger.Nop()).RunTree(context.Background(),
		filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.True(t, report.Incomplete)
	assert.Contains(t, report.IncompleteReason, "structure check failed")
	assert.Equal(t, analysis.SeverityError, report.Severity)
}

func TestParseMetadata(t *testing.T) {
	md, err := ParseMetadata("ok.yml", []byte(clampMetadata))
	require.NoError(t, err)
	assert.Equal(t, "Clamp", md.Title)
	assert.Equal(t, []string{"clamp.step"}, md.CAD)
	assert.Equal(t, []string{"clamp.stl", "missing.stl"}, md.STL)
	assert.Empty(t, md.Images)

	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"list", "- a\n- b\n"},
		{"bad yaml", "title: [unclosed\n"},
		{"missing fields", "title: Clamp\n"},
		{"wrong type", "title: Clamp\ndescription: d\ncad: clamp.step\nstl: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadata("bad.yml", []byte(tt.data))
			var merr *MetadataError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, "bad.yml", merr.Path)
		})
	}
}
