package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/dicomsort/internal/pattern"
	"github.com/harrison/dicomsort/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternListShowsBuiltins(t *testing.T) {
	home := setupHome(t)

	out, err := executeCommand(t, "pattern", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "idis"))
	assert.True(t, strings.HasPrefix(lines[2], "nucmed"))
	assert.FileExists(t, filepath.Join(home, "patterns.yaml"))
}

func TestPatternAddShowRemove(t *testing.T) {
	setupHome(t)

	out, err := executeCommand(t, "pattern", "add", "simple", "(PatientID)/(Modality)/(count:SOPInstanceUID).dcm")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved pattern simple (6 element(s), 1 counter(s))")

	out, err = executeCommand(t, "pattern", "show", "simple")
	require.NoError(t, err)
	assert.Contains(t, out, "Pattern: (PatientID)/(Modality)/(count:SOPInstanceUID).dcm")
	assert.Contains(t, out, `literal ".dcm"`)

	out, err = executeCommand(t, "pattern", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "simple")

	out, err = executeCommand(t, "pattern", "remove", "simple")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed pattern simple")

	_, err = executeCommand(t, "pattern", "show", "simple")
	assert.ErrorIs(t, err, registry.ErrPatternNotFound)
}

func TestPatternAddSyntaxError(t *testing.T) {
	home := setupHome(t)

	_, err := executeCommand(t, "pattern", "add", "broken", "(PatientID/(Modality)")
	require.Error(t, err)
	assert.ErrorIs(t, err, pattern.ErrSyntax)

	data, err := os.ReadFile(filepath.Join(home, "patterns.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "broken")
}

func TestPatternAddExisting(t *testing.T) {
	setupHome(t)

	_, err := executeCommand(t, "pattern", "add", "idis", "(PatientID)")
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrPatternExists)
	assert.Contains(t, err.Error(), "--force")

	_, err = executeCommand(t, "pattern", "add", "idis", "(PatientID)", "--force")
	require.NoError(t, err)

	out, err := executeCommand(t, "pattern", "show", "idis")
	require.NoError(t, err)
	assert.Contains(t, out, "Pattern: (PatientID)\n")
}

func TestPatternRemoveMissing(t *testing.T) {
	setupHome(t)
	_, err := executeCommand(t, "pattern", "remove", "nope")
	assert.ErrorIs(t, err, registry.ErrPatternNotFound)
}

func TestPatternListDicomTags(t *testing.T) {
	setupHome(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
	}{
		{
			name:     "all",
			args:     []string{"pattern", "list_dicomtags"},
			contains: []string{"KEYWORD", "PatientID", "(0010,0020)", "SOPInstanceUID"},
		},
		{
			name:     "filtered",
			args:     []string{"pattern", "list_dicomtags", "patient"},
			contains: []string{"PatientID", "(0010,0020)"},
			excludes: []string{"SOPInstanceUID", "Modality"},
		},
		{
			name:     "library keyword",
			args:     []string{"pattern", "list_dicomtags", "AcquisitionDeviceProcessingDescription"},
			contains: []string{"AcquisitionDeviceProcessingDescription", "(0018,1400)"},
		},
		{
			name:     "no match",
			args:     []string{"pattern", "list_dicomtags", "zzzz"},
			contains: []string{`No tag keywords match "zzzz".`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}
