package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/suyashkumar/dicom/pkg/uid"

	"github.com/harrison/dicomsort/internal/config"
	"github.com/harrison/dicomsort/internal/ledger"
	"github.com/harrison/dicomsort/internal/metadata"
	"github.com/harrison/dicomsort/internal/sorter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simplePattern = "(PatientID)/(Modality)/(count:SOPInstanceUID).dcm"

func twoRecordJob(t *testing.T) (string, metadata.MapReader) {
	t.Helper()
	return writeJob(t, map[string]metadata.MapRecord{
		"a.dcm":     {keyPatientID: "P1", keyModality: "CT", keySOPInstanceUID: "1.2.3"},
		"sub/b.dcm": {keyPatientID: "P1", keyModality: "CT", keySOPInstanceUID: "1.2.4"},
	}, "notes.txt")
}

func addSimplePattern(t *testing.T) {
	t.Helper()
	_, err := executeCommand(t, "pattern", "add", "simple", simplePattern)
	require.NoError(t, err)
}

func TestSortCopiesIntoPatternLayout(t *testing.T) {
	home := setupHome(t)
	addSimplePattern(t)
	jobDir, reader := twoRecordJob(t)
	useReader(t, reader)

	out, err := executeCommand(t, "sort", jobDir, "simple")
	require.NoError(t, err, out)

	outputRoot := jobDir + "_sorted"
	data, err := os.ReadFile(filepath.Join(outputRoot, "P1", "CT", "0.dcm"))
	require.NoError(t, err)
	assert.Equal(t, "data:a.dcm", string(data))
	assert.FileExists(t, filepath.Join(outputRoot, "P1", "CT", "1.dcm"))

	// Copy leaves the job folder untouched
	assert.FileExists(t, filepath.Join(jobDir, "a.dcm"))

	assert.Contains(t, out, "Sorting")
	assert.Contains(t, out, "Skipped")
	assert.Contains(t, out, "=== Sort Summary ===")

	entries, err := os.ReadDir(filepath.Join(home, "logs"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	store, err := ledger.NewStore(filepath.Join(home, "history.db"))
	require.NoError(t, err)
	defer store.Close()
	jobs, err := store.ListJobs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, ledger.StatusCompleted, jobs[0].Status)
	assert.Equal(t, 2, jobs[0].Placed)
	assert.Equal(t, 1, jobs[0].Skipped)
	assert.Equal(t, "simple", jobs[0].PatternName)
}

func TestSortMoveWithOutputFolder(t *testing.T) {
	setupHome(t)
	addSimplePattern(t)
	jobDir, reader := twoRecordJob(t)
	useReader(t, reader)

	outputRoot := filepath.Join(t.TempDir(), "sorted")
	_, err := executeCommand(t, "sort", jobDir, "simple", "--output_folder", outputRoot, "--move", "--no-history")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(outputRoot, "P1", "CT", "0.dcm"))
	assert.NoFileExists(t, filepath.Join(jobDir, "a.dcm"))
	assert.NoFileExists(t, filepath.Join(jobDir, "sub", "b.dcm"))
	// Non-DICOM files stay behind
	assert.FileExists(t, filepath.Join(jobDir, "notes.txt"))
}

func TestSortDryRunWithReport(t *testing.T) {
	setupHome(t)
	addSimplePattern(t)
	jobDir, reader := twoRecordJob(t)
	useReader(t, reader)

	reportPath := filepath.Join(t.TempDir(), "plan.html")
	out, err := executeCommand(t, "sort", jobDir, "simple", "--dry-run", "--report", reportPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Dry-run mode: 2 file(s) would be placed")
	assert.Contains(t, out, "Report written to "+reportPath)
	assert.NoDirExists(t, jobDir+"_sorted")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
	assert.Contains(t, string(data), "P1/CT/0.dcm")
}

func TestSortMissingTagPolicies(t *testing.T) {
	records := map[string]metadata.MapRecord{
		"a.dcm": {keyPatientID: "P1", keyModality: "CT", keySOPInstanceUID: "1"},
		"b.dcm": {keyModality: "CT", keySOPInstanceUID: "2"},
	}

	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		placed   []string
		contains string
	}{
		{
			name:     "abort by default",
			wantErr:  true,
			contains: "could not be resolved",
		},
		{
			name:   "skip",
			args:   []string{"--on-missing-tag", "skip"},
			placed: []string{filepath.Join("P1", "CT", "0.dcm")},
		},
		{
			name:     "collect",
			args:     []string{"--on-missing-tag", "collect"},
			wantErr:  true,
			contains: "1 of 2 record(s) could not be resolved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHome(t)
			addSimplePattern(t)
			jobDir, reader := writeJob(t, records)
			useReader(t, reader)

			args := append([]string{"sort", jobDir, "simple", "--no-history"}, tt.args...)
			out, err := executeCommand(t, args...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, out, tt.contains)
				assert.NoDirExists(t, jobDir+"_sorted")
				return
			}
			require.NoError(t, err)
			for _, rel := range tt.placed {
				assert.FileExists(t, filepath.Join(jobDir+"_sorted", rel))
			}
		})
	}
}

func TestSortInvalidPolicyFlag(t *testing.T) {
	setupHome(t)
	jobDir, reader := twoRecordJob(t)
	useReader(t, reader)

	_, err := executeCommand(t, "sort", jobDir, "idis", "--on-missing-tag", "ignore")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSortCollision(t *testing.T) {
	setupHome(t)
	_, err := executeCommand(t, "pattern", "add", "flat", "(PatientID).dcm")
	require.NoError(t, err)
	jobDir, reader := twoRecordJob(t)
	useReader(t, reader)

	out, err := executeCommand(t, "sort", jobDir, "flat")
	require.Error(t, err)
	assert.ErrorIs(t, err, sorter.ErrCollision)
	assert.Contains(t, out, "claimed by more than one file")
	assert.NoDirExists(t, jobDir+"_sorted")
}

func TestSortPathTooLong(t *testing.T) {
	setupHome(t)
	addSimplePattern(t)
	jobDir, reader := twoRecordJob(t)
	useReader(t, reader)

	_, err := executeCommand(t, "sort", jobDir, "simple", "--max-path-length", "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, sorter.ErrPathTooLong)
}

func TestSortUnknownPattern(t *testing.T) {
	setupHome(t)
	jobDir, reader := twoRecordJob(t)
	useReader(t, reader)

	_, err := executeCommand(t, "sort", jobDir, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown pattern "nope"`)
}

func TestSortJobFolderErrors(t *testing.T) {
	setupHome(t)

	_, err := executeCommand(t, "sort", filepath.Join(t.TempDir(), "missing"), "idis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job folder")

	file := filepath.Join(t.TempDir(), "file.dcm")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = executeCommand(t, "sort", file, "idis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestSortArgs(t *testing.T) {
	setupHome(t)
	_, err := executeCommand(t, "sort", "only-one-arg")
	assert.Error(t, err)
}

func TestSortUsesConfigDefaults(t *testing.T) {
	home := setupHome(t)
	cfg := "sort:\n  mode: move\n  substitute: \"-\"\nhistory:\n  enabled: false\nlog_dir: \"\"\n"
	require.NoError(t, os.WriteFile(config.ConfigPath(home), []byte(cfg), 0644))
	addSimplePattern(t)

	jobDir, reader := writeJob(t, map[string]metadata.MapRecord{
		"a.dcm": {keyPatientID: "Doe John", keyModality: "CT", keySOPInstanceUID: "1"},
	})
	useReader(t, reader)

	_, err := executeCommand(t, "sort", jobDir, "simple")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(jobDir+"_sorted", "Doe-John", "CT", "0.dcm"))
	assert.NoFileExists(t, filepath.Join(jobDir, "a.dcm"))
	assert.NoFileExists(t, filepath.Join(home, "history.db"))
	assert.NoDirExists(t, filepath.Join(home, "logs"))
}

func TestSortRejectsOutputEqualToSource(t *testing.T) {
	setupHome(t)
	addSimplePattern(t)
	jobDir, reader := twoRecordJob(t)
	useReader(t, reader)

	_, err := executeCommand(t, "sort", jobDir, "simple", "--output_folder", jobDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, sorter.ErrOutputIsSource)
}

// writeDICOMFile writes a minimal DICOM file with the given patient,
// modality and instance UID.
func writeDICOMFile(t *testing.T, path, patientID, modality, instanceUID string) {
	t.Helper()
	var ds dicom.Dataset
	for _, e := range []struct {
		tag  tag.Tag
		data []string
	}{
		{tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}},
		{tag.MediaStorageSOPInstanceUID, []string{instanceUID}},
		{tag.TransferSyntaxUID, []string{uid.ExplicitVRLittleEndian}},
		{tag.SOPInstanceUID, []string{instanceUID}},
		{tag.Modality, []string{modality}},
		{tag.PatientID, []string{patientID}},
	} {
		elem, err := dicom.NewElement(e.tag, e.data)
		require.NoError(t, err)
		ds.Elements = append(ds.Elements, elem)
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, dicom.Write(f, ds))
}

func TestSortReadsDICOMFiles(t *testing.T) {
	setupHome(t)
	addSimplePattern(t)

	jobDir := filepath.Join(t.TempDir(), "job")
	writeDICOMFile(t, filepath.Join(jobDir, "img1"), "1234", "MR", "1.2.3.1")
	writeDICOMFile(t, filepath.Join(jobDir, "series", "img2"), "1234", "MR", "1.2.3.2")
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "README"), []byte("not dicom"), 0644))

	original, err := os.ReadFile(filepath.Join(jobDir, "img1"))
	require.NoError(t, err)

	out, err := executeCommand(t, "sort", jobDir, "simple", "--no-history")
	require.NoError(t, err, out)

	outputRoot := jobDir + "_sorted"
	placed, err := os.ReadFile(filepath.Join(outputRoot, "1234", "MR", "0.dcm"))
	require.NoError(t, err)
	assert.Equal(t, original, placed)
	assert.FileExists(t, filepath.Join(outputRoot, "1234", "MR", "1.dcm"))
	assert.NoFileExists(t, filepath.Join(outputRoot, "README"))
	assert.Contains(t, out, "Skipped")
}
