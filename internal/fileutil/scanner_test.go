package fileutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("test content"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

func relNames(t *testing.T, root string, files []string) []string {
	t.Helper()
	var out []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestScanDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	// tmpDir/
	//   IM0001.dcm
	//   IM0002.DCM
	//   README.txt
	//   series1/
	//     IM0001
	//     nested/
	//       IM0001.dcm
	//   .hidden/
	//     IM0001.dcm
	//   .DS_Store
	//   sorted/
	//     out.dcm
	writeTree(t, tmpDir, []string{
		"IM0001.dcm",
		"IM0002.DCM",
		"README.txt",
		"series1/IM0001",
		"series1/nested/IM0001.dcm",
		".hidden/IM0001.dcm",
		".DS_Store",
		"sorted/out.dcm",
	})

	tests := []struct {
		name string
		opts ScanOptions
		want []string
	}{
		{
			name: "non-recursive",
			opts: ScanOptions{},
			want: []string{"IM0001.dcm", "IM0002.DCM", "README.txt"},
		},
		{
			name: "recursive skips hidden entries",
			opts: ScanOptions{Recursive: true},
			want: []string{
				"IM0001.dcm", "IM0002.DCM", "README.txt",
				"series1/IM0001", "series1/nested/IM0001.dcm", "sorted/out.dcm",
			},
		},
		{
			name: "include hidden",
			opts: ScanOptions{Recursive: true, IncludeHidden: true, ExcludeDirs: []string{"series1", "sorted"}},
			want: []string{".DS_Store", ".hidden/IM0001.dcm", "IM0001.dcm", "IM0002.DCM", "README.txt"},
		},
		{
			name: "extension filter is case-insensitive and dot optional",
			opts: ScanOptions{Recursive: true, Extensions: []string{"dcm"}},
			want: []string{"IM0001.dcm", "IM0002.DCM", "series1/nested/IM0001.dcm", "sorted/out.dcm"},
		},
		{
			name: "exclude by name",
			opts: ScanOptions{Recursive: true, ExcludeDirs: []string{"nested"}},
			want: []string{"IM0001.dcm", "IM0002.DCM", "README.txt", "series1/IM0001", "sorted/out.dcm"},
		},
		{
			name: "exclude by path",
			opts: ScanOptions{Recursive: true, ExcludePaths: []string{filepath.Join(tmpDir, "sorted")}},
			want: []string{"IM0001.dcm", "IM0002.DCM", "README.txt", "series1/IM0001", "series1/nested/IM0001.dcm"},
		},
		{
			name: "max depth",
			opts: ScanOptions{Recursive: true, MaxDepth: 2},
			want: []string{"IM0001.dcm", "IM0002.DCM", "README.txt", "series1/IM0001", "sorted/out.dcm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanDirectory(tmpDir, tt.opts)
			if err != nil {
				t.Fatalf("ScanDirectory() error = %v", err)
			}
			if len(result.Errors) != 0 {
				t.Errorf("unexpected scan errors: %v", result.Errors)
			}

			got := relNames(t, tmpDir, result.Files)
			want := append([]string(nil), tt.want...)
			sort.Strings(want)
			if len(got) != len(want) {
				t.Fatalf("got %d files %v, want %d %v", len(got), got, len(want), want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("file %d = %s, want %s", i, got[i], want[i])
				}
			}
		})
	}
}

func TestScanDirectory_AbsoluteSortedPaths(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{"b/2.dcm", "a/1.dcm", "c.dcm", "a/0.dcm"})

	result, err := ScanDirectory(tmpDir, ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}

	if !sort.StringsAreSorted(result.Files) {
		t.Errorf("files are not sorted: %v", result.Files)
	}
	for _, f := range result.Files {
		if !filepath.IsAbs(f) {
			t.Errorf("expected absolute path, got %s", f)
		}
	}

	again, err := ScanDirectory(tmpDir, ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	for i := range result.Files {
		if result.Files[i] != again.Files[i] {
			t.Errorf("scan order changed between runs at %d: %s vs %s", i, result.Files[i], again.Files[i])
		}
	}
}

func TestScanDirectory_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "file.dcm")
	if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ScanDirectory(filepath.Join(tmpDir, "missing"), ScanOptions{}); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := ScanDirectory(filePath, ScanOptions{}); err == nil {
		t.Error("expected error when scanning a file")
	}
}

func TestScanDirectory_Empty(t *testing.T) {
	result, err := ScanDirectory(t.TempDir(), ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("expected no files, got %v", result.Files)
	}
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "data", "job")
	tests := []struct {
		path string
		want bool
	}{
		{root, true},
		{filepath.Join(root, "sorted"), true},
		{filepath.Join(root, "a", "b"), true},
		{filepath.Join(string(filepath.Separator), "data", "job_sorted"), false},
		{filepath.Join(string(filepath.Separator), "data"), false},
		{filepath.Join(root, "..foo"), true},
	}
	for _, tt := range tests {
		if got := IsWithin(tt.path, root); got != tt.want {
			t.Errorf("IsWithin(%s, %s) = %v, want %v", tt.path, root, got, tt.want)
		}
	}
}
