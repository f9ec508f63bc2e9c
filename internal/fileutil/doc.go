// Package fileutil enumerates the files of a sort job.
//
// ScanDirectory walks a directory and returns matching files as sorted
// absolute paths. Sorting pins the enumeration order, which matters because
// counted pattern elements number values in the order records are seen:
// rerunning a job over an unchanged directory assigns the same numbers.
//
// # Filtering
//
//   - Extensions: case-insensitive extension filter (".dcm"); empty keeps every file
//   - Recursive / MaxDepth: control descent into subdirectories
//   - ExcludeDirs: directory names to skip anywhere in the tree
//   - ExcludePaths: directories to skip by absolute path, used to keep an output
//     folder that lives inside the job folder out of the job
//   - Hidden files and directories are skipped unless IncludeHidden is set
//
// Errors while walking individual entries are collected in ScanResult.Errors
// and do not stop the scan.
//
// # Usage
//
//	result, err := fileutil.ScanDirectory("/data/job", fileutil.ScanOptions{
//	    Recursive:    true,
//	    ExcludePaths: []string{"/data/job/sorted"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, file := range result.Files {
//	    fmt.Println(file)
//	}
package fileutil
