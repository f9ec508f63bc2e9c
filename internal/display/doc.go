// Package display formats user-facing terminal output for the dicomsort CLI:
// warnings about rejected sort plans and aligned tables for listings.
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "2 destinations would be overwritten",
//	    Message:    "Files resolve to the same path",
//	    Files:      []string{"a.dcm", "b.dcm"},
//	    Suggestion: "Add a (count:SOPInstanceUID) element to the pattern",
//	}
//	warning.Display(os.Stderr)
//
// Warnings for sorter errors are built with WarningForError.
//
// # Tables
//
//	t := display.NewTable("NAME", "PATTERN")
//	t.AddRow("idis", "(0010,0020)/...")
//	t.Render(os.Stdout)
//
// Warning colors come from github.com/fatih/color and are disabled
// automatically when output is not a terminal or NO_COLOR is set.
package display
