package opendrive

import (
	"fmt"
	"os"
	"time"
)

// Warner receives non-fatal diagnostics from the core: geometry degeneracies,
// connectivity anomalies and schema warnings (see spec §7). A malformed road must
// not abort network construction, so these never return an error.
type Warner interface {
	Warn(format string, args ...interface{})
}

// stderrWarner is the default Warner, printing each warning to stderr as a
// single "warning: " line. Phase timing is printed separately, by progress.
type stderrWarner struct{}

// NewStderrWarner returns a Warner that writes to stderr.
func NewStderrWarner() Warner {
	return stderrWarner{}
}

func (stderrWarner) Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

// RecordingWarner accumulates warnings in memory, for tests that must assert on
// warning text without touching stderr.
type RecordingWarner struct {
	Messages []string
}

// NewRecordingWarner returns a Warner that records every message it receives.
func NewRecordingWarner() *RecordingWarner {
	return &RecordingWarner{}
}

func (w *RecordingWarner) Warn(format string, args ...interface{}) {
	w.Messages = append(w.Messages, fmt.Sprintf(format, args...))
}

// progress prints a phase banner and returns a function that prints the elapsed
// time when called, mirroring the reference importer's
//
//	fmt.Printf("Scanning ways...")
//	st := time.Now()
//	...
//	fmt.Printf("Done in %v\n", time.Since(st))
//
// idiom used throughout osm_loader.go.
func progress(label string) func(format string, args ...interface{}) {
	fmt.Printf("%s...", label)
	st := time.Now()
	return func(format string, args ...interface{}) {
		suffix := fmt.Sprintf(format, args...)
		fmt.Printf("done in %v%s\n", time.Since(st), suffix)
	}
}
