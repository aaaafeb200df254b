package opendrive

import "fmt"

// ProcessError reports a topology conflict: a double-bound endpoint or the
// inability to insert a unique node/edge (spec §4.3/§7). Unlike geometry and
// connectivity warnings, this class of failure aborts the import.
type ProcessError struct {
	Op  string
	Err error
}

func (e *ProcessError) Error() string {
	if e.Err == nil {
		return "opendrive: topology conflict: " + e.Op
	}
	return fmt.Sprintf("opendrive: topology conflict: %s: %v", e.Op, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

func newProcessError(op string, err error) *ProcessError {
	return &ProcessError{Op: op, Err: err}
}
