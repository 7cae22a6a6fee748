package scene

import (
	"errors"
	"fmt"
)

var (
	ErrCycleDetected   = errors.New("scene cycle detected")
	ErrAlreadyOwned    = errors.New("scene already has a parent")
	ErrNotChild        = errors.New("scene is not a direct child")
	ErrMalformedRecord = errors.New("malformed scene record")
	ErrRootExists      = errors.New("root scene already exists")
)

// RecordError reports a scene record that could not be turned into a tree.
type RecordError struct {
	File  string
	Scene string
	Err   error
}

func (e *RecordError) Error() string {
	switch {
	case e.File != "" && e.Scene != "":
		return fmt.Sprintf("scene %q in %s: %v", e.Scene, e.File, e.Err)
	case e.File != "":
		return fmt.Sprintf("scene file %s: %v", e.File, e.Err)
	default:
		return fmt.Sprintf("scene %q: %v", e.Scene, e.Err)
	}
}

func (e *RecordError) Unwrap() error { return e.Err }
