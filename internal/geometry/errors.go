package geometry

import "fmt"

// GeometryError reports topology that could not be repaired.
type GeometryError struct {
	Op  string
	Err error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry %s: %v", e.Op, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// SimplificationError reports that the point budget could not be met
// within the configured iteration cap.
type SimplificationError struct {
	Points     int
	Budget     int
	Iterations int
}

func (e *SimplificationError) Error() string {
	return fmt.Sprintf(
		"simplification stalled at %d points (budget %d) after %d iterations",
		e.Points, e.Budget, e.Iterations,
	)
}
