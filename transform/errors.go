package transform

import (
	"errors"
	"strings"

	"github.com/plus3/spherical/ecs"
)

var (
	// ErrCyclicHierarchy is matched by every *CyclicHierarchyError.
	ErrCyclicHierarchy = errors.New("cyclic transform hierarchy")
	// ErrDegenerateLookAt is returned when the look-at target coincides
	// with the eye or the up vector is parallel to the view direction.
	ErrDegenerateLookAt = errors.New("degenerate look-at basis")
)

// CyclicHierarchyError lists the entities of one Parent cycle in the order
// the cycle was walked.
type CyclicHierarchyError struct {
	Entities []ecs.Entity
}

func (e *CyclicHierarchyError) Error() string {
	var b strings.Builder
	b.WriteString(ErrCyclicHierarchy.Error())
	b.WriteString(": ")
	for i, id := range e.Entities {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(id.String())
	}
	if len(e.Entities) > 0 {
		b.WriteString(" -> ")
		b.WriteString(e.Entities[0].String())
	}
	return b.String()
}

func (e *CyclicHierarchyError) Is(target error) bool {
	return target == ErrCyclicHierarchy
}
