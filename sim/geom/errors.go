package geom

import (
	"errors"
	"fmt"
)

// ErrUnsupportedShapeCombination is returned when a geometry operation is
// asked to compare or intersect a shape pair it does not implement. Callers
// should treat it as a configuration error and reject the scenario.
var ErrUnsupportedShapeCombination = errors.New("unsupported shape combination")

func unsupportedPair(op string, a, b Shape) error {
	return fmt.Errorf("%s: %w: %s and %s", op, ErrUnsupportedShapeCombination, a, b)
}

func unsupportedShape(op string, s Shape) error {
	return fmt.Errorf("%s: %w: %s", op, ErrUnsupportedShapeCombination, s)
}
