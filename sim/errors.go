package sim

import "errors"

// ErrInvalidRegionHierarchy indicates a structurally broken region tree:
// unresolved or cyclic parent links, children that are not geometrically
// contained by their parent, overlapping siblings, or a surface sub-kind on
// a normal region. Fatal at setup.
var ErrInvalidRegionHierarchy = errors.New("invalid region hierarchy")

// ErrInconsistentReactionDefinition indicates a reaction spec that cannot be
// compiled: order outside {0,1,2}, a membrane reaction bound to a
// non-membrane region (or vice versa), or an exclusivity violation. Fatal at
// compile time.
var ErrInconsistentReactionDefinition = errors.New("inconsistent reaction definition")
