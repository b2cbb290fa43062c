// ABOUTME: Lifecycle states derived from a node's remote lock
// ABOUTME: States are computed on every call and never stored

package lifecycle

import "github.com/nainya/contentmcp/pkg/repository"

// State is the checkout state of a node relative to the caller
type State int

const (
	Available State = iota
	CheckedOutByCaller
	CheckedOutByOther
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case CheckedOutByCaller:
		return "checked_out_by_caller"
	case CheckedOutByOther:
		return "checked_out_by_other"
	default:
		return "unknown"
	}
}

// Derive computes the state of n as seen by caller. A lock without a reported
// owner is treated as the caller's.
func Derive(n *repository.Node, caller string) State {
	if !n.IsLocked {
		return Available
	}
	if n.LockOwner == "" || n.LockOwner == caller {
		return CheckedOutByCaller
	}
	return CheckedOutByOther
}
