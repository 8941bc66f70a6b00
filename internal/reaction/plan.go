package reaction

import (
	"time"

	"fitprove/internal/models"
)

// PressAction is what a press gesture on the reaction button resolves to.
type PressAction int

const (
	// ToggleDefault toggles DefaultType.
	ToggleDefault PressAction = iota
	// OpenPicker exposes every reaction type without changing state.
	OpenPicker
)

func (a PressAction) String() string {
	if a == OpenPicker {
		return "open_picker"
	}
	return "toggle_default"
}

// ResolvePress maps how long the button was held onto an action.
func ResolvePress(held time.Duration) PressAction {
	if held >= LongPressThreshold {
		return OpenPicker
	}
	return ToggleDefault
}

// WritePlan lists the store writes that carry a toggle out.
type WritePlan struct {
	// DeleteExisting removes the viewer's current reaction row.
	DeleteExisting bool
	// Insert is the type of the row to insert, or "" for none.
	Insert models.ReactionType
}

// PlanWrite returns the writes needed to move from previous to the result
// of selecting t: delete, insert, or delete-then-insert.
func PlanWrite(previous, t models.ReactionType) WritePlan {
	switch {
	case previous == t:
		return WritePlan{DeleteExisting: true}
	case previous != "":
		return WritePlan{DeleteExisting: true, Insert: t}
	default:
		return WritePlan{Insert: t}
	}
}
