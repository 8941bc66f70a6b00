// Package reaction implements the per-post reaction state machine: toggling
// a viewer's reaction, resolving the reaction to display, and mapping press
// gestures onto toggles.
package reaction

import (
	"time"

	"fitprove/internal/models"
)

// LongPressThreshold is how long a press must be held to open the picker.
const LongPressThreshold = 500 * time.Millisecond

// DefaultType is toggled by a short press.
const DefaultType = models.ReactionLike

// State is the reaction projection of a single post as seen by one viewer.
type State struct {
	UserReaction *models.ReactionType `json:"user_reaction,omitempty"`
	Counts       models.ReactionCounts `json:"reaction_counts"`
	LikesCount   int                   `json:"likes_count"`
}

// FromPost extracts the reaction projection of p.
func FromPost(p *models.Post) State {
	s := State{
		Counts:     p.ReactionCounts.Clone(),
		LikesCount: p.LikesCount,
	}
	if p.UserReaction != nil {
		t := *p.UserReaction
		s.UserReaction = &t
	}
	return s
}

// ApplyTo writes the projection onto p, leaving every other field alone.
func (s State) ApplyTo(p *models.Post) {
	p.ReactionCounts = s.Counts.Clone()
	p.LikesCount = s.LikesCount
	p.UserReaction = nil
	if s.UserReaction != nil {
		t := *s.UserReaction
		p.UserReaction = &t
	}
}

// Current returns the viewer's reaction, or "" when there is none.
func (s State) Current() models.ReactionType {
	if s.UserReaction == nil {
		return ""
	}
	return *s.UserReaction
}

// Equal compares two projections field by field.
func (s State) Equal(other State) bool {
	return s.Current() == other.Current() &&
		s.LikesCount == other.LikesCount &&
		s.Counts.Equal(other.Counts)
}

// Toggle predicts the state after the viewer selects t. Selecting the
// current reaction removes it; selecting another replaces it without
// changing likes_count; selecting on an unreacted post adds one.
func Toggle(s State, t models.ReactionType) State {
	next := State{
		Counts:     s.Counts.Clone(),
		LikesCount: s.LikesCount,
	}
	previous := s.Current()

	if previous == t {
		next.Counts[t] = floor(next.Counts[t] - 1)
		next.LikesCount = floor(next.LikesCount - 1)
		return next
	}

	wasLiked := previous != ""
	if wasLiked {
		next.Counts[previous] = floor(next.Counts[previous] - 1)
	}
	next.Counts[t]++
	selected := t
	next.UserReaction = &selected
	if !wasLiked {
		next.LikesCount++
	}
	return next
}

// Display resolves which reaction glyph represents the post: the viewer's
// own reaction, else the most frequent non-zero type (ties go to the
// earlier type in enumeration order). ok is false when the neutral icon
// should be shown.
func Display(s State) (t models.ReactionType, ok bool) {
	if s.UserReaction != nil {
		return *s.UserReaction, true
	}
	best := 0
	for _, candidate := range models.ReactionTypes {
		if n := s.Counts.Get(candidate); n > best {
			best = n
			t = candidate
		}
	}
	return t, best > 0
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
