// Package thread assembles flat comment rows into a reply tree.
package thread

import (
	"sort"

	"fitprove/internal/models"
)

// MaxReplyDepth is the deepest level (root = 0) that still offers a reply
// affordance. Deeper comments are kept in the tree.
const MaxReplyDepth = 3

// Node is a comment placed in its thread.
type Node struct {
	Comment  *models.Comment `json:"comment"`
	Depth    int             `json:"depth"`
	CanReply bool            `json:"can_reply"`
	Replies  []*Node         `json:"replies"`
}

// Build turns all comments of one post into a forest ordered oldest first
// at every level. Every input comment appears exactly once: replies whose
// parent is absent from the set, or that sit on a parent cycle, become
// roots.
func Build(comments []*models.Comment) []*Node {
	ordered := make([]*models.Comment, 0, len(comments))
	byID := make(map[string]*models.Comment, len(comments))
	for _, c := range comments {
		if c == nil {
			continue
		}
		if _, dup := byID[c.ID]; dup {
			continue
		}
		byID[c.ID] = c
		ordered = append(ordered, c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	children := make(map[string][]*models.Comment)
	var roots []*models.Comment
	for _, c := range ordered {
		if c.IsReply() {
			if _, ok := byID[*c.ParentID]; ok && *c.ParentID != c.ID {
				children[*c.ParentID] = append(children[*c.ParentID], c)
				continue
			}
		}
		roots = append(roots, c)
	}

	placed := make(map[string]bool, len(ordered))
	forest := make([]*Node, 0, len(roots))
	for _, c := range roots {
		forest = append(forest, attach(c, 0, children, placed))
	}

	// Anything left over hangs off a cycle; break it at the oldest member.
	for _, c := range ordered {
		if !placed[c.ID] {
			forest = append(forest, attach(c, 0, children, placed))
		}
	}
	return forest
}

func attach(c *models.Comment, depth int, children map[string][]*models.Comment, placed map[string]bool) *Node {
	placed[c.ID] = true
	n := &Node{
		Comment:  c,
		Depth:    depth,
		CanReply: depth < MaxReplyDepth,
		Replies:  []*Node{},
	}
	for _, child := range children[c.ID] {
		if placed[child.ID] {
			continue
		}
		n.Replies = append(n.Replies, attach(child, depth+1, children, placed))
	}
	return n
}

// Count returns the number of nodes in the forest.
func Count(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Replies)
	}
	return total
}

// Find returns the node holding the comment with the given id.
func Find(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.Comment.ID == id {
			return n
		}
		if found := Find(n.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every node depth-first in display order.
func Walk(nodes []*Node, fn func(*Node)) {
	for _, n := range nodes {
		fn(n)
		Walk(n.Replies, fn)
	}
}

// Clone deep-copies the forest, comments included.
func Clone(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		c := *n.Comment
		if n.Comment.ParentID != nil {
			p := *n.Comment.ParentID
			c.ParentID = &p
		}
		if n.Comment.Author != nil {
			a := *n.Comment.Author
			c.Author = &a
		}
		out[i] = &Node{
			Comment:  &c,
			Depth:    n.Depth,
			CanReply: n.CanReply,
			Replies:  Clone(n.Replies),
		}
		if out[i].Replies == nil {
			out[i].Replies = []*Node{}
		}
	}
	return out
}
