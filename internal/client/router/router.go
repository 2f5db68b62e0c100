// Package router selects which navigation tree is mounted based on the
// authenticated user's role.
package router

import (
	"sync"

	"pipersmart/internal/domain"
)

// Tree names a mounted navigation tree.
type Tree string

const (
	// TreeNone is the pre-initialization state: nothing renders until the
	// stored session has been read.
	TreeNone Tree = ""
	// TreeStandard is the tree for standard users and for no user at all;
	// logged-out and standard-role share one tree.
	TreeStandard Tree = "standard"
	TreeAdmin    Tree = "admin"
)

// Router tracks the mounted tree. Events carrying the already-mounted
// tree's role are absorbed so navigation is never remounted needlessly.
type Router struct {
	mu      sync.Mutex
	current Tree
	// remounts counts actual tree swaps, for loop diagnostics and tests.
	remounts int

	// OnMount, if set, runs whenever the mounted tree actually changes.
	OnMount func(Tree)
}

func New() *Router {
	return &Router{current: TreeNone}
}

// Current returns the mounted tree; TreeNone before initialization.
func (r *Router) Current() Tree {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Remounts reports how many times the tree has actually been swapped.
func (r *Router) Remounts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remounts
}

// Apply reconciles the router with the current user; nil means logged out.
// The first call leaves TreeNone; later calls only remount when the
// target tree differs from the mounted one.
func (r *Router) Apply(user *domain.Summary) {
	target := treeFor(user)

	r.mu.Lock()
	if r.current == target {
		r.mu.Unlock()
		return
	}
	r.current = target
	r.remounts++
	onMount := r.OnMount
	r.mu.Unlock()

	if onMount != nil {
		onMount(target)
	}
}

func treeFor(user *domain.Summary) Tree {
	if user == nil {
		return TreeStandard
	}
	switch user.Role {
	case domain.RoleAdmin:
		return TreeAdmin
	case domain.RoleUser:
		return TreeStandard
	default:
		// ParseRole at the trust boundaries keeps this unreachable
		return TreeStandard
	}
}
