package app

import (
	"sync"

	"github.com/vbonduro/floodzone/internal/session"
)

const (
	RouteLogin   = session.LoginRoute
	RouteMap     = "/map"
	RouteReport  = "/report"
	RouteHistory = "/history"
	RouteProfile = "/profile"
)

// Router tracks the active route. It satisfies session.Navigator.
type Router struct {
	mu      sync.RWMutex
	current string
	history []string
}

func NewRouter(initial string) *Router {
	return &Router{current: initial}
}

// Push moves to route keeping the previous one reachable by Back.
func (r *Router) Push(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, r.current)
	r.current = route
}

// Replace moves to route and drops the back stack.
func (r *Router) Replace(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	r.current = route
}

// Back returns to the previous route. It is a no-op at the root.
func (r *Router) Back() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.history); n > 0 {
		r.current = r.history[n-1]
		r.history = r.history[:n-1]
	}
}

func (r *Router) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}
