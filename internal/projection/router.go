package projection

import (
	"context"
	"sort"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

// Category is the coarse routing key carried in an event's stream_type.
type Category string

const (
	CategoryOrganization     Category = "organization"
	CategoryOrganizationUnit Category = "organization_unit"
	CategoryRolePermission   Category = "role_permission"
	CategoryInvitation       Category = "invitation"
	CategoryAccessGrant      Category = "access_grant"
	CategoryJunction         Category = "junction"
	CategorySchedule         Category = "schedule"
)

// Categories lists every category a router exists for.
func Categories() []Category {
	return []Category{
		CategoryOrganization,
		CategoryOrganizationUnit,
		CategoryRolePermission,
		CategoryInvitation,
		CategoryAccessGrant,
		CategoryJunction,
		CategorySchedule,
	}
}

// Action is a handled event type, "<entity>.<action>". Each category file
// declares the actions its router accepts.
type Action string

// HandlerFunc applies one event to the projection rows it owns.
type HandlerFunc func(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error

// Router is the closed action table of one category. It never mutates
// projections itself.
type Router struct {
	category Category
	prefixes map[string]struct{}
	handlers map[Action]HandlerFunc
}

func newRouter(category Category, prefixes []string, handlers map[Action]HandlerFunc) *Router {
	r := &Router{
		category: category,
		prefixes: make(map[string]struct{}, len(prefixes)),
		handlers: handlers,
	}
	for _, p := range prefixes {
		r.prefixes[p] = struct{}{}
	}
	return r
}

// Category returns the stream_type this router serves.
func (r *Router) Category() Category {
	return r.category
}

// Accepts reports whether the entity prefix of eventType belongs to this category.
func (r *Router) Accepts(evt *v1.Event) bool {
	_, ok := r.prefixes[evt.Entity()]
	return ok
}

// EventTypes returns every event type with a handler, sorted.
func (r *Router) EventTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for action := range r.handlers {
		types = append(types, string(action))
	}
	sort.Strings(types)
	return types
}

// Route invokes the handler for evt.EventType.
func (r *Router) Route(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	handler, ok := r.handlers[Action(evt.EventType)]
	if !ok || !r.Accepts(evt) {
		return &UnhandledEventTypeError{Category: r.category, EventType: evt.EventType}
	}
	return handler(ctx, tx, evt)
}

// Routers builds the router of every category, keyed by category.
func Routers() map[Category]*Router {
	all := []*Router{
		organizationRouter(),
		organizationUnitRouter(),
		rolePermissionRouter(),
		invitationRouter(),
		accessGrantRouter(),
		junctionRouter(),
		scheduleRouter(),
	}

	out := make(map[Category]*Router, len(all))
	for _, r := range all {
		out[r.category] = r
	}
	return out
}
