package domain

// ServiceName identifies a downstream service by its logical role. Call sites
// resolve descriptors through the registry by name; no code path infers a
// service from a URL string.
type ServiceName string

const (
	ServiceAuth    ServiceName = "auth"
	ServiceProfile ServiceName = "profile"
	ServicePosts   ServiceName = "posts"
	ServiceForum   ServiceName = "forum"
	ServiceGallery ServiceName = "gallery"
	ServiceCache   ServiceName = "cache"
)

// ServiceDescriptor describes one downstream service: its logical name, the
// base address all requests are issued against, and the path of its liveness
// endpoint.
type ServiceDescriptor struct {
	Name       ServiceName
	BaseURL    string
	HealthPath string
}

// ServiceRegistry is an immutable name-to-descriptor table built once at
// process start and handed to every component that issues downstream calls.
type ServiceRegistry struct {
	byName map[ServiceName]ServiceDescriptor
}

// NewServiceRegistry builds a registry from the given descriptors. Later
// duplicates win, matching config-override semantics.
func NewServiceRegistry(descriptors ...ServiceDescriptor) *ServiceRegistry {
	byName := make(map[ServiceName]ServiceDescriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}
	return &ServiceRegistry{byName: byName}
}

// Lookup returns the descriptor registered under the given name. The second
// return value is false for unknown services; callers must treat that as
// "unavailable" (fail closed).
func (r *ServiceRegistry) Lookup(name ServiceName) (ServiceDescriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns every registered descriptor, in unspecified order.
func (r *ServiceRegistry) All() []ServiceDescriptor {
	out := make([]ServiceDescriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}
