// Package schema models the host's content-type registry: descriptors, the
// namespace convention separating user-defined from system types, and a
// concurrency-safe in-memory registry that can be reloaded at runtime.
package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Namespace prefixes used in content-type UIDs.
const (
	NamespaceAPI    = "api::"
	NamespaceAdmin  = "admin::"
	NamespacePlugin = "plugin::"
	NamespaceStrapi = "strapi::"
)

// ErrRegistryUnavailable is returned when the registry cannot be enumerated.
var ErrRegistryUnavailable = errors.New("content-type registry unavailable")

// ContentType describes one schema-defined record kind.
type ContentType struct {
	UID          string `json:"uid"`
	DisplayName  string `json:"display_name,omitempty"`
	SingularName string `json:"singular_name,omitempty"`
	PluralName   string `json:"plural_name,omitempty"`
	Kind         string `json:"kind,omitempty"`
}

// Name returns the display name, falling back to the UID.
func (ct ContentType) Name() string {
	if ct.DisplayName != "" {
		return ct.DisplayName
	}
	return ct.UID
}

// IsUserDefined reports whether uid belongs to the user-defined namespace.
func IsUserDefined(uid string) bool {
	return strings.HasPrefix(uid, NamespaceAPI)
}

// ValidateUID checks that uid has the form "<namespace>::<a>.<b>". Admin
// types are addressed as "admin::<name>".
func ValidateUID(uid string) error {
	ns, rest, ok := strings.Cut(uid, "::")
	if !ok || ns == "" {
		return fmt.Errorf("uid %q: missing namespace", uid)
	}
	switch ns + "::" {
	case NamespaceAdmin:
		if rest == "" || strings.Contains(rest, ".") {
			return fmt.Errorf("uid %q: expected admin::<name>", uid)
		}
		return nil
	case NamespaceAPI, NamespacePlugin, NamespaceStrapi:
	default:
		return fmt.Errorf("uid %q: unknown namespace %q", uid, ns)
	}
	a, b, ok := strings.Cut(rest, ".")
	if !ok || a == "" || b == "" {
		return fmt.Errorf("uid %q: expected <namespace>::<name>.<name>", uid)
	}
	return nil
}

// Provider is a read-only view of the live content-type registry.
type Provider interface {
	// ContentTypes returns every registered content type ordered by UID.
	ContentTypes(ctx context.Context) ([]ContentType, error)
	// Lookup returns the content type registered under uid.
	Lookup(uid string) (ContentType, bool)
}

// Registry is an in-memory Provider. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]ContentType
}

// NewRegistry creates a registry seeded with the given content types.
func NewRegistry(types ...ContentType) *Registry {
	r := &Registry{types: make(map[string]ContentType, len(types))}
	for _, ct := range types {
		r.types[ct.UID] = ct
	}
	return r
}

// Register adds or replaces a single content type.
func (r *Registry) Register(ct ContentType) error {
	if err := ValidateUID(ct.UID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[ct.UID] = ct
	return nil
}

// Replace swaps the registry contents in one step.
func (r *Registry) Replace(types []ContentType) {
	next := make(map[string]ContentType, len(types))
	for _, ct := range types {
		next[ct.UID] = ct
	}
	r.mu.Lock()
	r.types = next
	r.mu.Unlock()
}

// Len returns the number of registered content types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// ContentTypes implements Provider.
func (r *Registry) ContentTypes(ctx context.Context) ([]ContentType, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	r.mu.RLock()
	out := make([]ContentType, 0, len(r.types))
	for _, ct := range r.types {
		out = append(out, ct)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// Lookup implements Provider.
func (r *Registry) Lookup(uid string) (ContentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.types[uid]
	return ct, ok
}

// SystemTypes returns the system content types the host always carries.
func SystemTypes() []ContentType {
	return []ContentType{
		{UID: "admin::api-token", DisplayName: "Api Token", Kind: "collectionType"},
		{UID: "admin::permission", DisplayName: "Permission", Kind: "collectionType"},
		{UID: "admin::role", DisplayName: "Role", Kind: "collectionType"},
		{UID: "admin::user", DisplayName: "User", Kind: "collectionType"},
		{UID: "plugin::i18n.locale", DisplayName: "Locale", Kind: "collectionType"},
		{UID: "plugin::upload.file", DisplayName: "File", Kind: "collectionType"},
		{UID: "plugin::upload.folder", DisplayName: "Folder", Kind: "collectionType"},
		{UID: "plugin::users-permissions.role", DisplayName: "Role", Kind: "collectionType"},
		{UID: "plugin::users-permissions.user", DisplayName: "User", Kind: "collectionType"},
	}
}
