// Package identity derives the storage namespace that partitions one user's
// history log from another's.
//
// A user is known by a durable identifier and, once sign-in has resolved, by
// a human-readable handle. The handle wins when present. Logs written before
// the handle was known live under the identifier-only (legacy) namespace and
// are adopted by the history store.
package identity

// Prefix is prepended to every namespace key.
const Prefix = "history_"

// NamespaceFor returns the storage key for an owner.
//
// Precondition: at least one of ownerID or ownerHandle is non-empty. When
// both are empty the degenerate key "history_" is returned; callers guard
// against this before reaching the store.
func NamespaceFor(ownerID, ownerHandle string) string {
	if ownerHandle != "" {
		return Prefix + ownerHandle
	}
	return Prefix + ownerID
}

// Owner is the pair of identity attributes a history operation runs under.
// It is a value type; namespaces are recomputed on every call because the
// handle may become available after the identifier.
type Owner struct {
	ID     string `json:"id,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// Namespace returns the key the owner's log is read from and written to.
func (o Owner) Namespace() string {
	return NamespaceFor(o.ID, o.Handle)
}

// LegacyNamespace returns the identifier-only key, or "" when the owner has
// no identifier.
func (o Owner) LegacyNamespace() string {
	if o.ID == "" {
		return ""
	}
	return Prefix + o.ID
}

// CanMigrate reports whether a legacy log may exist that is distinct from the
// current namespace. A handle equal to the identifier maps both keys to the
// same entry, and migrating would delete the log just written.
func (o Owner) CanMigrate() bool {
	return o.ID != "" && o.Handle != "" && o.LegacyNamespace() != o.Namespace()
}

// Valid reports whether at least one identity attribute is present.
func (o Owner) Valid() bool {
	return o.ID != "" || o.Handle != ""
}
