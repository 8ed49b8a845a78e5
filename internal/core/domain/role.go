package domain

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Role is an immutable capability tag identified by name. Principals own
// copies of role values rather than references into the catalog, so catalog
// edits never leak into existing accounts.
type Role struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
