// Package permissions builds the claim values attached to roles. A module
// gets one permission string per CRUD action.
package permissions

// ClaimType is the claim type under which permissions are stored on roles.
const ClaimType = "Permission"

var actions = []string{"View", "Create", "Edit", "Delete"}

// For builds a single permission string, e.g. Permissions.Products.Edit.
func For(module, action string) string {
	return "Permissions." + module + "." + action
}

// ForModule returns every permission string for a module.
func ForModule(module string) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, For(module, a))
	}
	return out
}
