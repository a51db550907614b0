package rbac

// RolePermissions is the default policy. Ownership of a particular student
// or subject is checked separately, see access.go.
var RolePermissions = map[string][]string{
	"student": {
		"subjects:view",
		"topics:view",
		"topics:toggle",
		"grades:view",
		"grades:create",
		"grades:delete",
		"average:view",
		"prediction:run",
		"summary:view",
		"user:change_password",
	},
	"parent": {
		"children:*",
		"subjects:*",
		"topics:*",
		"grades:*",
		"average:view",
		"prediction:run",
		"summary:view",
		"demo:reset",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
