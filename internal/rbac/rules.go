package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"auditor": {
		"template:view",
		"session:create",
		"session:save",
		"session:navigate",
		"session:finalize",
		"session:view-own",
		"evidence:upload",
		"evidence:view",
	},
	"manager": {
		"template:create",
		"template:view",
		"session:view-all",
		"evidence:view",
	},
	"admin": {
		"*", // everything
	},
}
