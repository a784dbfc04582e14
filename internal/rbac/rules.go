package rbac

const (
	RoleAdmin = "admin"
	RoleBot   = "bot"
)

const (
	PermTestsRead      = "tests:read"
	PermTestsWrite     = "tests:write"
	PermResponsesRead  = "responses:read"
	PermResponsesWrite = "responses:write"
	PermExport         = "results:export"
	PermEventsRead     = "events:read"
)

// The bot registers examinees' answers and shows test info; everything else is admin only.
var RolePermissions = map[string][]string{
	RoleBot: {
		PermTestsRead,
		PermResponsesWrite,
	},
	RoleAdmin: {
		"*", // everything
	},
}
