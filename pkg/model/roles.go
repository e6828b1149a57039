package model

// Role title names that must be mirrored into the identity provider. Staff
// holding any of these get an IAM user and a matching portal role.
const (
	RoleSale        = "sale"
	RoleTeamLead    = "team-lead"
	RoleSaleAdmin   = "sale-admin"
	RoleSaleManager = "sale-manager"
	RoleAdministrator = "administrator"
)

var salesRoleNames = map[string]struct{}{
	RoleSale:          {},
	RoleTeamLead:      {},
	RoleSaleAdmin:     {},
	RoleSaleManager:   {},
	RoleAdministrator: {},
}

func IsSalesRole(name string) bool {
	_, ok := salesRoleNames[name]
	return ok
}

func SalesRoleNames() []string {
	names := make([]string, 0, len(salesRoleNames))
	for name := range salesRoleNames {
		names = append(names, name)
	}
	return names
}
