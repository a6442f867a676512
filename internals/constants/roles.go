package constants

import "fmt"

const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
)

const ErrOnlyFinanceStaffCanAccess = "only admin or accountant may access %s"

func RoleErrorFinanceStaff(feature string) string {
	return fmt.Sprintf(ErrOnlyFinanceStaffCanAccess, feature)
}

// FinanceStaffRoles may move money and edit fee setup.
var FinanceStaffRoles = []string{RoleAdmin, RoleAccountant}
