package rbac

import "github.com/odyssey-erp/workdesk/internal/shared"

// Catalog lists every permission known to the service.
func Catalog() []Permission {
	return []Permission{
		{Name: shared.PermDocumentsView, Description: "View accounting documents"},
		{Name: shared.PermDocumentsCreate, Description: "Create accounting documents"},
		{Name: shared.PermDocumentsEdit, Description: "Edit draft documents"},
		{Name: shared.PermDocumentsPost, Description: "Post invoices and approve returns"},
		{Name: shared.PermDocumentsCancel, Description: "Cancel documents"},
		{Name: shared.PermDocumentsPay, Description: "Record payments"},
		{Name: shared.PermProposalsManage, Description: "Send, accept, reject and convert proposals"},
		{Name: shared.PermNotifyTemplatesView, Description: "View email templates"},
		{Name: shared.PermNotifyTemplatesEdit, Description: "Manage email templates"},
		{Name: shared.PermNotifySend, Description: "Send notifications"},
		{Name: shared.PermHRView, Description: "View HR records"},
		{Name: shared.PermHRManage, Description: "Manage payroll, complaints and warnings"},
		{Name: shared.PermRecruitmentView, Description: "View recruitment"},
		{Name: shared.PermRecruitmentManage, Description: "Manage recruitment and offer letters"},
		{Name: shared.PermSettingsView, Description: "View tenant settings"},
		{Name: shared.PermSettingsEdit, Description: "Manage tenant settings"},
		{Name: shared.PermRolesView, Description: "View roles"},
		{Name: shared.PermRolesEdit, Description: "Manage roles and assignments"},
		{Name: shared.PermPermissionsView, Description: "View permissions"},
		{Name: shared.PermAuditView, Description: "View and export the audit timeline"},
	}
}

// DefaultRoles lists the roles every tenant starts with.
func DefaultRoles() []RoleTemplate {
	all := make([]string, 0, len(Catalog()))
	for _, p := range Catalog() {
		all = append(all, p.Name)
	}
	return []RoleTemplate{
		{Name: RoleOwner, Description: "Full access", Permissions: all},
		{Name: "accountant", Description: "Accounting documents", Permissions: append(shared.DocumentScopes(),
			shared.PermNotifySend, shared.PermNotifyTemplatesView, shared.PermSettingsView, shared.PermAuditView)},
		{Name: "hr_manager", Description: "HR and recruitment", Permissions: append(shared.HRScopes(),
			shared.PermNotifySend, shared.PermNotifyTemplatesView, shared.PermNotifyTemplatesEdit, shared.PermSettingsView)},
		{Name: "staff", Description: "Read-only access", Permissions: []string{
			shared.PermDocumentsView, shared.PermHRView, shared.PermRecruitmentView, shared.PermSettingsView,
		}},
	}
}

// RoleOwner is granted to the user who bootstraps a tenant.
const RoleOwner = "owner"
