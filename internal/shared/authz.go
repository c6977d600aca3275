package shared

// Document permissions.
const (
	PermDocumentsView   = "documents.view"
	PermDocumentsCreate = "documents.create"
	PermDocumentsEdit   = "documents.edit"
	PermDocumentsPost   = "documents.post"
	PermDocumentsCancel = "documents.cancel"
	PermDocumentsPay    = "documents.pay"

	PermProposalsManage = "proposals.manage"
)

// Notification permissions.
const (
	PermNotifyTemplatesView = "notify.templates.view"
	PermNotifyTemplatesEdit = "notify.templates.edit"
	PermNotifySend          = "notify.send"
)

// HR and recruitment permissions.
const (
	PermHRView            = "hr.view"
	PermHRManage          = "hr.manage"
	PermRecruitmentView   = "recruitment.view"
	PermRecruitmentManage = "recruitment.manage"
)

// Platform permissions.
const (
	PermSettingsView = "settings.view"
	PermSettingsEdit = "settings.edit"

	PermRolesView       = "roles.view"
	PermRolesEdit       = "roles.edit"
	PermPermissionsView = "permissions.view"

	PermAuditView = "audit.view"
)

// DocumentScopes lists permissions granting access to accounting documents.
func DocumentScopes() []string {
	return []string{
		PermDocumentsView,
		PermDocumentsCreate,
		PermDocumentsEdit,
		PermDocumentsPost,
		PermDocumentsCancel,
		PermDocumentsPay,
		PermProposalsManage,
	}
}

// NotifyScopes lists notification permissions.
func NotifyScopes() []string {
	return []string{PermNotifyTemplatesView, PermNotifyTemplatesEdit, PermNotifySend}
}

// HRScopes lists HR and recruitment permissions.
func HRScopes() []string {
	return []string{PermHRView, PermHRManage, PermRecruitmentView, PermRecruitmentManage}
}

// CoreScopes lists platform permissions.
func CoreScopes() []string {
	return []string{
		PermSettingsView,
		PermSettingsEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermAuditView,
	}
}
