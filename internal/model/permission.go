package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionMediaUpload allows uploading files to storage.
	PermissionMediaUpload Permission = "media:upload"

	// PermissionStudentsRead allows viewing student lists and profiles.
	PermissionStudentsRead Permission = "students:read"

	// PermissionStudentsWrite allows creating leads and editing profile sections.
	PermissionStudentsWrite Permission = "students:write"

	// PermissionStudentsDelete allows hard-deleting a student and everything it owns.
	PermissionStudentsDelete Permission = "students:delete"

	// PermissionApplicationsRead allows viewing applications and their activity.
	PermissionApplicationsRead Permission = "applications:read"

	// PermissionApplicationsCreate allows opening a new application for a student.
	PermissionApplicationsCreate Permission = "applications:create"

	// PermissionApplicationsWithdraw allows deleting (withdrawing) an application.
	PermissionApplicationsWithdraw Permission = "applications:withdraw"

	// PermissionApplicationsStatus allows moving an application between statuses.
	PermissionApplicationsStatus Permission = "applications:status"

	// PermissionApplicationsPriority allows setting an application's priority.
	PermissionApplicationsPriority Permission = "applications:priority"

	// PermissionPaymentsUpload allows attaching a payment proof to an application.
	PermissionPaymentsUpload Permission = "payments:upload"

	// PermissionPaymentsVerify allows verifying or removing a payment proof.
	PermissionPaymentsVerify Permission = "payments:verify"

	// PermissionConversationsRead allows reading application conversations.
	PermissionConversationsRead Permission = "conversations:read"

	// PermissionConversationsWrite allows posting to application conversations.
	PermissionConversationsWrite Permission = "conversations:write"

	// PermissionCatalogueRead allows viewing universities and courses.
	PermissionCatalogueRead Permission = "catalogue:read"

	// PermissionCatalogueWrite allows creating universities and courses.
	PermissionCatalogueWrite Permission = "catalogue:write"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionMediaUpload,
	PermissionStudentsRead,
	PermissionStudentsWrite,
	PermissionStudentsDelete,
	PermissionApplicationsRead,
	PermissionApplicationsCreate,
	PermissionApplicationsWithdraw,
	PermissionApplicationsStatus,
	PermissionApplicationsPriority,
	PermissionPaymentsUpload,
	PermissionPaymentsVerify,
	PermissionConversationsRead,
	PermissionConversationsWrite,
	PermissionCatalogueRead,
	PermissionCatalogueWrite,
}

// rolePermissions is the static grant table. Status and priority are
// held by disjoint roles: no single actor may set both.
var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin: {
		PermissionMediaUpload,
		PermissionStudentsRead,
		PermissionStudentsWrite,
		PermissionStudentsDelete,
		PermissionApplicationsRead,
		PermissionApplicationsCreate,
		PermissionApplicationsWithdraw,
		PermissionApplicationsStatus,
		PermissionPaymentsUpload,
		PermissionConversationsRead,
		PermissionConversationsWrite,
		PermissionCatalogueRead,
		PermissionCatalogueWrite,
	},
	RoleAdmin: {
		PermissionMediaUpload,
		PermissionStudentsRead,
		PermissionStudentsWrite,
		PermissionApplicationsRead,
		PermissionApplicationsCreate,
		PermissionApplicationsPriority,
		PermissionPaymentsUpload,
		PermissionConversationsRead,
		PermissionConversationsWrite,
		PermissionCatalogueRead,
		PermissionCatalogueWrite,
	},
	RoleCounselor: {
		PermissionMediaUpload,
		PermissionStudentsRead,
		PermissionStudentsWrite,
		PermissionApplicationsRead,
		PermissionApplicationsCreate,
		PermissionApplicationsPriority,
		PermissionPaymentsUpload,
		PermissionConversationsRead,
		PermissionConversationsWrite,
		PermissionCatalogueRead,
	},
	RoleVerifier: {
		PermissionStudentsRead,
		PermissionApplicationsRead,
		PermissionPaymentsVerify,
		PermissionConversationsRead,
		PermissionConversationsWrite,
		PermissionCatalogueRead,
	},
}

// PermissionsFor returns the permission codes granted to a role, as strings
// suitable for embedding in a token.
func PermissionsFor(r Role) []string {
	granted := rolePermissions[r]
	codes := make([]string, len(granted))
	for i, p := range granted {
		codes[i] = string(p)
	}
	return codes
}
