package rbac

// Authentication.
const (
	PermAuthRegister      Permission = "auth.register"
	PermAuthLogin         Permission = "auth.login"
	PermAuthResetPassword Permission = "auth.resetPassword"
	PermAuthLogout        Permission = "auth.logout"
)

// Profiles.
const (
	PermProfileViewOwn   Permission = "profile.viewOwn"
	PermProfileEditOwn   Permission = "profile.editOwn"
	PermProfileDeleteOwn Permission = "profile.deleteOwn"
	PermProfileViewAny   Permission = "profile.viewAny"
	PermProfileEditAny   Permission = "profile.editAny"
)

// Listings.
const (
	PermListingBrowse           Permission = "listing.browse"
	PermListingViewDetail       Permission = "listing.viewDetail"
	PermListingCreate           Permission = "listing.create"
	PermListingEditOwn          Permission = "listing.editOwn"
	PermListingDeleteOwn        Permission = "listing.deleteOwn"
	PermListingViewAnalyticsOwn Permission = "listing.viewAnalyticsOwn"
	PermListingEditAny          Permission = "listing.editAny"
	PermListingDeleteAny        Permission = "listing.deleteAny"
	PermListingViewAnalyticsAll Permission = "listing.viewAnalyticsAll"
	PermListingManageCategories Permission = "listing.manageCategories"
)

// Orders.
const (
	PermOrderCreate          Permission = "order.create"
	PermOrderViewOwn         Permission = "order.viewOwn"
	PermOrderCancelOwn       Permission = "order.cancelOwn"
	PermOrderRefundRequest   Permission = "order.refundRequest"
	PermOrderUpdateStatusOwn Permission = "order.updateStatusOwn"
	PermOrderViewAll         Permission = "order.viewAll"
	PermOrderCancelAny       Permission = "order.cancelAny"
	PermOrderUpdateStatusAny Permission = "order.updateStatusAny"
	PermOrderRefundProcess   Permission = "order.refundProcess"
)

// Reviews.
const (
	PermReviewCreate      Permission = "review.create"
	PermReviewEditOwn     Permission = "review.editOwn"
	PermReviewDeleteOwn   Permission = "review.deleteOwn"
	PermReviewModerateAny Permission = "review.moderateAny"
)

// Moderation.
const (
	PermModerationReportContent  Permission = "moderation.reportContent"
	PermModerationReviewReports  Permission = "moderation.reviewReports"
	PermModerationApproveSellers Permission = "moderation.approveSellers"
	PermModerationSuspendUsers   Permission = "moderation.suspendUsers"
	PermModerationViewAuditLogs  Permission = "moderation.viewAuditLogs"
)

// Messaging and notifications.
const (
	PermMessagingSendToSeller      Permission = "messaging.sendToSeller"
	PermMessagingSendToBuyer       Permission = "messaging.sendToBuyer"
	PermMessagingViewConversations Permission = "messaging.viewConversations"
	PermNotificationReceive        Permission = "notification.receive"
	PermNotificationSendPlatform   Permission = "notification.sendPlatformWide"
)

// Administration.
const (
	PermAdminAccessDashboard Permission = "admin.accessDashboard"
	PermAdminViewAnalytics   Permission = "admin.viewAnalytics"
	PermAdminManageUsers     Permission = "admin.manageUsers"
	PermAdminCreateAdmins    Permission = "admin.createAdmins"
	PermAdminSystemConfig    Permission = "admin.systemConfig"
	PermAdminExportData      Permission = "admin.exportData"
	PermAdminManageRBAC      Permission = "admin.manageRbac"
)

// Each tier is spelled out in full so it can be audited on its own.

var guestPermissions = []Permission{
	PermAuthRegister,
	PermAuthLogin,
	PermAuthResetPassword,
	PermListingBrowse,
	PermListingViewDetail,
}

var userPermissions = []Permission{
	PermAuthRegister,
	PermAuthLogin,
	PermAuthResetPassword,
	PermListingBrowse,
	PermListingViewDetail,

	PermAuthLogout,
	PermProfileViewOwn,
	PermProfileEditOwn,
	PermProfileDeleteOwn,
	PermOrderCreate,
	PermOrderViewOwn,
	PermOrderCancelOwn,
	PermOrderRefundRequest,
	PermReviewCreate,
	PermReviewEditOwn,
	PermReviewDeleteOwn,
	PermModerationReportContent,
	PermMessagingSendToSeller,
	PermMessagingViewConversations,
	PermNotificationReceive,
}

var sellerPermissions = []Permission{
	PermAuthRegister,
	PermAuthLogin,
	PermAuthResetPassword,
	PermListingBrowse,
	PermListingViewDetail,
	PermAuthLogout,
	PermProfileViewOwn,
	PermProfileEditOwn,
	PermProfileDeleteOwn,
	PermOrderCreate,
	PermOrderViewOwn,
	PermOrderCancelOwn,
	PermOrderRefundRequest,
	PermReviewCreate,
	PermReviewEditOwn,
	PermReviewDeleteOwn,
	PermModerationReportContent,
	PermMessagingSendToSeller,
	PermMessagingViewConversations,
	PermNotificationReceive,

	PermListingCreate,
	PermListingEditOwn,
	PermListingDeleteOwn,
	PermListingViewAnalyticsOwn,
	PermOrderUpdateStatusOwn,
	PermMessagingSendToBuyer,
}

var adminPermissions = []Permission{
	PermAuthRegister,
	PermAuthLogin,
	PermAuthResetPassword,
	PermListingBrowse,
	PermListingViewDetail,
	PermAuthLogout,
	PermProfileViewOwn,
	PermProfileEditOwn,
	PermProfileDeleteOwn,
	PermOrderCreate,
	PermOrderViewOwn,
	PermOrderCancelOwn,
	PermOrderRefundRequest,
	PermReviewCreate,
	PermReviewEditOwn,
	PermReviewDeleteOwn,
	PermModerationReportContent,
	PermMessagingSendToSeller,
	PermMessagingViewConversations,
	PermNotificationReceive,
	PermListingCreate,
	PermListingEditOwn,
	PermListingDeleteOwn,
	PermListingViewAnalyticsOwn,
	PermOrderUpdateStatusOwn,
	PermMessagingSendToBuyer,

	PermProfileViewAny,
	PermProfileEditAny,
	PermListingEditAny,
	PermListingDeleteAny,
	PermListingViewAnalyticsAll,
	PermListingManageCategories,
	PermOrderViewAll,
	PermOrderCancelAny,
	PermOrderUpdateStatusAny,
	PermOrderRefundProcess,
	PermReviewModerateAny,
	PermModerationReviewReports,
	PermModerationApproveSellers,
	PermModerationSuspendUsers,
	PermModerationViewAuditLogs,
	PermAdminAccessDashboard,
	PermAdminViewAnalytics,
	PermAdminManageUsers,
	PermNotificationSendPlatform,
}

var superAdminPermissions = []Permission{
	PermAuthRegister,
	PermAuthLogin,
	PermAuthResetPassword,
	PermListingBrowse,
	PermListingViewDetail,
	PermAuthLogout,
	PermProfileViewOwn,
	PermProfileEditOwn,
	PermProfileDeleteOwn,
	PermOrderCreate,
	PermOrderViewOwn,
	PermOrderCancelOwn,
	PermOrderRefundRequest,
	PermReviewCreate,
	PermReviewEditOwn,
	PermReviewDeleteOwn,
	PermModerationReportContent,
	PermMessagingSendToSeller,
	PermMessagingViewConversations,
	PermNotificationReceive,
	PermListingCreate,
	PermListingEditOwn,
	PermListingDeleteOwn,
	PermListingViewAnalyticsOwn,
	PermOrderUpdateStatusOwn,
	PermMessagingSendToBuyer,
	PermProfileViewAny,
	PermProfileEditAny,
	PermListingEditAny,
	PermListingDeleteAny,
	PermListingViewAnalyticsAll,
	PermListingManageCategories,
	PermOrderViewAll,
	PermOrderCancelAny,
	PermOrderUpdateStatusAny,
	PermOrderRefundProcess,
	PermReviewModerateAny,
	PermModerationReviewReports,
	PermModerationApproveSellers,
	PermModerationSuspendUsers,
	PermModerationViewAuditLogs,
	PermAdminAccessDashboard,
	PermAdminViewAnalytics,
	PermAdminManageUsers,
	PermNotificationSendPlatform,

	PermAdminCreateAdmins,
	PermAdminSystemConfig,
	PermAdminExportData,
	PermAdminManageRBAC,
}

var rolePermissions = map[Role][]Permission{
	RoleUser:       userPermissions,
	RoleSeller:     sellerPermissions,
	RoleAdmin:      adminPermissions,
	RoleSuperAdmin: superAdminPermissions,
}

var permissionSets = buildPermissionSets()

func buildPermissionSets() map[Role]map[Permission]struct{} {
	sets := make(map[Role]map[Permission]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		sets[role] = set
	}
	return sets
}

// PermissionsForRole returns a copy of the role's permissions in declaration
// order. Unknown roles get an empty slice.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// GuestPermissions returns what an unauthenticated visitor may do.
func GuestPermissions() []Permission {
	out := make([]Permission, len(guestPermissions))
	copy(out, guestPermissions)
	return out
}
