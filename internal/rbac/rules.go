package rbac

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

const (
	PermAssessmentCreate    = "assessment:create"
	PermAssessmentView      = "assessment:view"
	PermSubmissionCreate    = "submission:create"
	PermSubmissionReviewAll = "submission:review-all"
	PermEventsRead          = "events:read"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermAssessmentView,
		PermSubmissionCreate,
	},
	RoleTeacher: {
		"assessment:*",
		PermSubmissionCreate,
	},
	RoleAdmin: {"*"},
}
