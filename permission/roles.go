package permission

// Permission names.
const (
	ReportCreate    = "report.create"
	ReportReadOwn   = "report.read.own"
	ReportReadAll   = "report.read.all"
	ReportUpdateOwn = "report.update.own"
	ReportModerate  = "report.moderate"
	NoteCreate      = "note.create"
	UserManage      = "user.manage"
	StatsRead       = "stats.read"
	ReportExport    = "report.export"
	UploadCreate    = "upload.create"
)

// Role names.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// All lists every permission in registration order.
var All = []string{
	ReportCreate,
	ReportReadOwn,
	ReportReadAll,
	ReportUpdateOwn,
	ReportModerate,
	NoteCreate,
	UserManage,
	StatsRead,
	ReportExport,
	UploadCreate,
}

var userPermissions = []string{ReportCreate, ReportReadOwn, ReportUpdateOwn, UploadCreate}

// DefaultRoles maps each role to its permissions. Admin additionally holds
// the root bit, see NewDefault.
func DefaultRoles() map[string][]string {
	moderator := append(append([]string(nil), userPermissions...), ReportReadAll, ReportModerate, NoteCreate)
	return map[string][]string{
		RoleUser:      append([]string(nil), userPermissions...),
		RoleModerator: moderator,
		RoleAdmin:     append([]string(nil), All...),
	}
}

// Roles lists the assignable role names.
func Roles() []string {
	return []string{RoleUser, RoleModerator, RoleAdmin}
}

// NewDefault builds the frozen SafeHer registry and role manager.
func NewDefault() (*RoleManager, error) {
	registry := NewRegistry(true)
	for _, p := range All {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	rm := NewRoleManager(registry)
	for role, perms := range DefaultRoles() {
		if err := rm.RegisterRole(role, perms, role == RoleAdmin); err != nil {
			return nil, err
		}
	}
	rm.Freeze()
	return rm, nil
}
