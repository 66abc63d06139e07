package repositories

// End-user session keys. Only services/session reads or writes these.
const (
	KeyUserSession = "edulytics_auth"
	KeyUserToken   = "authToken"
	KeyUserProfile = "edulytics_user"
)

// Admin session keys. Only services/adminsession reads or writes these.
const (
	KeyAdminUser  = "admin_user"
	KeyAdminToken = "admin_token"
)

// UI preference keys
const (
	KeyDarkMode          = "edulytics-dark-mode"
	KeyTaskNotifications = "edulytics-task-notifications"
	KeyTaskReminders     = "edulytics-task-reminders"
	KeyLanguage          = "edulytics-language"
	KeyRegion            = "edulytics-region"
)

// UserSessionKeys lists every key the end-user session manager owns
func UserSessionKeys() []string {
	return []string{KeyUserSession, KeyUserToken, KeyUserProfile}
}

// AdminSessionKeys lists every key the admin session manager owns
func AdminSessionKeys() []string {
	return []string{KeyAdminUser, KeyAdminToken}
}

// PreferenceKeys lists the UI preference keys
func PreferenceKeys() []string {
	return []string{KeyDarkMode, KeyTaskNotifications, KeyTaskReminders, KeyLanguage, KeyRegion}
}
