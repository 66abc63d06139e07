package models

const (
	DefaultLanguage = "english"
	DefaultRegion   = "India"
)

// Preferences are the per-profile UI settings kept next to the sessions
type Preferences struct {
	DarkMode          bool   `json:"dark_mode"`
	TaskNotifications bool   `json:"task_notifications"`
	TaskReminders     bool   `json:"task_reminders"`
	Language          string `json:"language" validate:"required,min=2,max=32"`
	Region            string `json:"region" validate:"required,min=2,max=64"`
}

// DefaultPreferences mirrors a profile that has never saved settings
func DefaultPreferences() Preferences {
	return Preferences{
		DarkMode:          false,
		TaskNotifications: true,
		TaskReminders:     true,
		Language:          DefaultLanguage,
		Region:            DefaultRegion,
	}
}
