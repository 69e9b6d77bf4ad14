package models

// Preferences holds per-user display and notification settings.
type Preferences struct {
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	PrivateProfile       bool   `json:"privateProfile"`
	OddsFormat           string `json:"oddsFormat,omitempty"`
}

// Profile is the current user's public profile plus preferences.
type Profile struct {
	Email       string      `json:"email"`
	Username    string      `json:"username"`
	Bio         string      `json:"bio,omitempty"`
	Preferences Preferences `json:"preferences"`
}
