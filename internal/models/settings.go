package models

import (
	"fmt"
	"time"
)

// SettingsID is the fixed identifier of the settings singleton
const SettingsID = "default"

// Theme represents the UI color theme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Language represents the UI language
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageBurmese Language = "my"
	LanguageThai    Language = "th"
)

var (
	// Themes lists the accepted themes
	Themes = []string{string(ThemeLight), string(ThemeDark)}

	// Languages lists the accepted languages
	Languages = []string{string(LanguageEnglish), string(LanguageBurmese), string(LanguageThai)}
)

// AppSettings represents the application settings (singleton)
type AppSettings struct {
	ID        string    `json:"id"`
	AppName   string    `json:"appName" validate:"required,min=1,max=100"`
	LogoURL   *string   `json:"logoUrl,omitempty"`
	Theme     Theme     `json:"theme" validate:"required,oneof=light dark"`
	Language  Language  `json:"language" validate:"required,oneof=en my th"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultAppSettings returns the settings a fresh store starts with
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		ID:        SettingsID,
		AppName:   "CannabisTrack",
		Theme:     ThemeLight,
		Language:  LanguageEnglish,
		UpdatedAt: time.Now().UTC(),
	}
}

// Validate validates the settings data
func (s *AppSettings) Validate() error {
	if s.ID != SettingsID {
		return fmt.Errorf("settings ID must be %q (singleton)", SettingsID)
	}
	if err := ValidateStringLength(s.AppName, "appName", 1, 100); err != nil {
		return err
	}
	if err := ValidateEnum(string(s.Theme), Themes, "theme"); err != nil {
		return err
	}
	return ValidateEnum(string(s.Language), Languages, "language")
}

// UpdateTimestamp moves UpdatedAt strictly forward
func (s *AppSettings) UpdateTimestamp() {
	s.UpdatedAt = nextTimestamp(s.UpdatedAt)
}

// Clone returns a deep copy of the settings
func (s *AppSettings) Clone() *AppSettings {
	c := *s
	c.LogoURL = cloneString(s.LogoURL)
	return &c
}
