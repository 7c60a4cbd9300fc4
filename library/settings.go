package library

import (
	"fmt"
	"time"
)

const maxBackupIntervalDays = 365

// DashboardMode selects where dashboard numbers come from.
type DashboardMode string

const (
	DashboardAuto   DashboardMode = "auto"
	DashboardManual DashboardMode = "manual"
)

// PrivacyLevel is an institution-wide privacy preference.
type PrivacyLevel string

const (
	PrivacyLow    PrivacyLevel = "low"
	PrivacyMedium PrivacyLevel = "medium"
	PrivacyHigh   PrivacyLevel = "high"
)

// DashboardStats are the manually entered dashboard numbers.
type DashboardStats struct {
	Students   int `json:"students"`
	Books      int `json:"books"`
	Journals   int `json:"journals"`
	Professors int `json:"professors"`
	Borrowed   int `json:"borrowed"`
	Available  int `json:"available"`
}

// VisibleStats toggles each dashboard number on or off.
type VisibleStats struct {
	Students   bool `json:"students"`
	Books      bool `json:"books"`
	Journals   bool `json:"journals"`
	Professors bool `json:"professors"`
	Borrowed   bool `json:"borrowed"`
	Available  bool `json:"available"`
}

// SecurityOptions are the security toggles shown on the settings page.
type SecurityOptions struct {
	ExportRestricted bool `json:"exportRestricted"`
	Encrypted        bool `json:"encrypted"`
	ActivityLog      bool `json:"activityLog"`
	MaintenanceMode  bool `json:"maintenanceMode"`
}

// RolePermissions is one row of the permission matrix.
type RolePermissions struct {
	Borrow  bool `json:"borrow"`
	Search  bool `json:"search"`
	Digital bool `json:"digital"`
}

// Permissions is the per-role permission matrix.
type Permissions struct {
	Student   RolePermissions `json:"student"`
	Professor RolePermissions `json:"professor"`
	Staff     RolePermissions `json:"staff"`
	Admin     RolePermissions `json:"admin"`
}

// Action is a permission that can be granted to a role.
type Action string

const (
	ActionBorrow  Action = "borrow"
	ActionSearch  Action = "search"
	ActionDigital Action = "digital"
)

// For returns the row for role. Unknown roles get no permissions.
func (p Permissions) For(role Role) RolePermissions {
	switch role {
	case RoleStudent:
		return p.Student
	case RoleProfessor:
		return p.Professor
	case RoleStaff:
		return p.Staff
	case RoleAdmin:
		return p.Admin
	}
	return RolePermissions{}
}

// Allows reports whether role may perform action.
func (p Permissions) Allows(role Role, action Action) bool {
	row := p.For(role)
	switch action {
	case ActionBorrow:
		return row.Borrow
	case ActionSearch:
		return row.Search
	case ActionDigital:
		return row.Digital
	}
	return false
}

// LibrarySettings is the singleton institution configuration.
type LibrarySettings struct {
	Name               string          `json:"name"`
	Institution        string          `json:"institution"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	CopyrightText      string          `json:"copyrightText"`
	Logo               string          `json:"logo,omitempty"`
	BackupIntervalDays int             `json:"backupIntervalDays"`
	LastBackupDate     *time.Time      `json:"lastBackupDate"`
	DashboardMode      DashboardMode   `json:"dashboardMode"`
	ManualStats        DashboardStats  `json:"manualStats"`
	VisibleStats       VisibleStats    `json:"visibleStats"`
	PrivacyLevel       PrivacyLevel    `json:"privacyLevel"`
	SecurityOptions    SecurityOptions `json:"securityOptions"`
	Permissions        Permissions     `json:"permissions"`
}

func (s LibrarySettings) clone() LibrarySettings {
	s.LastBackupDate = clonePtr(s.LastBackupDate)
	return s
}

// BackupDue reports whether the backup interval has elapsed at now.
func (s LibrarySettings) BackupDue(now time.Time) bool {
	if s.LastBackupDate == nil {
		return true
	}
	return !now.Before(s.LastBackupDate.AddDate(0, 0, s.BackupIntervalDays))
}

func (s LibrarySettings) validate() error {
	v := &Validator{}
	return v.
		Required("name", s.Name).
		Required("institution", s.Institution).
		Custom("backupIntervalDays", s.BackupIntervalDays < 1 || s.BackupIntervalDays > maxBackupIntervalDays,
			fmt.Sprintf("Must be between 1 and %d", maxBackupIntervalDays)).
		OneOf("dashboardMode", string(s.DashboardMode), string(DashboardAuto), string(DashboardManual)).
		OneOf("privacyLevel", string(s.PrivacyLevel), string(PrivacyLow), string(PrivacyMedium), string(PrivacyHigh)).
		Err()
}
