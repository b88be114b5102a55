package models

import (
	"strings"
	"time"
)

// User represents an account in the system
type User struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	FirstName            string    `json:"first_name" gorm:"size:256"`
	LastName             string    `json:"last_name" gorm:"size:256"`
	Username             string    `json:"username" gorm:"size:256"`
	Email                string    `json:"email" gorm:"uniqueIndex;size:254;not null"`
	Phone                string    `json:"phone" gorm:"size:256"`
	Avatar               string    `json:"-" gorm:"size:512"` // storage key, exposed as URL
	AllowNewsletters     bool      `json:"allow_newsletters"`
	CustomHotkeys        string    `json:"-" gorm:"column:custom_hotkeys;type:text"` // raw JSON
	ActiveOrganizationID *uint     `json:"active_organization" gorm:"index"`
	DateJoined           time.Time `json:"date_joined"`
	LastActivity         time.Time `json:"last_activity"`
	UpdatedAt            time.Time `json:"-"`
}

// Initials derives display initials from the names, falling back to the email.
func (u *User) Initials() string {
	first := firstRunes(u.FirstName, 1)
	last := firstRunes(u.LastName, 1)
	switch {
	case first != "" && last != "":
		return first + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return firstRunes(u.Email, 2)
	}
}

func firstRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

// Organization groups users; a user acts inside one active organization.
type Organization struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:1000;not null"`
	CreatedByID *uint     `json:"created_by" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
}

// Organization roles
const (
	RoleOwner         = "owner"
	RoleAdministrator = "administrator"
	RoleManager       = "manager"
	RoleReviewer      = "reviewer"
	RoleAnnotator     = "annotator"
)

// OrganizationMember links a user to an organization with a role
type OrganizationMember struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrganizationID uint      `json:"organization" gorm:"uniqueIndex:idx_org_member;not null"`
	UserID         uint      `json:"user" gorm:"uniqueIndex:idx_org_member;index;not null"`
	Role           string    `json:"role" gorm:"size:32;not null;default:annotator"`
	CreatedAt      time.Time `json:"created_at"`
}

// Token is the single opaque API credential of a user
type Token struct {
	Key     string    `gorm:"primaryKey;size:40"`
	UserID  uint      `gorm:"uniqueIndex;not null"`
	Created time.Time `gorm:"autoCreateTime"`
}

// HotkeysConfig maps a hotkey combination to an action identifier
type HotkeysConfig map[string]string

// NewsletterUpdate is emitted when a user changes the newsletter opt-in flag
type NewsletterUpdate struct {
	UserID              uint   `json:"user_id"`
	Email               string `json:"email"`
	AllowNewsletters    bool   `json:"allow_newsletters"`
	UpdateNotifications int    `json:"update-notifications"`
	NewUser             int    `json:"new-user"`
}

// CreateUserRequest is the payload for POST /users
type CreateUserRequest struct {
	Email            string `json:"email" validate:"required,email,max=254"`
	Username         string `json:"username" validate:"max=256"`
	FirstName        string `json:"first_name" validate:"max=256"`
	LastName         string `json:"last_name" validate:"max=256"`
	Phone            string `json:"phone" validate:"max=256"`
	AllowNewsletters *bool  `json:"allow_newsletters"`
}

// HotkeysPayload is the body of GET/PATCH hotkeys
type HotkeysPayload struct {
	CustomHotkeys HotkeysConfig `json:"custom_hotkeys"`
}

// UserFilter scopes and pages a user listing
type UserFilter struct {
	OrganizationID uint
	Limit          int
	Offset         int
}
