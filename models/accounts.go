package models

import (
	"time"
)

// SocialMediaAccount is the credential and routing bundle a connector publishes with.
type SocialMediaAccount struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	UserID            string     `gorm:"column:user_id;size:255;index" json:"user_id"`
	Platform          Platform   `gorm:"column:platform;not null;size:32;index" json:"platform"`
	AccountName       string     `gorm:"column:account_name;not null;size:255" json:"account_name"`
	AccessToken       string     `gorm:"column:access_token;not null;size:1024" json:"-"`
	RefreshToken      string     `gorm:"column:refresh_token;size:1024" json:"-"`
	ExpiresAt         *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	PageID            string     `gorm:"column:page_id;size:255" json:"page_id,omitempty"`
	PageAccessToken   string     `gorm:"column:page_access_token;size:1024" json:"-"`
	BusinessAccountID string     `gorm:"column:business_account_id;size:255" json:"business_account_id,omitempty"`
	OrganizationID    string     `gorm:"column:organization_id;size:255" json:"organization_id,omitempty"`
	PlatformAccountID string     `gorm:"column:platform_account_id;size:255" json:"platform_account_id,omitempty"`
	AppSecret         string     `gorm:"column:app_secret;size:255" json:"-"`
	IsActive          bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	MetaData          string     `gorm:"column:meta_data;type:text" json:"meta_data,omitempty"`
	ProfileImage      string     `gorm:"column:profile_image;size:1024" json:"profile_image,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoCreateTime;autoUpdateTime" json:"updated_at"`
}

// Account field names accepted by Store.UpdateAccount.
const (
	FieldAccessToken     = "access_token"
	FieldRefreshToken    = "refresh_token"
	FieldExpiresAt       = "expires_at"
	FieldPageAccessToken = "page_access_token"
	FieldIsActive        = "is_active"
)

// AccountInfo is the profile a connector reports when testing a connection.
type AccountInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Username     string   `json:"username,omitempty"`
	ProfileImage string   `json:"profile_image,omitempty"`
	Platform     Platform `json:"platform"`
}
