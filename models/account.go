package models

import (
	"travellog/db"
)

type AccountType string

const (
	AccountTypeOAuth       AccountType = "oauth"
	AccountTypeOIDC        AccountType = "oidc"
	AccountTypeEmail       AccountType = "email"
	AccountTypeCredentials AccountType = "credentials"
)

// Account links a User to an identity provider
type Account struct {
	UserID            string      `gorm:"column:userId;type:varchar(64);not null;index" json:"user_id"`
	User              User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Type              AccountType `gorm:"type:varchar(20);not null" json:"type"`
	Provider          string      `gorm:"primaryKey;type:varchar(100)" json:"provider"`
	ProviderAccountID string      `gorm:"column:providerAccountId;primaryKey;type:varchar(191)" json:"provider_account_id"`
	RefreshToken      *string     `gorm:"column:refresh_token;type:text" json:"-"`
	AccessToken       *string     `gorm:"column:access_token;type:text" json:"-"`
	ExpiresAt         *int64      `gorm:"column:expires_at" json:"expires_at"`
	TokenType         *string     `gorm:"column:token_type;type:varchar(50)" json:"token_type"`
	Scope             *string     `gorm:"column:scope;type:varchar(500)" json:"scope"`
	IDToken           *string     `gorm:"column:id_token;type:text" json:"-"`
	SessionState      *string     `gorm:"column:session_state;type:varchar(200)" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountLink stores (or refreshes) the link between a user and a provider identity
func AccountLink(a *Account) error {
	return db.Instance.Save(a).Error
}

func AccountsForUser(userID string) (result []Account, err error) {
	err = db.Instance.Where(&Account{UserID: userID}).Order("provider").Find(&result).Error
	return
}
