package models

import "time"

// MasterUsername is the username of the seeded master account.
const MasterUsername = "admin"

// Account is a login identity for the banner tools. The master account is
// created on first start and cannot be deleted.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsMaster     bool      `json:"isMaster"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StoredAccount is the on-disk representation. It carries the password hash,
// which the API-facing Account deliberately omits from JSON.
type StoredAccount struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	IsMaster     bool      `json:"isMaster"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ToStored converts an Account for file persistence.
func (a Account) ToStored() StoredAccount {
	return StoredAccount{
		ID:           a.ID,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		IsMaster:     a.IsMaster,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ToAccount converts a StoredAccount back into the API-facing form.
func (sa StoredAccount) ToAccount() Account {
	return Account{
		ID:           sa.ID,
		Username:     sa.Username,
		PasswordHash: sa.PasswordHash,
		IsMaster:     sa.IsMaster,
		CreatedAt:    sa.CreatedAt,
		UpdatedAt:    sa.UpdatedAt,
	}
}
