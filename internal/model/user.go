package model

// UserAccount is a registered user. PasswordHash holds a bcrypt hash.
type UserAccount struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Email        string `json:"email,omitempty"`
}
