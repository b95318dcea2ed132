package model

// User is the public shape of a record in the upstream user table.
// RecordID is assigned by the store and never changes.
type User struct {
	RecordID    string `json:"record_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Phone       int64  `json:"phone,omitempty"`
	Status      string `json:"status"`
	CreatedTime int64  `json:"created_time"`
	LastLogin   int64  `json:"last_login,omitempty"`
}

// UserRecord is the full row as read from the store, password hash included.
// It never leaves the service layer; handlers and tokens carry User only.
type UserRecord struct {
	User
	PasswordHash string `json:"-"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
