// Package model defines the data structures used throughout the application.
package model

// User is a directory record.
//
// The store allows NULL in every column except id (an update in "replace"
// mode writes NULL for absent fields). NULL columns are read back as the
// zero value, so a cleared phone shows up as "" and a cleared age as 0.
//
// PasswordHash is never serialised: the JSON tag "-" keeps it out of every
// API response, and nothing ever stores the plaintext.
type User struct {
	ID           int64  `json:"id"       db:"id"`
	Name         string `json:"name"     db:"name"`
	Surname      string `json:"surname"  db:"surname"`
	Email        string `json:"email"    db:"email"`
	PasswordHash string `json:"-"        db:"password"`
	Phone        string `json:"phone"    db:"phone"`
	Age          int    `json:"age"      db:"age"`
	Country      string `json:"country"  db:"country"`
	District     string `json:"district" db:"district"`
	Role         string `json:"role"     db:"role"`
}

// UserInput is the body of a create request. Every field is required.
// Age is a pointer so "missing" and "0" can be told apart.
type UserInput struct {
	Name     string `json:"name"     validate:"required"`
	Surname  string `json:"surname"  validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"phone"    validate:"required"`
	Age      *int   `json:"age"      validate:"required,gte=0"`
	Country  string `json:"country"  validate:"required"`
	District string `json:"district" validate:"required"`
	Role     string `json:"role"     validate:"required"`
}

// UserPatch is the body of an update request. A nil field was absent from
// the request; what "absent" means (keep vs. clear) is decided by the service.
type UserPatch struct {
	Name     *string `json:"name"`
	Surname  *string `json:"surname"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Phone    *string `json:"phone"`
	Age      *int    `json:"age"`
	Country  *string `json:"country"`
	District *string `json:"district"`
	Role     *string `json:"role"`
}

// UserPage is one page of a list request. Total counts every matching row,
// ignoring pagination.
type UserPage struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
