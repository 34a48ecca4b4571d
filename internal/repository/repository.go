// Package repository declares the storage port of the user directory.
//
// The service layer depends only on UserRepository; the sqlite and postgres
// sub-packages implement it. Both implementations build their search
// predicate from the same ListFilter, so a page query and its count query
// can never disagree on which rows match.
package repository

import (
	"context"
	"strings"

	"github.com/sakif/usersdot/internal/model"
)

// ListFilter selects a page of users. Query, when non-empty, keeps rows whose
// name or surname contains it as a case-insensitive substring.
type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}

// HasQuery reports whether the filter restricts rows at all.
func (f ListFilter) HasQuery() bool {
	return f.Query != ""
}

// LikePattern returns the LIKE operand for Query: the text wrapped in % with
// the LIKE metacharacters escaped by a backslash, so "50%" matches literally.
// Queries that use it must declare ESCAPE '\'.
func (f ListFilter) LikePattern() string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(f.Query)
	return "%" + escaped + "%"
}

// UserFields are the column values written by Update. A nil pointer means
// "no value supplied"; UpdateMode decides whether that keeps or clears the column.
type UserFields struct {
	Name         *string
	Surname      *string
	Email        *string
	PasswordHash *string
	Phone        *string
	Age          *int
	Country      *string
	District     *string
	Role         *string
}

// UpdateMode selects how Update treats nil fields.
type UpdateMode int

const (
	// UpdateMerge keeps the stored value for every nil field.
	UpdateMerge UpdateMode = iota
	// UpdateReplace writes NULL for every nil field except PasswordHash,
	// which always keeps the stored hash when nil.
	UpdateReplace
)

type UserRepository interface {
	// Create inserts user and sets user.ID. A duplicate email is ErrConflict.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]model.User, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	// Update returns ErrNotFound when no row has id and ErrConflict when the
	// new email belongs to another user.
	Update(ctx context.Context, id int64, fields UserFields, mode UpdateMode) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}
