package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/usersdot/internal/apperror"
	"github.com/sakif/usersdot/internal/model"
	"github.com/sakif/usersdot/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, surname, email, password, phone, age, country, district, role`

// Create inserts a user row and sets user.ID from the store's rowid.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	res, err := db.exec(ctx, "creating user",
		`INSERT INTO users (name, surname, email, password, phone, age, country, district, role)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Name,
		user.Surname,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Age,
		user.Country,
		user.District,
		user.Role,
	)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return apperror.Conflict("user", "email", user.Email)
		}
		return err
	}

	user.ID = res.LastInsertID
	return nil
}

// GetByID returns apperror.ErrNotFound if no user has id.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var r userRow
	err := db.queryRow(ctx, "getting user",
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		[]any{id},
		r.dest()...,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return r.user(), nil
}

func (db *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := db.queryRow(ctx, "checking email",
		`SELECT COUNT(*) FROM users WHERE email = ?`,
		[]any{email},
		&count,
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns one page ordered by id, so consecutive pages never overlap.
func (db *DB) List(ctx context.Context, filter repository.ListFilter) ([]model.User, error) {
	where, args := searchClause(filter)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.query(ctx, "listing users",
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY id LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0, filter.Limit)
	for rows.Next() {
		var r userRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, apperror.QueryFailed("scanning user row", err)
		}
		users = append(users, *r.user())
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.QueryFailed("iterating users", err)
	}

	return users, nil
}

// Count returns how many rows match filter, ignoring Limit and Offset.
func (db *DB) Count(ctx context.Context, filter repository.ListFilter) (int, error) {
	where, args := searchClause(filter)

	var total int
	if err := db.queryRow(ctx, "counting users", `SELECT COUNT(*) FROM users`+where, args, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// Update writes every column in one statement.
//
// In UpdateMerge mode each placeholder is wrapped in COALESCE(?, column), so a
// NULL parameter (nil field) keeps what is stored. In UpdateReplace mode the
// parameter is written as is. The password column is always COALESCE'd.
//
// SQLite counts matched rows in changes(), so RowsAffected is 0 only when the
// id does not exist.
func (db *DB) Update(ctx context.Context, id int64, fields repository.UserFields, mode repository.UpdateMode) error {
	set := func(column string) string {
		if mode == repository.UpdateMerge {
			return fmt.Sprintf("%s = COALESCE(?, %s)", column, column)
		}
		return column + " = ?"
	}

	query := `UPDATE users SET ` +
		set("name") + `, ` +
		set("surname") + `, ` +
		set("email") + `, ` +
		`password = COALESCE(?, password), ` +
		set("phone") + `, ` +
		set("age") + `, ` +
		set("country") + `, ` +
		set("district") + `, ` +
		set("role") +
		` WHERE id = ?`

	res, err := db.exec(ctx, "updating user", query,
		nullString(fields.Name),
		nullString(fields.Surname),
		nullString(fields.Email),
		nullString(fields.PasswordHash),
		nullString(fields.Phone),
		nullInt(fields.Age),
		nullString(fields.Country),
		nullString(fields.District),
		nullString(fields.Role),
		id,
	)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) && fields.Email != nil {
			return apperror.Conflict("user", "email", *fields.Email)
		}
		return err
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// Delete is a hard delete. A missing id is apperror.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.exec(ctx, "deleting user", `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// searchClause builds the predicate shared by List and Count.
// SQLite's LIKE is case-insensitive for ASCII letters.
func searchClause(filter repository.ListFilter) (string, []any) {
	if !filter.HasQuery() {
		return "", nil
	}
	pattern := filter.LikePattern()
	return ` WHERE name LIKE ? ESCAPE '\' OR surname LIKE ? ESCAPE '\'`, []any{pattern, pattern}
}

// userRow holds nullable scan targets for one users row.
type userRow struct {
	id                                                             int64
	name, surname, email, password, phone, country, district, role sql.NullString
	age                                                            sql.NullInt64
}

func (r *userRow) dest() []any {
	return []any{
		&r.id, &r.name, &r.surname, &r.email, &r.password,
		&r.phone, &r.age, &r.country, &r.district, &r.role,
	}
}

func (r *userRow) user() *model.User {
	return &model.User{
		ID:           r.id,
		Name:         r.name.String,
		Surname:      r.surname.String,
		Email:        r.email.String,
		PasswordHash: r.password.String,
		Phone:        r.phone.String,
		Age:          int(r.age.Int64),
		Country:      r.country.String,
		District:     r.district.String,
		Role:         r.role.String,
	}
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
