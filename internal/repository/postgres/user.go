package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/usersdot/internal/apperror"
	"github.com/sakif/usersdot/internal/model"
	"github.com/sakif/usersdot/internal/repository"
)

// Ensure DB satisfies the repository.UserRepository interface at compile time.
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, surname, email, password, phone, age, country, district, role`

// Create inserts a user; pgx has no LastInsertId, so the id comes back via RETURNING.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	const query = `
		INSERT INTO users (name, surname, email, password, phone, age, country, district, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := db.queryRow(ctx, "creating user", query,
		[]any{user.Name, user.Surname, user.Email, user.PasswordHash, user.Phone, user.Age, user.Country, user.District, user.Role},
		&user.ID,
	)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return apperror.Conflict("user", "email", user.Email)
		}
		return err
	}
	return nil
}

func (db *DB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var r userRow
	err := db.queryRow(ctx, "getting user", `SELECT `+userColumns+` FROM users WHERE id = $1`, []any{id}, r.dest()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return r.user(), nil
}

func (db *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := db.queryRow(ctx, "checking email", `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, []any{email}, &ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (db *DB) List(ctx context.Context, filter repository.ListFilter) ([]model.User, error) {
	where, args := searchClause(filter)
	n := len(args)
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY id LIMIT $%d OFFSET $%d`, userColumns, where, n+1, n+2)
	rows, err := db.query(ctx, "listing users", query, args...)
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

func (db *DB) Count(ctx context.Context, filter repository.ListFilter) (int, error) {
	where, args := searchClause(filter)

	var total int64
	if err := db.queryRow(ctx, "counting users", `SELECT COUNT(*) FROM users`+where, args, &total); err != nil {
		return 0, err
	}
	return int(total), nil
}

// Update mirrors the sqlite implementation: COALESCE($n, column) in merge
// mode, plain assignment in replace mode, password always COALESCE'd.
func (db *DB) Update(ctx context.Context, id int64, fields repository.UserFields, mode repository.UpdateMode) error {
	columns := []string{"name", "surname", "email", "password", "phone", "age", "country", "district", "role"}
	assignments := make([]string, len(columns))
	for i, column := range columns {
		param := fmt.Sprintf("$%d", i+1)
		if mode == repository.UpdateMerge || column == "password" {
			assignments[i] = fmt.Sprintf("%s = COALESCE(%s, %s)", column, param, column)
		} else {
			assignments[i] = fmt.Sprintf("%s = %s", column, param)
		}
	}
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(assignments, ", "), len(columns)+1)

	affected, err := db.exec(ctx, "updating user", query,
		fields.Name, fields.Surname, fields.Email, fields.PasswordHash, fields.Phone,
		fields.Age, fields.Country, fields.District, fields.Role,
		id,
	)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) && fields.Email != nil {
			return apperror.Conflict("user", "email", *fields.Email)
		}
		return err
	}
	if affected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, id int64) error {
	affected, err := db.exec(ctx, "deleting user", `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// searchClause is shared by List and Count. ILIKE gives the case-insensitive
// match that SQLite's LIKE provides by default.
func searchClause(filter repository.ListFilter) (string, []any) {
	if !filter.HasQuery() {
		return "", nil
	}
	return ` WHERE name ILIKE $1 ESCAPE '\' OR surname ILIKE $1 ESCAPE '\'`, []any{filter.LikePattern()}
}

// userRow scans nullable columns; pgx maps NULL to a nil pointer.
type userRow struct {
	id                                                             int64
	name, surname, email, password, phone, country, district, role *string
	age                                                            *int32
}

func (r *userRow) dest() []any {
	return []any{
		&r.id, &r.name, &r.surname, &r.email, &r.password,
		&r.phone, &r.age, &r.country, &r.district, &r.role,
	}
}

func (r *userRow) user() *model.User {
	u := &model.User{
		ID:           r.id,
		Name:         deref(r.name),
		Surname:      deref(r.surname),
		Email:        deref(r.email),
		PasswordHash: deref(r.password),
		Phone:        deref(r.phone),
		Country:      deref(r.country),
		District:     deref(r.district),
		Role:         deref(r.role),
	}
	if r.age != nil {
		u.Age = int(*r.age)
	}
	return u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
