// Package service contains the business rules of the user directory.
//
// UserService is the only place that knows about pagination defaults, the
// search predicate inputs, password hashing and patch semantics. It speaks
// domain types and apperror kinds; it never sees HTTP.
//
//	Handler (HTTP) → UserService (rules) → repository.UserRepository (SQL)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/usersdot/internal/apperror"
	"github.com/sakif/usersdot/internal/model"
	"github.com/sakif/usersdot/internal/repository"
)

const (
	DefaultPage      = 1
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// PatchMode decides what an update does with fields the caller left out.
type PatchMode string

const (
	// PatchMerge keeps the stored value of every absent or empty field.
	PatchMerge PatchMode = "merge"
	// PatchReplace writes NULL for every absent or empty field, except the
	// password hash, which is kept.
	PatchReplace PatchMode = "replace"
)

// ParsePatchMode accepts "merge" or "replace"; "" means merge.
func ParsePatchMode(s string) (PatchMode, error) {
	switch PatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PatchMerge:
		return PatchMerge, nil
	case PatchReplace:
		return PatchReplace, nil
	default:
		return "", fmt.Errorf("unknown patch mode %q (want %q or %q)", s, PatchMerge, PatchReplace)
	}
}

// PasswordHasher turns a plaintext password into its stored form.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// UserService handles business logic for directory users.
type UserService struct {
	repo     repository.UserRepository
	hasher   PasswordHasher
	validate *validator.Validate
	mode     PatchMode
	logger   *slog.Logger
}

// NewUserService wires the service. All dependencies are injected.
func NewUserService(repo repository.UserRepository, hasher PasswordHasher, mode PatchMode, logger *slog.Logger) *UserService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names ("surname"), not Go names ("Surname").
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if mode == "" {
		mode = PatchMerge
	}

	return &UserService{
		repo:     repo,
		hasher:   hasher,
		validate: validate,
		mode:     mode,
		logger:   logger,
	}
}

// List returns one page of users plus the total number of matching users.
//
// PAGINATION:
// page defaults to 1 and limit to 10; limit is capped at 100.
// offset = (page-1)*limit, never negative, saturating instead of overflowing.
//
// The page query and the count query use the same repository.ListFilter, so
// they apply the identical predicate. They are independent reads and run
// concurrently; the first failure cancels the other.
func (s *UserService) List(ctx context.Context, page, limit int, query string) (*model.UserPage, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// A page so far out that (page-1)*limit would overflow gets the largest
	// offset instead: still past the last row, so the page comes back empty.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}

	filter := repository.ListFilter{
		Query:  strings.TrimSpace(query),
		Limit:  limit,
		Offset: offset,
	}

	var (
		users []model.User
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.repo.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to list users",
			slog.String("query", filter.Query),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return &model.UserPage{
		Users: users,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// FindOne returns the user with id or apperror.ErrNotFound.
func (s *UserService) FindOne(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return s.repo.GetByID(ctx, id)
}

// EmailExists reports whether any user already has email (exact match).
func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, apperror.ValidationFailed("email", "email is required")
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("checking email: %w", err)
	}
	return exists, nil
}

// Create validates input, hashes the password and stores a new user.
//
// EMAIL UNIQUENESS:
// There is no read-then-insert. The users table has a UNIQUE index on email
// and the repository reports a violation as apperror.ErrConflict, so two
// concurrent creates with one email cannot both succeed.
func (s *UserService) Create(ctx context.Context, input model.UserInput) (*model.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Email = strings.TrimSpace(input.Email)

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Name:         input.Name,
		Surname:      input.Surname,
		Email:        input.Email,
		PasswordHash: hash,
		Phone:        input.Phone,
		Age:          *input.Age,
		Country:      input.Country,
		District:     input.District,
		Role:         input.Role,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user",
				slog.String("email", user.Email),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.Int64("id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Update applies patch to the user with id and returns the stored record.
//
// Absent (nil) and empty fields are "no value": PatchMerge keeps the column,
// PatchReplace clears it to NULL. A non-empty password is rehashed; otherwise
// the stored hash is kept in both modes.
//
// Errors: apperror.ErrNotFound if id does not exist, apperror.ErrConflict if
// the new email belongs to a different user. Keeping one's own email is fine.
func (s *UserService) Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}

	fields := repository.UserFields{
		Name:     nonEmpty(trimmed(patch.Name)),
		Surname:  nonEmpty(trimmed(patch.Surname)),
		Email:    nonEmpty(trimmed(patch.Email)),
		Phone:    nonEmpty(patch.Phone),
		Age:      patch.Age,
		Country:  nonEmpty(patch.Country),
		District: nonEmpty(patch.District),
		Role:     nonEmpty(patch.Role),
	}
	if fields.Age != nil && *fields.Age < 0 {
		return nil, apperror.ValidationFailed("age", "age must be 0 or greater")
	}

	if pw := nonEmpty(patch.Password); pw != nil {
		hash, err := s.hasher.Hash(*pw)
		if err != nil {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
		fields.PasswordHash = &hash
	}

	mode := repository.UpdateMerge
	if s.mode == PatchReplace {
		mode = repository.UpdateReplace
	}

	if err := s.repo.Update(ctx, id, fields, mode); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) && !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to update user",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("updating user: %w", err)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading updated user: %w", err)
	}

	s.logger.Info("user updated",
		slog.Int64("id", id),
		slog.String("mode", string(s.mode)),
	)
	return user, nil
}

// Delete removes the user with id. Deleting a missing id is apperror.ErrNotFound,
// every time.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.Int64("id", id))
	return nil
}

// Health reports whether the store answers.
func (s *UserService) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// validateInput turns the first validator failure into a ValidationFailed error.
func (s *UserService) validateInput(input model.UserInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return apperror.ValidationFailed(fe.Field(), fe.Field()+" is required")
		case "gte":
			return apperror.ValidationFailed(fe.Field(), fe.Field()+" must be "+fe.Param()+" or greater")
		default:
			return apperror.ValidationFailed(fe.Field(), fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("validating user: %w", err)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
