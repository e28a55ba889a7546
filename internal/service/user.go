package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
)

const (
	msgEmailTaken    = "A user with this email already exists"
	msgUsernameTaken = "A user with this username already exists"
)

// UserService handles user business logic.
type UserService struct {
	store   UserStore
	cache   PrincipalCache
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewUserService creates a new UserService. cache and recorder may be nil.
func NewUserService(store UserStore, cache PrincipalCache, logger *slog.Logger, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		store:   store,
		cache:   cacheOrNoop(cache),
		logger:  logger,
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateUserInput defines input for creating a user.
type CreateUserInput struct {
	Email       string
	Username    string
	Password    string
	FullName    *string
	IsActive    *bool // nil means active
	IsSuperuser bool
}

// UpdateUserInput defines a partial user update. Nil fields are unchanged.
type UpdateUserInput struct {
	Email       *string
	Username    *string
	Password    *string
	FullName    *string
	IsActive    *bool
	IsSuperuser *bool
}

// Register creates an account through the public registration path.
// The account is always active and never a superuser, whatever input says.
func (s *UserService) Register(ctx context.Context, input CreateUserInput) (*model.User, error) {
	input.IsSuperuser = false
	input.IsActive = nil

	user, err := s.create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.metrics.IncUserRegistered()
	return user, nil
}

// Create creates an account on behalf of a superuser.
func (s *UserService) Create(ctx context.Context, actor *model.User, input CreateUserInput) (*model.User, error) {
	if _, err := RequireSuperuser(actor); err != nil {
		return nil, err
	}

	user, err := s.create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.metrics.IncUserCreated()
	return user, nil
}

func (s *UserService) create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	email := normalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" || username == "" {
		return nil, invalid("email and username are required")
	}
	if input.Password == "" {
		return nil, invalid("password is required")
	}

	// Pre-checks give a friendly error; the unique constraints are what actually hold.
	if err := s.checkEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, username, ""); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	now := s.now().UTC()
	user := &model.User{
		ID:             generateULID(),
		Email:          email,
		Username:       username,
		HashedPassword: hash,
		FullName:       input.FullName,
		IsActive:       active,
		IsSuperuser:    input.IsSuperuser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, translateUserWrite(err, "create user")
	}
	return user, nil
}

// Get returns the user with id if actor is that user or a superuser.
func (s *UserService) Get(ctx context.Context, actor *model.User, id string) (*model.User, error) {
	if err := RequireOwnerOrSuperuser(id, actor); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *UserService) get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update applies input to the user with id. Only superusers may change
// is_active or is_superuser.
func (s *UserService) Update(ctx context.Context, actor *model.User, id string, input UpdateUserInput) (*model.User, error) {
	if err := RequireOwnerOrSuperuser(id, actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperuser && (input.IsActive != nil || input.IsSuperuser != nil) {
		return nil, ErrForbidden
	}

	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, invalid("email must not be empty")
		}
		if email != user.Email {
			if err := s.checkEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, invalid("username must not be empty")
		}
		if username != user.Username {
			if err := s.checkUsernameFree(ctx, username, user.ID); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password)
		if errors.Is(err, auth.ErrEmptyPassword) {
			return nil, invalid("password must not be empty")
		}
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.HashedPassword = hash
	}
	if input.FullName != nil {
		user.FullName = input.FullName
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.IsSuperuser != nil {
		user.IsSuperuser = *input.IsSuperuser
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, translateUserWrite(err, "update user")
	}

	s.invalidate(ctx, user.ID)
	s.metrics.IncUserUpdated()
	return user, nil
}

// UpdateMe updates the actor's own profile. Privilege fields are ignored.
func (s *UserService) UpdateMe(ctx context.Context, actor *model.User, input UpdateUserInput) (*model.User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	input.IsActive = nil
	input.IsSuperuser = nil
	return s.Update(ctx, actor, actor.ID, input)
}

// Delete removes the user with id. An actor can never delete their own account.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id string) error {
	if err := RequireOwnerOrSuperuser(id, actor); err != nil {
		return err
	}
	if err := RequireNotSelf(id, actor); err != nil {
		return err
	}

	err := s.store.DeleteUser(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.invalidate(ctx, id)
	s.metrics.AddUsersDeleted(1)
	s.logger.Info("user deleted", slog.String("user_id", id), slog.String("actor_id", actor.ID))
	return nil
}

// BulkDelete removes every user in ids and returns how many existed.
// The request fails as a whole, with nothing deleted, if ids contains the actor.
func (s *UserService) BulkDelete(ctx context.Context, actor *model.User, ids []string) (int64, error) {
	if _, err := RequireSuperuser(actor); err != nil {
		return 0, err
	}

	unique := dedupe(ids)
	if len(unique) == 0 {
		return 0, invalid("ids must not be empty")
	}
	if err := RequireNotSelfInBulk(unique, actor); err != nil {
		return 0, err
	}

	n, err := s.store.DeleteUsers(ctx, unique)
	if err != nil {
		return 0, fmt.Errorf("bulk delete users: %w", err)
	}

	s.invalidate(ctx, unique...)
	s.metrics.AddUsersDeleted(int(n))
	s.logger.Info("users bulk deleted",
		slog.Int("requested", len(unique)),
		slog.Int64("deleted", n),
		slog.String("actor_id", actor.ID),
	)
	return n, nil
}

// UserPage is one page of a user listing and the normalized query behind it.
type UserPage struct {
	Users      []*model.User
	Pagination model.Pagination
	Query      model.UserQuery
}

// List returns one page of users. Superuser only.
func (s *UserService) List(ctx context.Context, actor *model.User, q model.UserQuery) (*UserPage, error) {
	if _, err := RequireSuperuser(actor); err != nil {
		return nil, err
	}

	sort, err := model.ParseSort(q.Sort.Field, q.Sort.Order, model.UserSortFields, model.DefaultUserSort)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	q.Sort = sort
	q.Page, q.PageSize = model.NormalizePage(q.Page, q.PageSize)
	q.Search = strings.TrimSpace(q.Search)
	// Stored emails are lowercase.
	q.Filter.Email = normalizeEmail(q.Filter.Email)
	q.Filter.Username = strings.TrimSpace(q.Filter.Username)

	users, total, err := s.store.ListUsers(ctx, q)
	if errors.Is(err, repository.ErrInvalidSort) {
		return nil, invalid("%s", err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &UserPage{
		Users:      users,
		Pagination: model.NewPagination(q.Page, q.PageSize, total),
		Query:      q,
	}, nil
}

// EnsureSuperuser creates an active superuser with email unless a user with
// that email already exists. It reports whether a user was created.
func (s *UserService) EnsureSuperuser(ctx context.Context, email, username, password string) (*model.User, bool, error) {
	email = normalizeEmail(email)
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, fmt.Errorf("look up superuser: %w", err)
	}

	user, err := s.create(ctx, CreateUserInput{
		Email:       email,
		Username:    username,
		Password:    password,
		IsSuperuser: true,
	})
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("first superuser created", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return user, true, nil
}

func (s *UserService) checkEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check email: %w", err)
	case existing.ID != selfID:
		return conflict(msgEmailTaken)
	}
	return nil
}

func (s *UserService) checkUsernameFree(ctx context.Context, username, selfID string) error {
	existing, err := s.store.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check username: %w", err)
	case existing.ID != selfID:
		return conflict(msgUsernameTaken)
	}
	return nil
}

func (s *UserService) invalidate(ctx context.Context, ids ...string) {
	if err := s.cache.DeleteUsers(ctx, ids...); err != nil {
		s.logger.Warn("failed to invalidate cached users", slog.Int("count", len(ids)), slog.String("error", err.Error()))
	}
}

// translateUserWrite maps storage errors of a user insert or update to service errors.
func translateUserWrite(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return conflict(msgEmailTaken)
	case errors.Is(err, repository.ErrUsernameExists):
		return conflict(msgUsernameTaken)
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
