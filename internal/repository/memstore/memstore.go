// Package memstore is an in-memory user and API key store for tests.
// It enforces the same uniqueness rules and returns the same sentinel
// errors as the PostgreSQL repository.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
)

// Store holds users and API keys in memory. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	users map[string]*model.User
	keys  map[string]*model.APIKey

	// BeforeCreateUser, if set, runs before the uniqueness check of every
	// CreateUser call, outside the lock.
	BeforeCreateUser func()
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users: make(map[string]*model.User),
		keys:  make(map[string]*model.APIKey),
	}
}

// CreateUser inserts user, rejecting duplicate emails and usernames.
func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	if s.BeforeCreateUser != nil {
		s.BeforeCreateUser()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(user); err != nil {
		return err
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *Store) checkUnique(user *model.User) error {
	for _, u := range s.users {
		if u.ID == user.ID {
			continue
		}
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
		if u.Username == user.Username {
			return repository.ErrUsernameExists
		}
	}
	return nil
}

// GetUserByID returns the user with id.
func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u.Clone(), nil
	}
	return nil, repository.ErrUserNotFound
}

// GetUserByEmail returns the user with email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Email == email })
}

// GetUserByUsername returns the user with username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Username == username })
}

func (s *Store) findUser(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// UpdateUser replaces the stored user.
func (s *Store) UpdateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	if err := s.checkUnique(user); err != nil {
		return err
	}
	s.users[user.ID] = user.Clone()
	return nil
}

// DeleteUser removes a user and their API keys.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	s.deleteUserLocked(id)
	return nil
}

// DeleteUsers removes every user in ids under one lock.
func (s *Store) DeleteUsers(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.users[id]; ok {
			s.deleteUserLocked(id)
			n++
		}
	}
	return n, nil
}

func (s *Store) deleteUserLocked(id string) {
	delete(s.users, id)
	for kid, k := range s.keys {
		if k.UserID == id {
			delete(s.keys, kid)
		}
	}
}

// ListUsers filters, searches, sorts and pages users the way the SQL repository does.
func (s *Store) ListUsers(_ context.Context, q model.UserQuery) ([]*model.User, int64, error) {
	if _, ok := model.UserSortFields[q.Sort.Field]; !ok {
		return nil, 0, repository.ErrInvalidSort
	}

	s.mu.Lock()
	matched := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		if matchesUser(u, q) {
			matched = append(matched, u.Clone())
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		c := compareUsers(matched[i], matched[j], q.Sort.Field)
		if c == 0 {
			return matched[i].ID < matched[j].ID
		}
		if q.Sort.Desc() {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(matched))
	return page(matched, q.Page, q.PageSize), total, nil
}

func matchesUser(u *model.User, q model.UserQuery) bool {
	f := q.Filter
	if f.IsActive != nil && u.IsActive != *f.IsActive {
		return false
	}
	if f.IsSuperuser != nil && u.IsSuperuser != *f.IsSuperuser {
		return false
	}
	if f.Email != "" && !matchValue(u.Email, f.Email) {
		return false
	}
	if f.Username != "" && !matchValue(u.Username, f.Username) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		fullName := ""
		if u.FullName != nil {
			fullName = *u.FullName
		}
		hit := false
		for _, v := range []string{u.Email, u.Username, fullName} {
			if strings.Contains(strings.ToLower(v), needle) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// matchValue is an exact match, or a LIKE match when pattern holds '%' wildcards.
func matchValue(value, pattern string) bool {
	if !strings.Contains(pattern, "%") {
		return value == pattern
	}
	parts := strings.Split(pattern, "%")
	if !strings.HasPrefix(value, parts[0]) {
		return false
	}
	value = value[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, p := range parts[1 : len(parts)-1] {
		i := strings.Index(value, p)
		if i < 0 {
			return false
		}
		value = value[i+len(p):]
	}
	return strings.HasSuffix(value, last)
}

func compareUsers(a, b *model.User, field string) int {
	switch field {
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "full_name":
		var an, bn string
		if a.FullName != nil {
			an = *a.FullName
		}
		if b.FullName != nil {
			bn = *b.FullName
		}
		return strings.Compare(an, bn)
	case "is_active":
		return compareBool(a.IsActive, b.IsActive)
	case "is_superuser":
		return compareBool(a.IsSuperuser, b.IsSuperuser)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func page[T any](items []T, page, pageSize int) []T {
	page, pageSize = model.NormalizePage(page, pageSize)
	start := model.Offset(page, pageSize)
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// CreateAPIKey inserts key. The owner must exist and the hash must be unused.
func (s *Store) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, k := range s.keys {
		if k.KeyHash == key.KeyHash {
			return repository.ErrAPIKeyExists
		}
	}
	s.keys[key.ID] = key.Clone()
	return nil
}

// GetAPIKeyByID returns the key with id.
func (s *Store) GetAPIKeyByID(_ context.Context, id string) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		return k.Clone(), nil
	}
	return nil, repository.ErrAPIKeyNotFound
}

// GetAPIKeyByHash returns the key whose digest is hash.
func (s *Store) GetAPIKeyByHash(_ context.Context, hash string) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.KeyHash == hash {
			return k.Clone(), nil
		}
	}
	return nil, repository.ErrAPIKeyNotFound
}

// ListAPIKeysByUserID returns one page of a user's keys, newest first.
func (s *Store) ListAPIKeysByUserID(_ context.Context, q model.APIKeyQuery) ([]*model.APIKey, int64, error) {
	s.mu.Lock()
	owned := make([]*model.APIKey, 0)
	for _, k := range s.keys {
		if k.UserID == q.UserID {
			owned = append(owned, k.Clone())
		}
	}
	s.mu.Unlock()

	sort.Slice(owned, func(i, j int) bool {
		if c := owned[i].CreatedAt.Compare(owned[j].CreatedAt); c != 0 {
			return c > 0
		}
		return owned[i].ID > owned[j].ID
	})
	return page(owned, q.Page, q.PageSize), int64(len(owned)), nil
}

// UpdateAPIKey replaces the mutable fields of a stored key.
func (s *Store) UpdateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.keys[key.ID]
	if !ok {
		return repository.ErrAPIKeyNotFound
	}
	updated := stored.Clone()
	updated.Name = key.Name
	updated.IsActive = key.IsActive
	updated.ExpiresAt = key.Clone().ExpiresAt
	s.keys[key.ID] = updated
	return nil
}

// DeleteAPIKey removes the key with id.
func (s *Store) DeleteAPIKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; !ok {
		return repository.ErrAPIKeyNotFound
	}
	delete(s.keys, id)
	return nil
}

// APIKeyCount returns the number of stored keys.
func (s *Store) APIKeyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
