// Package testutil holds in-memory fakes and fixtures shared by logic and web tests.
package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/duynhne/smartbrain-service/internal/core/domain"
	"github.com/duynhne/smartbrain-service/internal/core/repository"
)

// UserStore is an in-memory domain.UserRepository. Registration is atomic:
// when FailUserInsert is set the credential written in the same call is
// discarded, mirroring a rolled back transaction.
type UserStore struct {
	mu          sync.Mutex
	credentials map[string]string
	users       map[int]*domain.User
	nextID      int

	// Err, when set, is returned by every method.
	Err error
	// FailUserInsert makes CreateWithCredential fail after the credential insert.
	FailUserInsert error
	// SkipExistsCheck makes EmailExists always report false so the
	// unique-constraint path of CreateWithCredential is exercised.
	SkipExistsCheck bool
}

// NewUserStore returns an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		credentials: map[string]string{},
		users:       map[int]*domain.User{},
	}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

// CredentialCount returns the number of stored credentials.
func (s *UserStore) CredentialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.credentials)
}

// Hash returns the stored hash for email.
func (s *UserStore) Hash(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentials[email]
}

// DeleteUser removes the users row but keeps the credential.
func (s *UserStore) DeleteUser(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// GetCredential returns the stored hash for email, or (nil, nil).
func (s *UserStore) GetCredential(_ context.Context, email string) (*domain.CredentialRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	hash, ok := s.credentials[email]
	if !ok {
		return nil, nil
	}
	return &domain.CredentialRow{Email: email, Hash: hash}, nil
}

// EmailExists reports whether a credential exists unless SkipExistsCheck is set.
func (s *UserStore) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if s.SkipExistsCheck {
		return false, nil
	}
	_, ok := s.credentials[email]
	return ok, nil
}

// CreateWithCredential stores the credential and the user together.
func (s *UserStore) CreateWithCredential(_ context.Context, u domain.NewUser) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if _, ok := s.credentials[u.Email]; ok {
		return nil, domain.ErrUniqueViolation
	}

	s.credentials[u.Email] = u.Hash
	if s.FailUserInsert != nil {
		delete(s.credentials, u.Email)
		return nil, s.FailUserInsert
	}

	s.nextID++
	user := &domain.User{ID: s.nextID, Name: u.Name, Email: u.Email, Joined: u.Joined}
	s.users[user.ID] = user
	return cloneUser(user), nil
}

// GetByEmail returns a copy of the user with email, or (nil, nil).
func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

// GetByID returns a copy of the user with id, or (nil, nil).
func (s *UserStore) GetByID(_ context.Context, id int) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

// UpdateProfile applies the non-nil fields of upd.
func (s *UserStore) UpdateProfile(_ context.Context, id int, upd domain.ProfileUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Age != nil {
		v := *upd.Age
		u.Age = &v
	}
	if upd.Pet != nil {
		v := *upd.Pet
		u.Pet = &v
	}
	if upd.Avatar != nil {
		v := *upd.Avatar
		u.Avatar = &v
	}
	return cloneUser(u), nil
}

// IncrementEntries bumps the entry counter of user id.
func (s *UserStore) IncrementEntries(_ context.Context, id int) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, false, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return 0, false, nil
	}
	u.Entries++
	return u.Entries, true, nil
}

// NewSessionStore returns a Redis-backed session repository on a fresh
// miniredis instance. Closing the returned server simulates an outage.
func NewSessionStore(t *testing.T) (*repository.RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return repository.NewSessionRepository(rdb, "", 0), mr
}

// Detector is a fake domain.FaceDetector.
type Detector struct {
	Response json.RawMessage
	Err      error
	Calls    []string
}

// DetectFaces records imageURL and returns Response or Err.
func (d *Detector) DetectFaces(_ context.Context, imageURL string) (json.RawMessage, error) {
	d.Calls = append(d.Calls, imageURL)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Response, nil
}
