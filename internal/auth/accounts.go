package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
	"github.com/OldStager01/predictify/pkg/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBanned         = errors.New("user is banned")
)

// UserStore is implemented by queries.UserRepository and MemoryUserStore.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// Accounts combines a user store with token issuance.
type Accounts struct {
	users  UserStore
	tokens *Service
}

func NewAccounts(users UserStore, tokens *Service) *Accounts {
	return &Accounts{users: users, tokens: tokens}
}

func (a *Accounts) Tokens() *Service {
	return a.tokens
}

func (a *Accounts) Register(ctx context.Context, username, password string, role models.UserRole) (*models.User, error) {
	username = validation.SanitizeString(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrInvalidInput, err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrInvalidInput, err)
	}
	if err := validation.ValidateRole(role); err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrInvalidInput, err)
	}
	if role == "" {
		role = models.RoleAttendee
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")
	return user, nil
}

// Login verifies credentials and returns a signed token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (a *Accounts) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := a.users.GetByUsername(ctx, validation.SanitizeString(username))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}
	if user.IsBanned {
		return "", nil, ErrUserBanned
	}

	token, err := a.tokens.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// MemoryUserStore keeps users in process, keyed by lower-cased username.
type MemoryUserStore struct {
	mu     sync.RWMutex
	byID   map[int]*models.User
	byName map[string]int
	nextID int
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:   make(map[int]*models.User),
		byName: make(map[string]int),
		nextID: 1,
	}
}

func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[strings.ToLower(username)]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	u := *s.byID[id]
	return &u, nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, exists := s.byName[key]; exists {
		return models.ErrUsernameTaken
	}

	user.ID = s.nextID
	s.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	stored := *user
	s.byID[user.ID] = &stored
	s.byName[key] = user.ID
	return nil
}

// SetBanned toggles the banned flag.
func (s *MemoryUserStore) SetBanned(id int, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.IsBanned = banned
	return nil
}

// List returns all users ordered by id.
func (s *MemoryUserStore) List() []*models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.byID))
	for _, user := range s.byID {
		u := *user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}
