// Package auth manages the account registry and the active session.
//
// Durable accounts live in the store with bcrypt-hashed secrets. Guest
// accounts are minted in memory, marked ephemeral, and never persisted.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/store"
)

// Errors returned by the auth service.
var (
	// ErrBadCredentials is returned by Login when the contact is unknown
	// or the secret does not match.
	ErrBadCredentials = errors.New("invalid contact or secret")

	// ErrContactTaken is returned by Register when the contact address is
	// already registered. It wraps store.ErrConflict.
	ErrContactTaken = fmt.Errorf("contact already registered: %w", store.ErrConflict)
)

// Service handles registration, login, and guest sessions against a store.
type Service struct {
	store   store.Store
	logger  *log.Logger
	current *model.Account
}

// NewService creates an auth service backed by st.
func NewService(st store.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[auth] ", log.LstdFlags)
	}
	return &Service{store: st, logger: logger}
}

// Register creates a durable account and its default workspace. The secret
// is bcrypt-hashed before it reaches the store. A duplicate contact fails
// with ErrContactTaken before anything is written.
func (s *Service) Register(ctx context.Context, name, contact, secret, style string) (model.Account, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if name == "" || contact == "" {
		return model.Account{}, errors.New("name and contact are required")
	}
	if secret == "" {
		return model.Account{}, errors.New("secret is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hashing secret: %w", err)
	}

	acct := model.Account{
		ID:          model.NewID(),
		DisplayName: name,
		Contact:     contact,
		Style:       style,
	}
	rec := store.AccountRecord{Account: acct, SecretHash: hash}
	if err := s.store.SaveAccount(ctx, rec); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.Account{}, ErrContactTaken
		}
		return model.Account{}, fmt.Errorf("saving account: %w", err)
	}

	// Provision the default workspace so the first login finds one.
	if err := s.store.Save(ctx, acct.ID, model.DefaultWorkspace()); err != nil {
		return model.Account{}, fmt.Errorf("provisioning workspace: %w", err)
	}

	s.logger.Printf("Registered account %s (%s)", acct.ID, contact)
	s.current = &acct
	return acct, nil
}

// Login verifies the secret and returns the account together with its
// workspace, saving the caller a second store read.
func (s *Service) Login(ctx context.Context, contact, secret string) (model.Account, *model.Workspace, error) {
	rec, err := s.store.AccountByContact(ctx, strings.TrimSpace(contact))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Account{}, nil, ErrBadCredentials
		}
		return model.Account{}, nil, fmt.Errorf("looking up account: %w", err)
	}
	if bcrypt.CompareHashAndPassword(rec.SecretHash, []byte(secret)) != nil {
		return model.Account{}, nil, ErrBadCredentials
	}

	ws, err := s.store.Load(ctx, rec.Account.ID)
	if err != nil {
		return model.Account{}, nil, fmt.Errorf("loading workspace: %w", err)
	}

	s.logger.Printf("Login for %s", rec.Account.ID)
	acct := rec.Account
	s.current = &acct
	return acct, ws, nil
}

// Guest mints an ephemeral account. It is never written to the store and
// its workspace lives only for the session.
func (s *Service) Guest(name string) model.Account {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Guest"
	}
	acct := model.Account{
		ID:          model.NewID(),
		DisplayName: name,
		Ephemeral:   true,
	}
	s.logger.Printf("Guest session for %q", name)
	s.current = &acct
	return acct
}

// Resume restores a session for a previously authenticated account ID,
// used by the CLI to pick up a persisted session without re-prompting.
func (s *Service) Resume(ctx context.Context, accountID string) (model.Account, *model.Workspace, error) {
	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return model.Account{}, nil, fmt.Errorf("resuming session: %w", err)
	}
	ws, err := s.store.Load(ctx, acct.ID)
	if err != nil {
		return model.Account{}, nil, fmt.Errorf("loading workspace: %w", err)
	}
	s.current = &acct
	return acct, ws, nil
}

// Current returns the active account, or nil when signed out.
func (s *Service) Current() *model.Account {
	return s.current
}

// SignOut clears the active session. Store state is untouched.
func (s *Service) SignOut() {
	if s.current != nil {
		s.logger.Printf("Signed out %s", s.current.ID)
	}
	s.current = nil
}
