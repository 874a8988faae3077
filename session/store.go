// Package session owns the authenticated identity and credential. The
// projection persists to ephemeral storage and rehydrates on startup;
// the authenticated flag is always recomputed from credential presence,
// never trusted from disk.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tiendio/storefront-go/storage"

	storefront "github.com/tiendio/storefront-go"
)

const snapshotVersion = 1

// DefaultStorageKey is where the session projection persists.
const DefaultStorageKey = "auth-storage"

// AuthAPI is the slice of the backend auth surface the store uses.
// *api.Client is the canonical implementation.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*storefront.Credentials, error)
	Register(ctx context.Context, in storefront.RegisterInput) (*storefront.Receipt, error)
	Me(ctx context.Context) (*storefront.UserProfile, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Config configures the session store.
type Config struct {
	// API performs the auth calls (required for network-backed operations)
	API AuthAPI

	// Storage is the ephemeral backing store (required for persistence)
	Storage storefront.Storage

	// StorageKey overrides the persistence key (optional)
	StorageKey string

	// Logger for persistence failures and session events (optional)
	Logger *zerolog.Logger
}

// Store is the session store. Thread-safe; observer callbacks run
// synchronously after each mutation commits.
type Store struct {
	mu      sync.Mutex
	session storefront.Session
	api     AuthAPI
	storage storefront.Storage
	key     string
	logger  zerolog.Logger
	subs    map[int]func(storefront.Session)
	nextSub int
}

// sessionSnapshot is the persisted projection. Authenticated is written
// for wire compatibility but ignored on load.
type sessionSnapshot struct {
	User          *storefront.UserProfile `json:"user"`
	Token         string                  `json:"token"`
	Authenticated bool                    `json:"authenticated"`
}

// NewStore creates a session store and rehydrates it from storage.
func NewStore(config *Config) *Store {
	if config == nil {
		config = &Config{}
	}

	key := config.StorageKey
	if key == "" {
		key = DefaultStorageKey
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	s := &Store{
		api:     config.API,
		storage: config.Storage,
		key:     key,
		logger:  logger,
		subs:    make(map[int]func(storefront.Session)),
	}
	s.rehydrate()
	return s
}

// rehydrate loads the persisted projection. Authenticated derives
// strictly from token presence: a snapshot claiming authenticated=true
// with no token yields a logged-out session.
func (s *Store) rehydrate() {
	if s.storage == nil {
		return
	}

	var snap sessionSnapshot
	ok, err := storage.LoadSnapshot(s.storage, s.key, snapshotVersion, &snap)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session rehydration failed")
		return
	}
	if !ok {
		return
	}

	if snap.Token == "" {
		return
	}
	s.session = storefront.Session{
		User:          snap.User,
		Token:         snap.Token,
		Authenticated: true,
	}
}

// ============================================================================
// Reads
// ============================================================================

// Current returns a copy of the session state.
func (s *Store) Current() storefront.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() storefront.Session {
	out := s.session
	if s.session.User != nil {
		user := *s.session.User
		out.User = &user
	}
	return out
}

// Token returns the bearer credential, implementing
// storefront.TokenSource for the dispatcher.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Token, s.session.Token != ""
}

// Subscribe registers a callback notified synchronously after each
// mutation. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(storefront.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// ============================================================================
// Operations
// ============================================================================

// Login authenticates against the backend and, on success, atomically
// sets credential, user and the authenticated flag.
func (s *Store) Login(ctx context.Context, email, password string) (*storefront.UserProfile, error) {
	creds, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, classifyLoginError(err)
	}

	s.mu.Lock()
	s.session = storefront.Session{
		User:          creds.User,
		Token:         creds.Token,
		Authenticated: true,
	}
	s.commitLocked()

	s.logger.Info().Str("user", creds.User.Email).Msg("logged in")
	return creds.User, nil
}

// classifyLoginError maps the transport classification onto the auth
// taxonomy: 401 means the credentials were wrong, 403 means the account
// exists but its email is unverified.
func classifyLoginError(err error) error {
	if !storefront.IsCode(err, storefront.ErrCodeUnauthorized) {
		return err
	}
	se, _ := err.(*storefront.Error)
	if se != nil && detailStatus(se) == 403 {
		return storefront.NewError(storefront.ErrCodeEmailNotVerified, se.Message)
	}
	message := "invalid email or password"
	if se != nil && se.Message != "" {
		message = se.Message
	}
	return storefront.NewError(storefront.ErrCodeInvalidCredentials, message)
}

// detailStatus extracts the HTTP status a transport error carries.
// Details values survive as int in-process and float64 after a JSON
// round trip.
func detailStatus(se *storefront.Error) int {
	if se.Details == nil {
		return 0
	}
	switch v := se.Details["status"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Register creates an account. Input is validated field by field before
// any network call; the caller stays unauthenticated either way.
func (s *Store) Register(ctx context.Context, in storefront.RegisterInput) (*storefront.Receipt, error) {
	if fields := validateRegisterInput(in); len(fields) > 0 {
		return nil, storefront.NewValidationError("registration input invalid", fields)
	}
	return s.api.Register(ctx, in)
}

func validateRegisterInput(in storefront.RegisterInput) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(in.FirstName) == "" {
		fields["firstName"] = "required"
	}
	if strings.TrimSpace(in.LastName) == "" {
		fields["lastName"] = "required"
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		fields["email"] = "required"
	} else if !strings.Contains(email, "@") {
		fields["email"] = "not a valid email address"
	}
	if len(in.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	return fields
}

// RefreshIdentity re-fetches the profile for the stored credential.
// Returns nil without any network call when no credential is held. A
// rejected credential clears the session as a side effect — the one
// destructive clear the core performs on its own.
func (s *Store) RefreshIdentity(ctx context.Context) (*storefront.UserProfile, error) {
	s.mu.Lock()
	if s.session.Token == "" {
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()

	user, err := s.api.Me(ctx)
	if err != nil {
		if storefront.IsCode(err, storefront.ErrCodeUnauthorized) {
			s.logger.Info().Msg("credential rejected, clearing session")
			s.Logout()
		}
		return nil, err
	}

	s.mu.Lock()
	s.session.User = user
	s.session.Authenticated = true
	s.commitLocked()
	return user, nil
}

// Logout clears all session state synchronously. No server call is
// made.
func (s *Store) Logout() {
	s.mu.Lock()
	s.session = storefront.Session{}
	s.commitLocked()
}

// RequestPasswordReset asks the backend to start a reset flow.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return storefront.NewValidationError("reset request invalid",
			map[string]string{"email": "required"})
	}
	return s.api.RequestPasswordReset(ctx, email)
}

// ResetPassword redeems a reset token for a new password.
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) error {
	fields := map[string]string{}
	if token == "" {
		fields["token"] = "required"
	}
	if len(newPassword) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return storefront.NewValidationError("reset input invalid", fields)
	}
	return s.api.ResetPassword(ctx, token, newPassword)
}

// commitLocked persists the projection and notifies subscribers. It
// takes ownership of the held lock and releases it before callbacks run.
func (s *Store) commitLocked() {
	if s.storage != nil {
		snap := sessionSnapshot{
			User:          s.session.User,
			Token:         s.session.Token,
			Authenticated: s.session.Authenticated,
		}
		if err := storage.SaveSnapshot(s.storage, s.key, snapshotVersion, snap); err != nil {
			s.logger.Warn().Err(err).Msg("session persistence failed")
		}
	}
	state := s.copyLocked()
	subs := make([]func(storefront.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// Ensure Store implements TokenSource
var _ storefront.TokenSource = (*Store)(nil)
