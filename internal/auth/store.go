package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hackterm/internal/api"
	"hackterm/internal/telemetry"
)

const tokenFileName = "token"

// Store holds the current session: who is signed in and the bearer token
// backing their requests. The token persists across runs in a 0600 file under
// the data directory, so a restart resumes the session after a Me() check.
//
// Store methods are safe for concurrent use; the UI reads a snapshot while
// controller goroutines log in and out.
type Store struct {
	mu      sync.RWMutex
	client  *api.Client
	dataDir string
	logger  *telemetry.JSONLogger

	token   string
	user    api.User
	signed  bool
	loading bool
}

func NewStore(dataDir string, logger *telemetry.JSONLogger) *Store {
	if logger == nil {
		logger, _ = telemetry.NewJSONLogger("")
	}
	return &Store{dataDir: dataDir, logger: logger}
}

// Bind attaches the API client after construction. The client needs the
// store's TokenSource and the store needs the client for login calls, so the
// two are wired in this order: NewStore, NewClient(Token: store.Token), Bind.
func (s *Store) Bind(client *api.Client) {
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
}

// Token is the TokenSource handed to the API client.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) User() api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signed
}

// Loading reports whether session restore is still in flight. Route guards
// hold navigation until this clears.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Load restores a persisted session. It reads the token file and validates
// the token against the backend; an invalid or expired token is discarded
// silently so the app lands on the login screen.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	client := s.client
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	raw, err := os.ReadFile(filepath.Join(s.dataDir, tokenFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user, err := client.Me(ctx)
	if err != nil {
		s.clear()
		if api.IsUnauthorized(err) {
			s.logger.Info("auth.token_expired", nil)
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.user = user
	s.signed = true
	s.mu.Unlock()
	s.logger.Info("auth.session_restored", map[string]any{"user": user.Username})
	return nil
}

func (s *Store) Login(ctx context.Context, creds api.Credentials) (api.User, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	resp, err := client.Login(ctx, creds)
	if err != nil {
		return api.User{}, err
	}
	s.establish(resp)
	s.logger.Info("auth.login", map[string]any{"user": resp.User.Username})
	return resp.User, nil
}

func (s *Store) Register(ctx context.Context, reg api.Registration) (api.User, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	resp, err := client.Register(ctx, reg)
	if err != nil {
		return api.User{}, err
	}
	s.establish(resp)
	s.logger.Info("auth.register", map[string]any{"user": resp.User.Username})
	return resp.User, nil
}

// Logout drops the session locally. There is no server-side revocation
// endpoint; the token simply ages out.
func (s *Store) Logout() {
	s.clear()
	s.logger.Info("auth.logout", nil)
}

// HandleUnauthorized is the client's OnUnauthorized hook. Any 401 from any
// endpoint invalidates the whole session.
func (s *Store) HandleUnauthorized() {
	s.mu.RLock()
	wasSigned := s.signed
	s.mu.RUnlock()
	if !wasSigned {
		return
	}
	s.clear()
	s.logger.Warn("auth.session_invalidated", nil)
}

func (s *Store) establish(resp api.AuthResponse) {
	s.mu.Lock()
	s.token = resp.Token
	s.user = resp.User
	s.signed = true
	s.mu.Unlock()
	if err := s.persist(resp.Token); err != nil {
		s.logger.Warn("auth.persist_failed", map[string]any{"error": err.Error()})
	}
}

func (s *Store) clear() {
	s.mu.Lock()
	s.token = ""
	s.user = api.User{}
	s.signed = false
	s.mu.Unlock()
	_ = os.Remove(filepath.Join(s.dataDir, tokenFileName))
}

func (s *Store) persist(token string) error {
	if s.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dataDir, tokenFileName), []byte(token), 0o600)
}
