// Package session keeps the authenticated LinkedIn session cookie in the OS keychain.
package session

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/jonathan/lead-scraper/internal/browser"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "lead-scraper"
	// DefaultAccount is the keychain account holding the cookie value.
	DefaultAccount = "linkedin:li_at"
	// CookieName is the LinkedIn session cookie.
	CookieName = "li_at"
	// CookieDomain scopes the cookie to every LinkedIn host.
	CookieDomain = ".linkedin.com"
)

// ErrNoSession is returned when no session cookie has been saved.
var ErrNoSession = errors.New("no saved session cookie (run `lead_scraper session set`)")

// Store saves and loads the session cookie for one keychain account.
type Store struct {
	account string
}

// NewStore returns a Store for account; an empty account uses DefaultAccount.
func NewStore(account string) *Store {
	if strings.TrimSpace(account) == "" {
		account = DefaultAccount
	}
	return &Store{account: account}
}

// Save stores the cookie value.
func (s *Store) Save(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("session cookie is empty")
	}
	return keyring.Set(KeyringService, s.account, value)
}

// Load returns the saved cookie value or ErrNoSession.
func (s *Store) Load() (string, error) {
	value, err := keyring.Get(KeyringService, s.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoSession
		}
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", ErrNoSession
	}
	return value, nil
}

// Clear deletes the saved cookie. Clearing a missing cookie is not an error.
func (s *Store) Clear() error {
	if err := keyring.Delete(KeyringService, s.account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// Cookies returns the browser cookies for the saved session, or none if nothing is saved.
func (s *Store) Cookies() ([]browser.Cookie, error) {
	value, err := s.Load()
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []browser.Cookie{{Name: CookieName, Value: value, Domain: CookieDomain}}, nil
}
