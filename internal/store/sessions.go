package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/NgumtsaB/web-programming-project/pkg/domain"
)

// TokenTTL is the fixed lifetime of a session token.
const TokenTTL = 7 * 24 * time.Hour

// NewToken returns an opaque 256-bit hex session token.
func NewToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateToken issues a session token for the user and persists it.
// The cycle is its own load-mutate-save; a concurrent save can race it.
func (s *Store) CreateToken(userID int) (string, error) {
	token := NewToken()
	doc, err := s.Load()
	if err != nil {
		return "", err
	}
	doc.Sessions = append(doc.Sessions, domain.Session{
		Token:   token,
		UserID:  userID,
		Expires: time.Now().Add(TokenTTL).Unix(),
	})
	if err := s.Save(doc); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	return token, nil
}

// RevokeToken removes every session with the exact token value.
// Revoking an unknown token is a no-op.
func (s *Store) RevokeToken(token string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	kept := doc.Sessions[:0]
	for _, sess := range doc.Sessions {
		if sess.Token != token {
			kept = append(kept, sess)
		}
	}
	doc.Sessions = kept
	if err := s.Save(doc); err != nil {
		return fmt.Errorf("persist session removal: %w", err)
	}
	return nil
}

// ResolveToken returns the user bound to a live session token. Expired
// sessions are skipped but never purged here; expiry is purely lazy.
func (s *Store) ResolveToken(token string) (domain.User, bool, error) {
	if token == "" {
		return domain.User{}, false, nil
	}
	doc, err := s.Load()
	if err != nil {
		return domain.User{}, false, err
	}
	now := time.Now().Unix()
	for _, sess := range doc.Sessions {
		if sess.Token != token || sess.Expires <= now {
			continue
		}
		for _, u := range doc.Users {
			if u.ID == sess.UserID {
				return u, true, nil
			}
		}
		// Dangling session: the user is gone. Keep scanning.
	}
	return domain.User{}, false, nil
}
