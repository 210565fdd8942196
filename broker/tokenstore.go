package broker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"daytrader/errs"
)

// cachedToken is the on-disk shape of the OAuth token: the raw JWT plus the
// issued-at/expiry bookkeeping, grounded on
// original_source/korea-investment-api/src/auth.rs's Auth struct
// (token, token_issued_at fields) reduced from an in-memory-only cache to a
// durable one per §6 "Token store: opaque, file-locked JSON".
type cachedToken struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore persists the brokerage's OAuth token across process restarts.
// Writes take an exclusive file lock (§5 "Token store: a file on disk;
// writes are protected by a file lock") so a concurrent refresh from a
// second process can't interleave a partial write.
type TokenStore struct {
	path string
}

// NewTokenStore opens path for later Load/Save calls; the file need not
// exist yet (the first Save creates it).
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load reads the cached token, returning found=false (not an error) if no
// token has ever been saved.
func (s *TokenStore) Load() (token string, expiresAt time.Time, found bool, err error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, errs.New(errs.Io, "broker.TokenStore.Load", err)
	}
	var cached cachedToken
	if err := json.Unmarshal(raw, &cached); err != nil {
		return "", time.Time{}, false, errs.New(errs.Parse, "broker.TokenStore.Load", err)
	}
	return cached.Token, cached.ExpiresAt, true, nil
}

// Save atomically replaces the cached token: open a sibling temp file, take
// an exclusive lock on it, write, then rename into place, so a reader never
// observes a half-written file.
func (s *TokenStore) Save(token string, issuedAt, expiresAt time.Time) error {
	data, err := json.Marshal(cachedToken{Token: token, IssuedAt: issuedAt, ExpiresAt: expiresAt})
	if err != nil {
		return errs.New(errs.Io, "broker.TokenStore.Save", err)
	}
	if err := ensureDir(s.path); err != nil {
		return errs.New(errs.Io, "broker.TokenStore.Save", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.New(errs.Io, "broker.TokenStore.Save", err)
	}
	if err := lockExclusive(f); err != nil {
		f.Close()
		return errs.New(errs.Io, "broker.TokenStore.Save", err)
	}
	_, writeErr := f.Write(data)
	unlockErr := unlock(f)
	closeErr := f.Close()
	if writeErr != nil {
		return errs.New(errs.Io, "broker.TokenStore.Save", writeErr)
	}
	if unlockErr != nil {
		return errs.New(errs.Io, "broker.TokenStore.Save", unlockErr)
	}
	if closeErr != nil {
		return errs.New(errs.Io, "broker.TokenStore.Save", closeErr)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errs.New(errs.Io, "broker.TokenStore.Save", err)
	}
	return nil
}

// ParseExpiry reads the "exp" claim out of a JWT-shaped token without
// verifying its signature — the brokerage issues the token, this process
// only needs to know when to refresh it.
func ParseExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, errs.New(errs.Parse, "broker.ParseExpiry", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errs.New(errs.Parse, "broker.ParseExpiry", err)
	}
	return exp.Time, nil
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}
