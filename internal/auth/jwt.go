// Package auth issues and verifies the HS256 tokens the kitchen staff sign in
// with. Both token kinds carry the staff identity; only access tokens open the
// API and only refresh tokens can be exchanged for a new pair.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tiffindesk/api/internal/enum"
)

const (
	Issuer          = "tiffindesk"
	AccessTokenTTL  = 12 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Kind tells access and refresh tokens apart.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongKind    = errors.New("wrong token kind")
)

// Claims are the custom claims in every token. Subject holds the staff id.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// StaffID parses the subject.
func (c *Claims) StaffID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Staff is a signed-in identity.
type Staff struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// NewStaff returns the identity of a configured staff login. The id is
// derived from the username, so tokens survive restarts.
func NewStaff(username string) Staff {
	return Staff{
		ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte("tiffindesk/staff/"+username)),
		Username: username,
		Role:     enum.RoleStaff,
	}
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Signer signs and verifies tokens with one shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer for secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue signs a fresh access and refresh token for st.
func (s *Signer) Issue(st Staff) (TokenPair, error) {
	access, exp, err := s.sign(st, KindAccess, AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := s.sign(st, KindRefresh, RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *Signer) sign(st Staff, kind Kind, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		Username: st.Username,
		Role:     st.Role,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   st.ID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// Verify checks the signature, issuer, expiry and kind of tokenStr.
func (s *Signer) Verify(tokenStr string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongKind, claims.Kind, kind)
	}
	if _, err := claims.StaffID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims, nil
}

// Staff rebuilds the identity carried by verified claims.
func (c *Claims) Staff() Staff {
	id, _ := c.StaffID()
	return Staff{ID: id, Username: c.Username, Role: c.Role}
}
