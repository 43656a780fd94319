// Package auth resolves caller identity at the HTTP boundary and answers
// scope questions for the read APIs.
//
// Identity is always an explicit value handed into service calls; nothing
// in the engines reads ambient or global identity state.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/drishtilabs/drishti/internal/domain/model"
)

// Roles recognized by the platform.
const (
	RoleInstitution = "institution"
	RoleDepartment  = "department"
)

// DefaultLeeway tolerates small clock skew during token validation.
const DefaultLeeway = 30 * time.Second

// Sentinel kinds for auth errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoToken      = errors.New("no bearer token")
)

// Claims are the custom JWT claims carried by platform tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role          string `json:"role,omitempty"`
	InstitutionID string `json:"institution_id,omitempty"`
	DepartmentID  string `json:"department_id,omitempty"`
}

// Identity is the resolved caller, with named fields per role. A nil
// Identity means auth is disabled or the request was anonymous, which
// grants full read access (matching the platform's optional auth).
type Identity struct {
	UserID        string
	Role          string
	InstitutionID string
	DepartmentID  string
}

// Verifier validates bearer tokens with an HMAC secret.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier creates a token verifier. An empty secret disables
// verification; FromRequest then always resolves anonymous.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: DefaultLeeway}
}

// Enabled reports whether token verification is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// FromRequest resolves the caller identity from the Authorization header.
// With verification disabled, or no header present, it returns (nil, nil):
// anonymous. A present but invalid token is an error.
func (v *Verifier) FromRequest(r *http.Request) (*Identity, error) {
	if !v.Enabled() {
		return nil, nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return nil, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	return v.Verify(raw)
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	role := claims.Role
	if role == "" {
		role = RoleDepartment
	}
	return &Identity{
		UserID:        claims.Subject,
		Role:          role,
		InstitutionID: claims.InstitutionID,
		DepartmentID:  claims.DepartmentID,
	}, nil
}

// CanRead reports whether the identity may read the submission.
// Institution-role users see every submission; department-role users only
// their own department's (or their own uploads when no department is
// linked); system-sourced submissions are readable by everyone.
func CanRead(id *Identity, sub *model.Submission) bool {
	if id == nil || sub == nil {
		return true
	}
	if sub.SystemSourced() {
		return true
	}
	if id.Role == RoleInstitution {
		return true
	}
	if id.DepartmentID != "" {
		return sub.DepartmentID == id.DepartmentID
	}
	if id.UserID != "" {
		return sub.UserID == id.UserID
	}
	return true
}
