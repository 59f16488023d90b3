package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/repositories"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/auth"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/metrics"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/session"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidPIN reports whether s has the shape of a staff PIN.
func ValidPIN(s string) bool { return pinPattern.MatchString(s) }

// Sessions stores signed-in staff identities.
type Sessions = session.Manager[models.Identity]

// NewSessions builds the session manager for staff identities.
func NewSessions(store session.Store, ttl time.Duration) *Sessions {
	return session.NewManager(store, ttl, models.Identity.Valid)
}

// Login is the outcome of a successful sign-in.
type Login struct {
	Identity  models.Identity `json:"user"`
	SessionID string          `json:"session_id"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Redirect  string          `json:"redirect"`
}

// IdentityGate signs staff in and out.
type IdentityGate struct {
	users    *repositories.UserRepository
	sessions *Sessions
	issuer   *auth.Issuer
}

func NewIdentityGate(users *repositories.UserRepository, sessions *Sessions, issuer *auth.Issuer) *IdentityGate {
	return &IdentityGate{users: users, sessions: sessions, issuer: issuer}
}

// Login signs in a waiter or kitchen user by PIN.
func (g *IdentityGate) Login(ctx context.Context, pin string) (*Login, error) {
	pin = strings.TrimSpace(pin)
	if !ValidPIN(pin) {
		return nil, invalid("pin", "must be 4 digits")
	}

	users, err := g.users.FindStaffByCode(ctx, pin)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("pin", "error").Inc()
		return nil, backend("find staff by pin", err)
	}
	if len(users) != 1 {
		if len(users) > 1 {
			logger.WithCtx(ctx).Error("pin shared by several staff members")
		}
		return nil, g.refuse(ctx, "pin")
	}
	return g.open(ctx, "pin", users[0])
}

// AdminLogin signs in an admin by name and password. Names match
// case-insensitively.
func (g *IdentityGate) AdminLogin(ctx context.Context, name, password string) (*Login, error) {
	if strings.TrimSpace(name) == "" || password == "" {
		return nil, &ValidationError{Fields: map[string]string{"credentials": "username and password are required"}}
	}

	users, err := g.users.FindAdminsByName(ctx, name)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("admin", "error").Inc()
		return nil, backend("find admin by name", err)
	}
	if len(users) != 1 {
		// Burn the same time as a real comparison.
		auth.CheckPassword(decoyHash(), password)
		return nil, g.refuse(ctx, "admin")
	}
	if !auth.CheckPassword(users[0].PasswordHash, password) {
		return nil, g.refuse(ctx, "admin")
	}
	return g.open(ctx, "admin", users[0])
}

// Logout clears the session and returns where the terminal goes next.
// Clearing an unknown session is not an error.
func (g *IdentityGate) Logout(ctx context.Context, sid string) (string, error) {
	s, err := g.sessions.Resume(ctx, sid)
	if errors.Is(err, session.ErrNoSession) {
		return models.LoggedOutPath, nil
	}
	if err != nil {
		return "", backend("resume session", err)
	}
	if err := g.sessions.Clear(ctx, s); err != nil {
		return "", backend("clear session", err)
	}
	logger.WithCtx(ctx).Info("staff signed out", "user_id", s.Value.ID, "role", s.Value.Role)
	return models.LoggedOutPath, nil
}

// Resume reads a stored session back.
func (g *IdentityGate) Resume(ctx context.Context, sid string) (*session.Session[models.Identity], error) {
	s, err := g.sessions.Resume(ctx, sid)
	if errors.Is(err, session.ErrNoSession) {
		return nil, &AuthFailure{Reason: NoSession}
	}
	if err != nil {
		return nil, backend("resume session", err)
	}
	return s, nil
}

// Authenticate validates a bearer token and resumes the session it names.
// A token whose session was cleared is refused.
func (g *IdentityGate) Authenticate(ctx context.Context, token string) (*session.Session[models.Identity], error) {
	claims, err := g.issuer.Validate(token)
	if err != nil {
		return nil, &AuthFailure{Reason: InvalidCredentials}
	}
	s, err := g.Resume(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if s.Value.ID != claims.UserID || string(s.Value.Role) != claims.Role {
		return nil, &AuthFailure{Reason: InvalidCredentials}
	}
	return s, nil
}

func (g *IdentityGate) open(ctx context.Context, method string, u models.User) (*Login, error) {
	id := u.Identity()
	redirect, err := id.Role.LandingPath()
	if err != nil {
		return nil, g.refuse(ctx, method)
	}

	s, err := g.sessions.Open(ctx, id)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(method, "error").Inc()
		return nil, backend("open session", err)
	}
	token, exp, err := g.issuer.Issue(id.ID, string(id.Role), s.ID)
	if err != nil {
		_ = g.sessions.Clear(ctx, s)
		metrics.AuthAttempts.WithLabelValues(method, "error").Inc()
		return nil, backend("issue token", err)
	}

	metrics.AuthAttempts.WithLabelValues(method, "ok").Inc()
	logger.WithCtx(ctx).Info("staff signed in", "user_id", id.ID, "role", id.Role, "method", method)
	return &Login{Identity: id, SessionID: s.ID, Token: token, ExpiresAt: exp, Redirect: redirect}, nil
}

func (g *IdentityGate) refuse(ctx context.Context, method string) error {
	metrics.AuthAttempts.WithLabelValues(method, "refused").Inc()
	logger.WithCtx(ctx).Warn("login refused", "method", method)
	return &AuthFailure{Reason: InvalidCredentials}
}

var (
	decoyOnce sync.Once
	decoy     string
)

func decoyHash() string {
	decoyOnce.Do(func() {
		decoy, _ = auth.HashPassword("mesa-decoy-password")
	})
	return decoy
}
