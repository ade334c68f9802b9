package safeher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/safeher/internal/limiters"
	"github.com/MrEthical07/safeher/internal/rate"
	"github.com/MrEthical07/safeher/jwt"
	"github.com/MrEthical07/safeher/password"
	"github.com/MrEthical07/safeher/report"
	"github.com/MrEthical07/safeher/session"
	"github.com/MrEthical07/safeher/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Register creates a user with the default role and logs them in.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.AllowRegistration {
		return nil, ErrAccountCreationDisabled
	}

	email := store.NormalizeEmail(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || req.Password == "" || fullName == "" {
		return nil, invalidInput("Missing required fields: email, password, full_name")
	}

	u, err := e.createUser(ctx, email, req.Password, fullName, e.config.Account.DefaultRole, true)
	if err != nil {
		return nil, err
	}

	return e.issueSession(ctx, u)
}

// createUser hashes the password and inserts the row. throttle applies the
// registration limiter, which admin provisioning skips.
func (e *Engine) createUser(ctx context.Context, email, plain, fullName, role string, throttle bool) (*store.User, error) {
	ip := clientIPFromContext(ctx)

	if throttle {
		if err := e.registrationLimiter.Enforce(ctx, email, ip); err != nil {
			if errors.Is(err, limiters.ErrRateLimited) {
				e.metricInc(MetricAccountCreationRateLimited)
				e.emitAudit(ctx, auditRecord{eventType: auditEventAccountCreateFailed, err: ErrAccountCreationRateLimited})
				return nil, ErrAccountCreationRateLimited
			}
			return nil, unavailable(err)
		}
	}

	hash, err := e.passwordHash.Hash(plain)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort):
			return nil, invalidInput(fmt.Sprintf("Password must be at least %d characters", e.passwordHash.MinLength()))
		case errors.Is(err, password.ErrPasswordTooLong):
			return nil, invalidInput("Password is too long")
		}
		return nil, err
	}

	u := &store.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FullName:     fullName,
		IsActive:     true,
	}
	if err := e.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditRecord{eventType: auditEventAccountCreateFailed, err: ErrAccountExists})
			return nil, ErrAccountExists
		}
		return nil, unavailable(err)
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventAccountCreated,
		success:   true,
		userID:    u.ID,
		metadata: func() map[string]string {
			return map[string]string{"role": u.Role}
		},
	})

	return u, nil
}

// Login verifies credentials and opens a session.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	email := store.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, invalidInput("Email and password are required")
	}
	ip := clientIPFromContext(ctx)

	if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditRecord{eventType: auditEventLoginRateLimited, err: ErrLoginRateLimited})
			return nil, ErrLoginRateLimited
		}
		return nil, unavailable(err)
	}

	u, err := e.store.UserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, unavailable(err)
	}

	ok := e.verifyPassword(u, req.Password)
	if !ok {
		if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil {
			e.logger.Warn("login counter update failed", zap.Error(err))
		}
		var uid int64
		if u != nil {
			uid = u.ID
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditRecord{eventType: auditEventLoginFailure, userID: uid, err: ErrInvalidCredentials})
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditRecord{eventType: auditEventLoginFailure, userID: u.ID, err: ErrAccountDisabled})
		return nil, ErrAccountDisabled
	}

	if err := e.rateLimiter.ResetLogin(ctx, email); err != nil {
		e.logger.Warn("login counter reset failed", zap.Error(err))
	}
	e.upgradeHash(ctx, u, req.Password)

	res, err := e.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventLoginSuccess,
		success:   true,
		userID:    u.ID,
		sessionID: res.SessionID,
	})

	return res, nil
}

// verifyPassword checks plain against u's hash. For an unknown user it runs
// the same Argon2 work against a decoy hash and reports false, so response
// time does not reveal which emails are registered.
func (e *Engine) verifyPassword(u *store.User, plain string) bool {
	if u == nil {
		e.decoyOnce.Do(func() {
			hash, err := e.passwordHash.Hash(uuid.NewString())
			if err != nil {
				e.logger.Error("decoy hash failed", zap.Error(err))
				return
			}
			e.decoyHash = hash
		})
		if e.decoyHash != "" {
			_, _ = e.passwordHash.Verify(plain, e.decoyHash)
		}
		return false
	}

	ok, err := e.passwordHash.Verify(plain, u.PasswordHash)
	if err != nil && !errors.Is(err, password.ErrPasswordTooLong) {
		e.logger.Error("password verify failed", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	return ok
}

func (e *Engine) upgradeHash(ctx context.Context, u *store.User, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.passwordHash.NeedsUpgrade(u.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.passwordHash.Hash(plain)
	if err != nil {
		e.logger.Warn("password rehash failed", zap.Int64("user_id", u.ID), zap.Error(err))
		return
	}
	if err := e.store.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		e.logger.Warn("password rehash not saved", zap.Int64("user_id", u.ID), zap.Error(err))
		return
	}
	u.PasswordHash = hash
}

func (e *Engine) issueSession(ctx context.Context, u *store.User) (*LoginResult, error) {
	now := e.now()
	ttl := e.jwtManager.TTL()
	sess := &session.Session{
		ID:        session.NewID(),
		UserID:    u.ID,
		Role:      u.Role,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := e.sessionStore.Save(ctx, sess, ttl); err != nil {
		return nil, unavailable(err)
	}

	token, err := e.jwtManager.CreateAccess(u.ID, u.Role, sess.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSessionCreated)

	return &LoginResult{
		AccessToken: token,
		SessionID:   sess.ID,
		User:        u.Person(),
	}, nil
}

// Logout deletes the caller's session. In strict mode the token stops
// validating immediately.
func (e *Engine) Logout(ctx context.Context, auth *AuthResult) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if auth == nil {
		return ErrUnauthorized
	}
	if err := e.sessionStore.Delete(ctx, auth.UserID, auth.SessionID); err != nil {
		return unavailable(err)
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventLogout,
		success:   true,
		userID:    auth.UserID,
		sessionID: auth.SessionID,
	})
	return nil
}

// Validate verifies an access token. routeMode overrides the configured
// validation mode unless it is ModeInherit.
func (e *Engine) Validate(ctx context.Context, token string, routeMode RouteMode) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}
	}()

	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			e.metricInc(MetricTokenExpired)
			return nil, ErrTokenExpired
		}
		e.metricInc(MetricTokenInvalid)
		return nil, ErrTokenInvalid
	}
	if claims.UID <= 0 || claims.SID == "" {
		e.metricInc(MetricTokenInvalid)
		return nil, ErrTokenInvalid
	}

	mode := routeMode
	if mode == ModeInherit {
		mode = e.config.Security.ValidationMode
	}

	role := claims.Role
	if mode == ModeStrict {
		sess, err := e.sessionStore.Get(ctx, claims.SID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, ErrStrictBackendDown
		}
		if sess.UserID != claims.UID {
			return nil, ErrSessionNotFound
		}
		role = sess.Role
	}

	mask, _ := e.roleManager.GetMask(role)

	return &AuthResult{
		UserID:    claims.UID,
		Role:      role,
		SessionID: claims.SID,
		Mask:      mask,
	}, nil
}

// Me returns the caller's profile.
func (e *Engine) Me(ctx context.Context, auth *AuthResult) (*report.Person, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if auth == nil {
		return nil, ErrUnauthorized
	}
	u, err := e.userByID(ctx, auth.UserID)
	if err != nil {
		return nil, err
	}
	return u.Person(), nil
}

func (e *Engine) userByID(ctx context.Context, id int64) (*store.User, error) {
	u, err := e.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable(err)
	}
	return u, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
