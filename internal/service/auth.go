package service

import (
	"context"       // Store deadlines
	"crypto/rand"   // Reset tokens
	"crypto/sha256" // Reset token digests
	"encoding/hex"  // Token encoding
	"errors"        // Error classification
	"net/url"       // Reset link query
	"strings"       // Input normalization
	"time"          // Expiry

	"github.com/go-playground/validator/v10" // Field validation
	"github.com/sirupsen/logrus"             // Logging
	"golang.org/x/crypto/bcrypt"             // Password hashing

	"scorekeeper/internal/domain"     // Domain models and errors
	"scorekeeper/internal/notify"     // Reset mail delivery
	"scorekeeper/internal/repository" // Persistence
	"scorekeeper/internal/utils"      // Locks and cache
)

// Credential policy
const (
	MinPasswordLength = 6  // Shortest accepted password
	MaxPasswordLength = 72 // bcrypt ignores anything longer
	DefaultBcryptCost = 12 // Work factor for stored hashes
)

// RegisterInput is the sign-up payload
type RegisterInput struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginInput is the sign-in payload
type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is a freshly issued session credential
type LoginResult struct {
	Token string      `json:"token"` // Bearer credential
	User  domain.User `json:"user"`  // Signed-in user
}

// UserPage is one page of the admin user listing
type UserPage struct {
	Users      []domain.User `json:"users"`       // Users on this page
	Page       int           `json:"page"`        // Current page
	PageSize   int           `json:"page_size"`   // Page size
	Total      int64         `json:"total"`       // Total number of users
	TotalPages int           `json:"total_pages"` // Total pages
}

// AuthOptions configures credentials and password resets
type AuthOptions struct {
	JWTSecret     string        // HS256 signing key
	JWTTTL        time.Duration // Credential lifetime
	ResetTokenTTL time.Duration // Reset token lifetime
	BaseURL       string        // Public URL used in reset links
	BcryptCost    int           // Defaults to DefaultBcryptCost
}

// AuthService owns the identity store: accounts, credentials and sessions
type AuthService struct {
	store    repository.Store
	mailer   notify.Sender
	auth     AuthOptions
	opts     Options
	log      logrus.FieldLogger
	validate *validator.Validate

	dummyHash []byte // Stand-in hash compared on unknown emails
}

// NewAuthService wires an AuthService
func NewAuthService(store repository.Store, mailer notify.Sender, auth AuthOptions, opts Options, log logrus.FieldLogger) *AuthService {
	if auth.BcryptCost == 0 {
		auth.BcryptCost = DefaultBcryptCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("unknown-account"), auth.BcryptCost)
	if err != nil {
		log.WithField("error", err.Error()).Warn("Login placeholder hash unavailable")
	}
	return &AuthService{
		store:     store,
		mailer:    mailer,
		auth:      auth,
		opts:      opts,
		log:       log,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		dummyHash: dummy,
	}
}

// Register creates a user account with the user role
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	verr := &domain.ValidationError{Fields: map[string]string{}}
	if username == "" {
		verr.Fields["username"] = "is required"
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		verr.Fields["email"] = "must be a valid email address"
	}
	if err := checkPassword(in.Password); err != "" {
		verr.Fields["password"] = err
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	user := &domain.User{Username: username, Email: email, Password: string(hash), Role: domain.RoleUser}
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
			return domain.ErrUserExists
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return tx.Users().Create(ctx, user) // Unique index catches a racing duplicate
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered")
	return user, nil
}

// Login exchanges an email and password for a signed credential. Unknown
// emails and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password)) // Same work as a wrong password
		return nil, domain.ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	token, err := utils.GenerateJWT(user.ID, user.Role, user.TokenGeneration, s.auth.JWTSecret, s.auth.JWTTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: *user}, nil
}

// Verify checks a credential and resolves the caller. A credential minted
// before the user's last reset or logout-everywhere is SessionExpired.
func (s *AuthService) Verify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := utils.ParseJWT(token, s.auth.JWTSecret)
	if err != nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Identity{}, domain.ErrInvalidToken
	} else if err != nil {
		return domain.Identity{}, err
	}
	if user.TokenGeneration != claims.TokenGeneration {
		return domain.Identity{}, domain.ErrSessionExpired
	}
	return domain.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// LogoutAll invalidates every credential issued to the user so far
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	if err := s.store.Users().BumpTokenGeneration(ctx, userID); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).Info("All sessions revoked")
	return nil
}

// ForgotPassword issues a reset token and mails its link. It reports success
// whether or not the email belongs to an account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := hex.EncodeToString(raw)
	expires := s.opts.now().Add(s.auth.ResetTokenTTL)
	if err := s.store.Users().SetResetToken(ctx, user.ID, digest(token), expires); err != nil {
		return err
	}

	msg := notify.ResetMessage{
		To:        user.Email,
		Username:  user.Username,
		ResetLink: strings.TrimRight(s.auth.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token),
	}
	// Delivery failures stay in the log so the response cannot reveal which emails exist
	if err := s.mailer.SendPasswordReset(ctx, msg); err != nil {
		s.log.WithFields(logrus.Fields{"user_id": user.ID, "error": err.Error()}).Error("Password reset mail failed")
		return nil
	}
	s.log.WithField("user_id", user.ID).Info("Password reset requested")
	return nil
}

// ResetPassword consumes a reset token, stores the new password and revokes
// every existing session
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if problem := checkPassword(newPassword); problem != "" {
		return domain.NewValidationError("new_password", problem)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidOrExpiredToken
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	hash := digest(token)
	user, err := s.store.Users().GetByResetTokenHash(ctx, hash)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrInvalidOrExpiredToken
	} else if err != nil {
		return err
	}
	if user.ResetExpiresAt == nil || !s.opts.now().Before(*user.ResetExpiresAt) {
		return domain.ErrInvalidOrExpiredToken
	}
	pw, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.auth.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.store.Users().ResetPassword(ctx, user.ID, hash, string(pw)); err != nil {
		return err
	}
	s.log.WithField("user_id", user.ID).Info("Password reset")
	return nil
}

// PurgeExpiredResetTokens clears reset tokens that can no longer be used
func (s *AuthService) PurgeExpiredResetTokens(ctx context.Context) (int64, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	return s.store.Users().ClearExpiredResetTokens(ctx, s.opts.now())
}

// ListUsers returns one page of users. page starts at 1.
func (s *AuthService) ListUsers(ctx context.Context, page, pageSize int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	users, total, err := s.store.Users().List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return &UserPage{
		Users:      users,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (int(total) + pageSize - 1) / pageSize, // Calculate total pages
	}, nil
}

func checkPassword(pw string) string {
	switch {
	case len(pw) < MinPasswordLength:
		return "must be at least 6 characters"
	case len(pw) > MaxPasswordLength:
		return "must be at most 72 bytes"
	}
	return ""
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
