package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/platform/logger"
	"github.com/phrazzld/bookshelf-api/internal/service/auth"
	"github.com/phrazzld/bookshelf-api/internal/store"
)

// UserService provides registration and authentication.
type UserService interface {
	// Register creates a user with the given email and password.
	// Returns store.ErrEmailExists if the email is taken.
	Register(ctx context.Context, email, password string) (*domain.User, error)

	// Authenticate checks credentials and issues a token pair.
	// Returns ErrInvalidCredentials for an unknown email or wrong password.
	Authenticate(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error)

	// Refresh exchanges a valid refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	db        *sqlx.DB
	hasher    auth.PasswordHasher
	verifier  auth.PasswordVerifier
	jwt       auth.JWTService
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	db *sqlx.DB,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	jwtService auth.JWTService,
	logger *slog.Logger,
) (UserService, error) {
	switch {
	case userStore == nil:
		return nil, domain.NewValidationError("userStore", "cannot be nil", domain.ErrValidation)
	case db == nil:
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	case hasher == nil:
		return nil, domain.NewValidationError("hasher", "cannot be nil", domain.ErrValidation)
	case verifier == nil:
		return nil, domain.NewValidationError("verifier", "cannot be nil", domain.ErrValidation)
	case jwtService == nil:
		return nil, domain.NewValidationError("jwtService", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &UserServiceImpl{
		userStore: userStore,
		db:        db,
		hasher:    hasher,
		verifier:  verifier,
		jwt:       jwtService,
		logger:    logger.With(slog.String("component", "user_service")),
	}, nil
}

// Register creates a new user with the specified email and password
// Uses a transaction to ensure atomicity of the operation
func (s *UserServiceImpl) Register(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, domain.NewValidationError("email", "must be a valid email address", err)
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, domain.NewValidationError("password", "must be between 8 and 72 characters", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, NewUserServiceError("register", "failed to hash password", err)
	}

	user, err := domain.NewUser(email, hashed)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register an existing email")
		} else {
			log.Error("failed to save user to database", slog.String("error", err.Error()))
		}
		return nil, NewUserServiceError("register", "failed to create user", err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate implements UserService.Authenticate
func (s *UserServiceImpl) Authenticate(
	ctx context.Context,
	email, password string,
) (*domain.User, *auth.TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("sign-in for unknown email")
			return nil, nil, ErrInvalidCredentials
		}
		log.Error("failed to look up user", slog.String("error", err.Error()))
		return nil, nil, NewUserServiceError("authenticate", "failed to look up user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("sign-in with wrong password", slog.String("user_id", user.ID.String()))
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.jwt.IssueTokenPair(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue tokens",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return nil, nil, NewUserServiceError("authenticate", "failed to issue tokens", err)
	}

	log.Info("user signed in", slog.String("user_id", user.ID.String()))
	return user, pair, nil
}

// Refresh implements UserService.Refresh
func (s *UserServiceImpl) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	// Tokens outlive deleted accounts.
	if _, err := s.userStore.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrInvalidRefreshToken
		}
		return nil, NewUserServiceError("refresh", "failed to look up user", err)
	}

	pair, err := s.jwt.IssueTokenPair(ctx, claims.UserID)
	if err != nil {
		log.Error("failed to issue tokens", slog.String("error", err.Error()))
		return nil, NewUserServiceError("refresh", "failed to issue tokens", err)
	}

	log.Debug("tokens refreshed", slog.String("user_id", claims.UserID.String()))
	return pair, nil
}
