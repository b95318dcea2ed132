package service

import (
	"context"
	"log/slog"
	"strings"

	"bitable-auth/internal/bitable"
	"bitable-auth/internal/model"
	"bitable-auth/internal/token"
	"bitable-auth/internal/util"
	"bitable-auth/pkg/apierror"
)

// UserStore is the slice of the store client the auth flows need.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*model.UserRecord, error)
	FindUserByEmail(ctx context.Context, email string) (*model.UserRecord, error)
	CreateUser(ctx context.Context, params bitable.CreateUserParams) (*model.UserRecord, error)
	UpdateLastLogin(ctx context.Context, recordID string) error
}

type AuthService struct {
	store  UserStore
	tokens *token.Service
}

func NewAuthService(store UserStore, tokens *token.Service) *AuthService {
	return &AuthService{store: store, tokens: tokens}
}

// Login authenticates by username or email (an identifier containing '@' is
// treated as an email) and issues a session token. The last-login stamp is
// best effort: its failure is logged and never blocks the login.
func (s *AuthService) Login(ctx context.Context, identifier string, password string) (model.LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return model.LoginResult{}, apierror.Validation("identifier and password are required")
	}

	var (
		user *model.UserRecord
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.store.FindUserByEmail(ctx, identifier)
	} else {
		user, err = s.store.FindUserByUsername(ctx, identifier)
	}
	if err != nil {
		return model.LoginResult{}, err
	}

	// Same answer for unknown identifier and wrong password.
	if user == nil || !util.CheckPassword(password, user.PasswordHash) {
		return model.LoginResult{}, apierror.Unauthorized("invalid username or password")
	}

	signed, err := s.tokens.Issue(user.User)
	if err != nil {
		return model.LoginResult{}, err
	}

	if err := s.store.UpdateLastLogin(ctx, user.RecordID); err != nil {
		slog.Warn("last-login update failed", "record_id", user.RecordID, "error", err)
	}

	return model.LoginResult{Token: signed, User: user.User}, nil
}

// Register validates the submitted fields, pre-checks username and email for
// duplicates, and creates the record. It never logs the new user in.
//
// The pre-check and the create are two separate store calls; two concurrent
// registrations for the same name can both pass the check. The store offers no
// uniqueness constraint, so that window is accepted.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if !util.IsValidUsername(req.Username) {
		return model.User{}, apierror.Validation("username must be 3-20 characters of letters, digits, or underscores")
	}
	if !util.IsValidEmail(req.Email) {
		return model.User{}, apierror.Validation("email address is not valid")
	}
	if !util.IsValidPassword(req.Password) {
		return model.User{}, apierror.Validation("password must be at least 8 characters with a letter and a digit")
	}

	existing, err := s.store.FindUserByUsername(ctx, req.Username)
	if err != nil {
		return model.User{}, err
	}
	if existing != nil {
		return model.User{}, apierror.DuplicateUser("username is already taken", req.Username)
	}

	existing, err = s.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return model.User{}, err
	}
	if existing != nil {
		return model.User{}, apierror.DuplicateUser("email is already registered", req.Email)
	}

	hash, err := util.HashPassword(req.Password)
	if err != nil {
		return model.User{}, err
	}

	created, err := s.store.CreateUser(ctx, bitable.CreateUserParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
	})
	if err != nil {
		return model.User{}, err
	}

	return created.User, nil
}
