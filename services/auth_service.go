//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"context"
	"fmt"

	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type Token string

type IAuthService interface {
	Register(username, password string) (Token, chat.Identity, error)
	Login(username, password string) (Token, chat.Identity, error)
	VerifyCredential(ctx context.Context, token string) (chat.Identity, error)
}

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(username, password string) (Token, chat.Identity, error) {
	req := auth.CredentialsRequest{Username: username, Password: password}

	// Business rules first; hashing is expensive and pointless on bad input.
	if err := auth.ValidateRegister(req); err != nil {
		return "", chat.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", chat.Identity{}, fmt.Errorf("hashing failed: %w", err)
	}

	identity, err := s.users.CreateUser(username, hashedPassword)
	if err != nil {
		return "", chat.Identity{}, err
	}

	token, err := s.tokens.Generate(identity)
	if err != nil {
		return "", chat.Identity{}, errors.ErrTokenGeneration
	}
	return Token(token), identity, nil
}

func (s *AuthService) Login(username, password string) (Token, chat.Identity, error) {
	req := auth.CredentialsRequest{Username: username, Password: password}
	if err := auth.ValidateLogin(req); err != nil {
		return "", chat.Identity{}, errors.ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		// Deliberately indistinct from a bad password to prevent
		// account enumeration.
		return "", chat.Identity{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", chat.Identity{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.Identity())
	if err != nil {
		return "", chat.Identity{}, errors.ErrTokenGeneration
	}
	return Token(token), user.Identity(), nil
}

// VerifyCredential turns a bearer token into a verified identity, bounded
// by the context deadline: the gateway refuses a connection rather than
// hanging on the lookup. The user record is re-read so a token outliving
// its account no longer opens a session.
func (s *AuthService) VerifyCredential(ctx context.Context, token string) (chat.Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return chat.Identity{}, err
	}
	if err := ctx.Err(); err != nil {
		return chat.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, err)
	}

	type lookup struct {
		user repositories.User
		err  error
	}
	done := make(chan lookup, 1)
	go func() {
		user, err := s.users.GetUserByID(claims.UserID)
		done <- lookup{user: user, err: err}
	}()

	select {
	case <-ctx.Done():
		return chat.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return chat.Identity{}, errors.ErrInvalidCredentials
		}
		return res.user.Identity(), nil
	}
}
