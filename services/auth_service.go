//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"
	"time"

	"gigchat/auth"
	"gigchat/errors"
	"gigchat/repositories"
)

type IAuthService interface {
	Login(email, password string) (Token, error)
	Register(email, password string) (Token, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokenDuration  time.Duration
}

type Token string

func NewAuthService(repo repositories.IUserRepository, tokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(email, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Email:    email,
		Password: password,
	}

	// Validate business rules before any expensive cryptographic work.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer so the repository never sees a
	// plain password.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(email, hashedPassword)
	if err != nil {
		return "", err // Propagates ErrUserAlreadyExists if the email is taken.
	}

	token, err := auth.GenerateToken(userID, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks.
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
