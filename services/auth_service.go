package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"time"
)

type IAuthService interface {
	Register(username, email, password string) (domain.Identity, Token, error)
	Login(email, password string) (domain.Identity, Token, error)
}

type AuthService struct {
	users         repositories.IUserRepository
	tokenDuration time.Duration
}

type Token string

func NewAuthService(users repositories.IUserRepository, tokenDuration time.Duration) *AuthService {
	return &AuthService{users: users, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(username, email, password string) (domain.Identity, Token, error) {
	request := auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}

	// Validate before any expensive cryptographic operation.
	if err := auth.ValidateRegister(request); err != nil {
		return domain.Identity{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	// Hash in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	identity, err := s.users.CreateUser(username, email, hashedPassword)
	if err != nil {
		return domain.Identity{}, "", err
	}

	token, err := auth.GenerateToken(identity.ID.String(), identity.Username, s.tokenDuration)
	if err != nil {
		return domain.Identity{}, "", errors.ErrTokenGeneration
	}
	return identity, Token(token), nil
}

func (s *AuthService) Login(email, password string) (domain.Identity, Token, error) {
	request := auth.LoginRequest{Email: email, Password: password}
	if err := auth.ValidateLogin(request); err != nil {
		return domain.Identity{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	identity, err := s.users.ByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks.
		return domain.Identity{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, identity.PasswordHash)
	if err != nil || !match {
		return domain.Identity{}, "", errors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(identity.ID.String(), identity.Username, s.tokenDuration)
	if err != nil {
		return domain.Identity{}, "", errors.ErrTokenGeneration
	}
	return identity, Token(token), nil
}
