package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"

	tokenLifetime = 30 * 24 * time.Hour
)

var googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ServiceInterface defines methods for authentication and profile lookups.
type ServiceInterface interface {
	GetClientOrigin() string

	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	HandleGoogleLogin() (string, string, error)
	HandleGoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error)

	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	LookupRole(ctx context.Context, userID string) (models.Role, error)
}

type Service struct {
	repo              RepositoryInterface
	jwtSecret         string
	clientOrigin      string
	googleOAuthConfig *oauth2.Config
}

func NewService(repo RepositoryInterface, jwtSecret, clientOrigin string, googleOAuthConfig *oauth2.Config) *Service {
	return &Service{
		repo:              repo,
		jwtSecret:         jwtSecret,
		clientOrigin:      clientOrigin,
		googleOAuthConfig: googleOAuthConfig,
	}
}

// A struct to unmarshal the Google user info response
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

func (s *Service) GetClientOrigin() string {
	return s.clientOrigin
}

func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.Signup.FindByEmail: %w", err)
	}
	if err == nil {
		return nil, models.ErrConflict
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.Signup.HashPassword: %w", err)
	}

	profile, err := s.repo.Create(ctx, &models.Profile{
		Email:        email,
		AuthProvider: ProviderEmail,
		PasswordHash: string(hashedPassword),
	})
	if err != nil {
		return nil, fmt.Errorf("service.Signup.Create: %w", err)
	}
	return s.generateAuthResponse(profile)
}

// generateAuthResponse issues the JWT. The token carries identity only;
// the role is looked up per request.
func (s *Service) generateAuthResponse(profile *models.Profile) (*models.AuthResponse, error) {
	claims := &models.JwtCustomClaims{
		UserID: profile.ID,
		Email:  profile.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenSignedString, err := accessToken.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	profile.PasswordHash = ""
	return &models.AuthResponse{
		AccessToken: tokenSignedString,
		Profile:     profile,
	}, nil
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	profile, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.Login.FindByEmail: %w", err)
	}

	// Google-only profiles have no password.
	if profile.PasswordHash == "" {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return s.generateAuthResponse(profile)
}

// HandleGoogleLogin generates and returns the redirect URL and the state value for the user.
func (s *Service) HandleGoogleLogin() (string, string, error) {
	if s.googleOAuthConfig == nil {
		return "", "", errors.New("google login is not configured")
	}
	state, err := utils.GenerateSecureToken(16)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state for google login: %w", err)
	}
	return s.googleOAuthConfig.AuthCodeURL(state), state, nil
}

// HandleGoogleCallback exchanges the code, reads the verified email and
// creates the profile on first login.
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error) {
	if s.googleOAuthConfig == nil {
		return nil, errors.New("google login is not configured")
	}
	token, err := s.googleOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange failed: %w", err)
	}

	response, err := s.googleOAuthConfig.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from google: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info returned %s", response.Status)
	}

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}
	if !userInfo.VerifiedEmail {
		return nil, fmt.Errorf("google email not verified")
	}

	profile, err := s.findOrCreateOAuthProfile(ctx, userInfo.Email)
	if err != nil {
		return nil, err
	}
	return s.generateAuthResponse(profile)
}

func (s *Service) findOrCreateOAuthProfile(ctx context.Context, email string) (*models.Profile, error) {
	profile, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("db error while finding profile by email: %w", err)
	}
	profile, err = s.repo.Create(ctx, &models.Profile{Email: strings.ToLower(email), AuthProvider: ProviderGoogle})
	if errors.Is(err, models.ErrConflict) {
		// Created by a concurrent first login.
		return s.repo.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("service.findOrCreateOAuthProfile: %w", err)
	}
	return profile, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.GetProfile: %w", err)
	}
	profile.PasswordHash = ""
	return profile, nil
}

// LookupRole returns the stored role of userID. A missing profile is a
// plain user.
func (s *Service) LookupRole(ctx context.Context, userID string) (models.Role, error) {
	role, err := s.repo.GetRole(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.RoleUser, nil
	}
	if err != nil {
		return "", fmt.Errorf("service.LookupRole: %w", err)
	}
	return role, nil
}
