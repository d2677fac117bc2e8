package dto

import (
	"time"

	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// MapUserProfile tolerates a missing profile; the user is then not an admin.
func MapUserProfile(user *domainuser.User, profile *domainprofile.Profile) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:        string(user.ID),
		Email:     user.Email,
		Name:      user.Name,
		IsAdmin:   profile != nil && profile.IsAdmin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func NewAuthResponse(user *domainuser.User, profile *domainprofile.Profile, token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{
		User:      MapUserProfile(user, profile),
		Token:     token,
		ExpiresAt: expiresAt,
	}
}
