package google

import "github.com/goliatone/go-portfolio/social"

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Profile       string `json:"profile"`
}

func (u userInfo) profile() *social.SocialProfile {
	return &social.SocialProfile{
		ProviderUserID: u.Sub,
		Provider:       "google",
		Email:          u.Email,
		EmailVerified:  u.EmailVerified,
		Name:           u.Name,
		AvatarURL:      u.Picture,
		ProfileURL:     u.Profile,
	}
}
