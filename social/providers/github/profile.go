package github

import (
	"strconv"

	"github.com/goliatone/go-portfolio/social"
)

type user struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type emailEntry struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// primaryEmail prefers the primary address, then any verified one.
func primaryEmail(emails []emailEntry) (emailEntry, bool) {
	for _, e := range emails {
		if e.Primary {
			return e, true
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e, true
		}
	}
	return emailEntry{}, false
}

func (u user) profile(email string, verified bool) *social.SocialProfile {
	return &social.SocialProfile{
		ProviderUserID: strconv.FormatInt(u.ID, 10),
		Provider:       "github",
		Email:          email,
		EmailVerified:  verified,
		Name:           u.Name,
		Username:       u.Login,
		AvatarURL:      u.AvatarURL,
		ProfileURL:     u.HTMLURL,
	}
}
