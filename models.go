package portfolio

import (
	"context"
	"time"
)

// TokenLeeway is how close to expiry a bearer credential gets refreshed.
const TokenLeeway = time.Minute

// Token is the identity backend credential pair.
type Token struct {
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the token is within leeway of its expiry.
func (t Token) Expired(now time.Time, leeway time.Duration) bool {
	if t.IDToken == "" {
		return true
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(t.ExpiresAt)
}

// Identity is an authenticated user.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email"`
	Provider    string `json:"provider,omitempty"`
	Token       Token  `json:"token"`
}

// BearerToken returns a valid ID token, refreshing it when it is about
// to expire. A refreshed token replaces the identity's current one.
func (i *Identity) BearerToken(ctx context.Context, refresher TokenRefresher) (string, error) {
	if i == nil {
		return "", ErrNotSignedIn
	}
	if !i.Token.Expired(time.Now(), TokenLeeway) {
		return i.Token.IDToken, nil
	}
	if refresher == nil || i.Token.RefreshToken == "" {
		if i.Token.IDToken == "" {
			return "", ErrNotSignedIn
		}
		return i.Token.IDToken, nil
	}

	token, err := refresher.Refresh(ctx, i.Token.RefreshToken)
	if err != nil {
		return "", err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = i.Token.RefreshToken
	}
	i.Token = token
	return token.IDToken, nil
}

// ProviderAssertion is the credential a third-party provider issued to
// the user, handed to the identity backend for sign-in.
type ProviderAssertion struct {
	// ProviderID is the identity backend's id for the provider, e.g. "github.com".
	ProviderID  string
	IDToken     string
	AccessToken string
	RequestURI  string
	// Profile fields reported by the provider, used as fallbacks.
	Name       string
	Email      string
	Username   string
	ProfileURL string
}

// Mode selects the credential form variant.
type Mode string

const (
	ModeSignIn Mode = "signin"
	ModeSignUp Mode = "signup"
)

// CredentialDraft holds the values typed into the credential form.
type CredentialDraft struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"-"`
	ConfirmPassword string `form:"confirm_password" json:"-"`
}

// Profile draft field names.
const (
	FieldName     = "name"
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldGitHub   = "github"
	FieldAbout    = "about"
	FieldSkills   = "skills"
)

// ProfileDraft is the in-memory profile being edited.
type ProfileDraft struct {
	Name       string `form:"name" json:"name"`
	Username   string `form:"username" json:"username"`
	Email      string `form:"email" json:"email"`
	GitHub     string `form:"github" json:"github"`
	About      string `form:"about" json:"about"`
	SkillsText string `form:"skills" json:"skills_text"`
}

// Skills derives the ordered skill list from the raw input.
func (d ProfileDraft) Skills() []string {
	return ParseSkills(d.SkillsText)
}

// Set assigns a single field by name. Unknown fields are ignored and
// reported as false.
func (d *ProfileDraft) Set(field, value string) bool {
	switch field {
	case FieldName:
		d.Name = value
	case FieldUsername:
		d.Username = value
	case FieldEmail:
		d.Email = value
	case FieldGitHub:
		d.GitHub = value
	case FieldAbout:
		d.About = value
	case FieldSkills:
		d.SkillsText = value
	default:
		return false
	}
	return true
}

// ToRemote serializes the draft into the profile API payload.
func (d ProfileDraft) ToRemote() RemoteProfile {
	return RemoteProfile{
		Name:     d.Name,
		Email:    d.Email,
		Username: d.Username,
		About:    d.About,
		Skills:   d.Skills(),
		GitHub:   d.GitHub,
	}
}

// RemoteProfile is the profile API representation.
type RemoteProfile struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	About    string   `json:"about"`
	Skills   []string `json:"skills"`
	GitHub   string   `json:"github"`
}

// ApplyTo overwrites the draft with the stored values. Empty remote
// email and username keep the draft's values.
func (p RemoteProfile) ApplyTo(d *ProfileDraft) {
	d.Name = p.Name
	d.SkillsText = JoinSkills(p.Skills)
	d.GitHub = p.GitHub
	d.About = p.About
	if p.Email != "" {
		d.Email = p.Email
	}
	if p.Username != "" {
		d.Username = p.Username
	}
}
