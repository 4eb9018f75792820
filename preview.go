package portfolio

import "strings"

// Preview fallbacks.
const (
	PreviewNamePlaceholder  = "Your Name"
	PreviewAboutPlaceholder = "Tell the world about yourself."
)

// Preview is the read-only summary shown next to the profile form.
type Preview struct {
	Name      string   `json:"name"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	GitHub    string   `json:"github"`
	About     string   `json:"about"`
	Skills    []string `json:"skills"`
	HasSkills bool     `json:"has_skills"`
}

// RenderPreview projects the draft, falling back to the identity's
// display name and email when the draft leaves them empty.
func RenderPreview(draft ProfileDraft, identity *Identity) Preview {
	p := Preview{
		Name:     strings.TrimSpace(draft.Name),
		Username: strings.TrimPrefix(strings.TrimSpace(draft.Username), "@"),
		Email:    strings.TrimSpace(draft.Email),
		GitHub:   strings.TrimSpace(draft.GitHub),
		About:    strings.TrimSpace(draft.About),
		Skills:   draft.Skills(),
	}

	if identity != nil {
		if p.Name == "" {
			p.Name = identity.DisplayName
		}
		if p.Email == "" {
			p.Email = identity.Email
		}
	}

	if p.Name == "" {
		p.Name = PreviewNamePlaceholder
	}
	if p.About == "" {
		p.About = PreviewAboutPlaceholder
	}
	if p.Username != "" {
		p.Username = "@" + p.Username
	}
	p.HasSkills = len(p.Skills) > 0

	return p
}

// Map returns the template bindings for the preview partial.
func (p Preview) Map() map[string]any {
	return map[string]any{
		"name":       p.Name,
		"username":   p.Username,
		"email":      p.Email,
		"github":     p.GitHub,
		"about":      p.About,
		"skills":     p.Skills,
		"has_skills": p.HasSkills,
	}
}
