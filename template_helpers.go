package portfolio

import (
	"strings"
	"unicode"
)

// TemplateHelpers returns the functions available to every view.
//
// In templates:
//
//	{% if is_authenticated(identity) %}
//	{{ initials(preview.name) }}
//	{{ field_error(field_errors, "email") }}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"display_name":     displayName,
		"initials":         initials,
		"field_error":      fieldError,
	}
}

func isAuthenticated(identity *Identity) bool {
	return identity != nil && identity.ID != ""
}

// displayName prefers the account name, then the email.
func displayName(identity *Identity) string {
	if identity == nil {
		return ""
	}
	if name := strings.TrimSpace(identity.DisplayName); name != "" {
		return name
	}
	return identity.Email
}

// initials returns up to two uppercase initials of name.
func initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

func fieldError(fields map[string]string, name string) string {
	if fields == nil {
		return ""
	}
	return fields[name]
}
