package portfolio

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MinPasswordLength is the shortest password accepted by the forms.
const MinPasswordLength = 6

// SignInPayload is the sign-in form submission.
type SignInPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate only checks the password length; the identity backend
// judges the rest.
func (p SignInPayload) Validate() error {
	return firstInvalid(
		fieldRules{"password", p.Password, passwordRules()},
	)
}

// SignUpPayload is the sign-up form submission.
type SignUpPayload struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate checks password length, then confirmation, then email.
func (p SignUpPayload) Validate() error {
	return firstInvalid(
		fieldRules{"password", p.Password, passwordRules()},
		fieldRules{"confirm_password", p.ConfirmPassword, []validation.Rule{
			validation.By(ValidateStringEquals(p.Password)),
		}},
		fieldRules{"email", strings.TrimSpace(p.Email), []validation.Rule{
			validation.Required.Error(MsgEmailRequired),
		}},
	)
}

// ProfileFieldPayload is a single live edit of the profile form.
type ProfileFieldPayload struct {
	Field string `form:"field" json:"field"`
	Value string `form:"value" json:"value"`
}

// Validate ensures the field is one the draft knows.
func (p ProfileFieldPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Field,
			validation.Required,
			validation.In(FieldName, FieldUsername, FieldEmail, FieldGitHub, FieldAbout, FieldSkills),
		),
	)
}

// ValidateStringEquals rejects values different from str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return validation.NewError("validation_password_mismatch", MsgPasswordMismatch)
		}
		return nil
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(MsgPasswordTooShort),
		validation.RuneLength(MinPasswordLength, 0).Error(MsgPasswordTooShort),
	}
}

type fieldRules struct {
	name  string
	value string
	rules []validation.Rule
}

// firstInvalid runs the checks in order and reports only the first
// failing field.
func firstInvalid(checks ...fieldRules) error {
	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return NewValidationError(check.name, err.Error())
		}
	}
	return nil
}
