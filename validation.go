package authflow

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// MinPasswordLength is the password policy applied before any network call.
const MinPasswordLength = 8

// Validation messages surfaced as warning-variant statuses.
const (
	msgEmailRequired    = "Please enter a valid email address."
	msgPasswordRequired = "Please enter a password."
	msgNewPasswordEmpty = "Please enter a new password."
	msgPasswordTooShort = "Password must be at least 8 characters."
	msgPasswordMismatch = "Passwords do not match."
)

// NonEmpty reports whether s has content after trimming.
func NonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// StrongEnough reports whether a trimmed password satisfies the policy.
func StrongEnough(password string) bool {
	return len(strings.TrimSpace(password)) >= MinPasswordLength
}

// Match reports trimmed equality of a password and its confirmation.
func Match(password, confirm string) bool {
	return strings.TrimSpace(password) == strings.TrimSpace(confirm)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// firstValidationMessage flattens an ozzo error map into the first rule
// message, honoring the given field priority order.
func firstValidationMessage(err error, fields ...string) string {
	if err == nil {
		return ""
	}
	if es, ok := err.(validation.Errors); ok {
		for _, f := range fields {
			if fe, ok := es[f]; ok && fe != nil {
				return fe.Error()
			}
		}
		for _, fe := range es {
			if fe != nil {
				return fe.Error()
			}
		}
	}
	return err.Error()
}

// LoginForm carries credentials for a login submission. Not persisted;
// lives only for the duration of the flow.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (f LoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(
			&f.Email,
			validation.Required.Error(msgEmailRequired),
		),
		validation.Field(
			&f.Password,
			validation.Required.Error(msgPasswordRequired),
		),
	)
}

// ResetRequestForm carries the email a reset link should be mailed to.
type ResetRequestForm struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (f ResetRequestForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(
			&f.Email,
			validation.Required.Error(msgEmailRequired),
		),
	)
}

// ResetConfirmForm carries the new password pair. Validation is ordered:
// required, then policy length, then confirmation equality. The first
// failing rule wins so the user sees a single actionable message.
type ResetConfirmForm struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate will run validation rules
func (f ResetConfirmForm) Validate() error {
	password := strings.TrimSpace(f.Password)

	if err := validation.Validate(password,
		validation.Required.Error(msgNewPasswordEmpty),
	); err != nil {
		return err
	}

	if err := validation.Validate(password,
		validation.Length(MinPasswordLength, 0).Error(msgPasswordTooShort),
	); err != nil {
		return err
	}

	return validation.Validate(strings.TrimSpace(f.ConfirmPassword),
		validation.By(func(value interface{}) error {
			if err := ValidateStringEquals(password)(value); err != nil {
				return errors.New(msgPasswordMismatch)
			}
			return nil
		}),
	)
}
