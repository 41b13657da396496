package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"jogosescolares/internal/apperrors"

	"github.com/go-playground/validator/v10"
)

var (
	inepPattern = regexp.MustCompile(`^\d{8}$`)
	// CREF registrations look like 123456-G/SP.
	crefPattern = regexp.MustCompile(`^\d{6}-[GP]/[A-Z]{2}$`)
	ufPattern   = regexp.MustCompile(`^[A-Z]{2}$`)
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("inep", validateINEP)
	_ = v.RegisterValidation("cpf", validateCPF)
	_ = v.RegisterValidation("cref", validateCREF)
	_ = v.RegisterValidation("uf", validateUF)
	_ = v.RegisterValidation("password_strength", validatePasswordStrength)

	return &Validator{validate: v}
}

// Validate checks i and reports failures as a validation error whose
// metadata maps each failing field to the rule it broke.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate: %w", err)
	}

	appErr := apperrors.Validation("invalid %s", strings.ToLower(fieldErrs[0].Field()))
	for _, fe := range fieldErrs {
		appErr = appErr.WithMetadata(fe.Field(), fe.Tag())
	}
	return appErr
}

func validateINEP(fl validator.FieldLevel) bool {
	return inepPattern.MatchString(fl.Field().String())
}

func validateCREF(fl validator.FieldLevel) bool {
	return crefPattern.MatchString(strings.ToUpper(fl.Field().String()))
}

func validateUF(fl validator.FieldLevel) bool {
	return ufPattern.MatchString(fl.Field().String())
}

func validateCPF(fl validator.FieldLevel) bool {
	return IsCPF(fl.Field().String())
}

// IsCPF accepts formatted or bare CPF numbers and checks both verifier digits.
func IsCPF(raw string) bool {
	digits := make([]int, 0, 11)
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	if len(digits) != 11 {
		return false
	}

	allSame := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	for check := 9; check <= 10; check++ {
		sum := 0
		for i := 0; i < check; i++ {
			sum += digits[i] * (check + 1 - i)
		}
		d := (sum * 10) % 11
		if d == 10 {
			d = 0
		}
		if d != digits[check] {
			return false
		}
	}
	return true
}

func validatePasswordStrength(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	return hasLetter && hasDigit
}
