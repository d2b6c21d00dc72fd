package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator instance
var validate *validator.Validate

// Telegram usernames: 5-32 chars, but account identities on the credit side
// are looser, so only the charset is enforced here.
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Decimal string strictly greater than zero
	validate.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		if err != nil {
			return false
		}
		return d.IsPositive()
	})

	// Account identity / chat handle
	validate.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})

	// Ledger status filter
	validate.RegisterValidation("tx_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", "requested", "proof_submitted", "credited", "rejected":
			return true
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too small (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too large (max: " + err.Param() + ")"
		case "positive_amount":
			errors[field] = "Amount must be a number greater than 0"
		case "handle":
			errors[field] = "Invalid account identity"
		case "tx_status":
			errors[field] = "Invalid status. Must be: requested, proof_submitted, credited, or rejected"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
