package book

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("category", validateCategory)
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func validateCategory(fl validator.FieldLevel) bool {
	return KnownCategory(fl.Field().String())
}

// Fields are the writer-editable attributes of a Book. Field order is the
// order constraints are reported in.
type Fields struct {
	Name        string   `validate:"required,notblank,max=255"`
	Category    string   `validate:"required,category"`
	Price       *float64 `validate:"required,gte=0,lte=99999.99"`
	Description string   `validate:"max=1000"`
}

/* Checks the fields and returns a validation error naming the first violated constraint. */
func ValidateFields(f Fields) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return ErrResponseValidation.With(err.Error())
	}

	first := validationErrs[0]
	var message string
	switch first.Tag() {
	case "required", "notblank":
		message = fmt.Sprintf("%s is required", fieldName(first.Field()))
	case "max":
		message = fmt.Sprintf("%s must be at most %s characters", fieldName(first.Field()), first.Param())
	case "category":
		message = fmt.Sprintf("category %q is not a known genre", f.Category)
	case "gte", "lte":
		message = fmt.Sprintf("price must be between 0 and %.2f", PriceMax)
	default:
		message = fmt.Sprintf("%s is invalid", fieldName(first.Field()))
	}
	return ErrResponseValidation.With(message)
}

func fieldName(field string) string {
	switch field {
	case "Name":
		return "name"
	case "Category":
		return "category"
	case "Price":
		return "price"
	case "Description":
		return "description"
	}
	return field
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
