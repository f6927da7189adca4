package settings

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("fontsize", func(fl validator.FieldLevel) bool {
			return FontSize(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("colormode", func(fl validator.FieldLevel) bool {
			return ColorMode(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("langtag", func(fl validator.FieldLevel) bool {
			return IsLanguageTag(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks s for values that must never be stored: non-pixel font
// sizes, unknown color modes and unparseable language tags.
func Validate(s UserSettings) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var lists []string
		for _, fe := range validationErrors {
			lists = append(lists, fe.Namespace()+" ("+fe.Tag()+")")
		}
		return errors.New("validation failed on " + strings.Join(lists, ", "))
	}
	return err
}
