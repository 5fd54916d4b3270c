package content

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/klabast/wb-services/newsletter/internal/calendar"
)

// ErrInvalidDocument marks a document that decoded but failed validation
var ErrInvalidDocument = errors.New("invalid document")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := calendar.ParseDate(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks a decoded document against its struct tags
func Validate(doc interface{}) error {
	if err := validatorInstance().Struct(doc); err != nil {
		return errors.Wrap(ErrInvalidDocument, err.Error())
	}
	return nil
}

// ValidateIndex checks that every week key is an ISO date
func ValidateIndex(ix Index) error {
	if len(ix) == 0 {
		return errors.Wrap(ErrInvalidDocument, "week index is empty")
	}
	if err := validatorInstance().Var([]string(ix), "dive,isodate"); err != nil {
		return errors.Wrap(ErrInvalidDocument, err.Error())
	}
	return nil
}
