package service

import (
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
	appErrors "github.com/noah-isme/recurring-todo-api/pkg/errors"
)

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func registerTodoValidations(v *validator.Validate) {
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
}

func invalidPayload(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]recurrence.FieldError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, recurrence.FieldError{Field: fe.Field(), Message: "failed " + fe.Tag() + " validation"})
		}
		return appErrors.WithDetails(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message), details)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func invalidRule(err error) error {
	var ruleErrs recurrence.ValidationErrors
	if errors.As(err, &ruleErrs) {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid recurrence rule"), []recurrence.FieldError(ruleErrs))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurrence rule")
}

func parseDayField(field, raw string) (time.Time, error) {
	d, err := recurrence.ParseDay(raw)
	if err != nil {
		return time.Time{}, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, field+" must be a YYYY-MM-DD date"),
			[]recurrence.FieldError{{Field: field, Message: "must be a YYYY-MM-DD date"}},
		)
	}
	return d, nil
}
