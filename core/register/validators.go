package register

import (
	"reflect"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/registrar/core"
)

var (
	repeatStatusTag  = "repeatstatus"
	repeatStatusText = "invalid repeat status"

	positiveTag  = "positive"
	positiveText = "{0} must be greater than 0"
)

// InitValidators registers the validations of this package.
// core.InitValidators must have been called on validate first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	// validate decimal amounts as float64 so that numeric tags apply
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	_ = validate.RegisterValidation(repeatStatusTag, repeatStatusValidation)
	core.RegisterCustomTranslation(validate, translator, repeatStatusTag, repeatStatusText)

	_ = validate.RegisterValidation(positiveTag, positiveValidation)
	core.RegisterCustomTranslation(validate, translator, positiveTag, positiveText)
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// positiveValidation accepts numbers strictly greater than zero.
func positiveValidation(fl validator.FieldLevel) bool {
	fld := fl.Field()
	switch fld.Kind() {
	case reflect.Float32, reflect.Float64:
		return fld.Float() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fld.Int() > 0
	}
	return false
}

func repeatStatusValidation(fl validator.FieldLevel) bool {
	status := RepeatStatus(fl.Field().String())
	for _, rs := range RepeatStatuses {
		if rs == status {
			return true
		}
	}
	return false
}

func (p *Payment) clean() {
	p.NumReceipt = core.CleanString(p.NumReceipt)
	p.DateReceipt = core.CleanString(p.DateReceipt)
	p.Description = core.CleanString(p.Description)
}

func (p *Payment) Validate(validate *validator.Validate) error {
	p.clean()
	return validate.Struct(p)
}

// Validate checks the fields of rs and that no sibling under the same annual register
// already uses its journey.
func (rs *RegisterSemester) Validate(validate *validator.Validate, siblings []RegisterSemester) error {
	rs.Semester = core.CleanString(rs.Semester)
	if err := validate.Struct(rs); err != nil {
		return err
	}
	for _, sib := range siblings {
		if sib.JourneyID == rs.JourneyID {
			return core.NewValidationError(ErrDuplicateJourney, core.FieldError{Field: "id_journey", Error: ErrDuplicateJourney.Error()})
		}
	}
	return nil
}

// CheckSemester checks that the semester of rs is offered by journey.
func (rs RegisterSemester) CheckSemester(journey *Journey) error {
	if journey == nil {
		return core.NewValidationError(ErrUnknownJourney, core.FieldError{Field: "id_journey", Error: ErrUnknownJourney.Error()})
	}
	if !core.ContainsString(journey.Semesters, rs.Semester) {
		return core.NewValidationError(ErrInvalidSemester, core.FieldError{Field: "semester", Error: ErrInvalidSemester.Error()})
	}
	return nil
}
