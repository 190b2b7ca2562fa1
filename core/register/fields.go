package register

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/registrar/core"
)

// setField sets a Payment field from its form value. Fields are addressed by their json names.
func (p *Payment) setField(field, value string) error {
	switch field {
	case "num_receipt":
		p.NumReceipt = value
	case "date_receipt":
		p.DateReceipt = value
	case "payed":
		value = core.CleanString(value)
		if value == "" {
			p.Payed = decimal.Zero
			return nil
		}
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return core.NewValidationError(errors.Wrap(err, "parsing amount"), core.FieldError{Field: field, Error: "a valid number is required"})
		}
		p.Payed = amount
	case "description":
		p.Description = value
	default:
		return errors.Wrapf(ErrUnknownField, "payment.%s", field)
	}
	return nil
}

// setField sets a RegisterSemester field from its form value.
// Setting id_journey drops the denormalized journey, it is resolved again on save.
func (rs *RegisterSemester) setField(field, value string) error {
	switch field {
	case "semester":
		rs.Semester = value
	case "repeat_status":
		rs.RepeatStatus = RepeatStatus(core.CleanString(value))
	case "id_journey":
		value = core.CleanString(value)
		if value == "" {
			rs.JourneyID = 0
			rs.Journey = nil
			return nil
		}
		id, err := strconv.Atoi(value)
		if err != nil {
			return core.NewValidationError(errors.Wrap(err, "parsing journey id"), core.FieldError{Field: field, Error: "a valid journey is required"})
		}
		if id != rs.JourneyID {
			rs.Journey = nil
		}
		rs.JourneyID = id
	default:
		return errors.Wrapf(ErrUnknownField, "register_semester.%s", field)
	}
	return nil
}
