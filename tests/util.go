package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
)

// NewValidator returns a validator set up like the API's.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	register.InitValidators(validate, translator)
	return validate, translator
}

// CreateRegister creates the annual register of cardNumber for academicYearID, then its payments.
func CreateRegister(
	t *testing.T,
	client register.Client,
	cardNumber string,
	academicYearID int,
	payments ...register.Payment,
) register.AnnualRegister {
	ctx := context.Background()
	ar, err := client.CreateAnnualRegister(ctx, register.NewAnnualRegister{
		StudentIdentifier: register.StudentIdentifier{NumCarte: cardNumber},
		AcademicYearID:    academicYearID,
	})
	if err != nil {
		t.Fatalf("CreateRegister() failed: %v", err)
	}
	for _, p := range payments {
		p.ID = null.Int{}
		saved, err := client.CreatePayment(ctx, ar.ID.Int, p)
		if err != nil {
			t.Fatalf("CreateRegister() failed: %v", err)
		}
		ar.Payments = append(ar.Payments, saved)
	}
	return ar
}
