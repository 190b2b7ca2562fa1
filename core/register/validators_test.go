package register

import (
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/registrar/core"
)

func newTestValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func TestPayment_Validate(t *testing.T) {
	validate, translator := newTestValidator()

	tests := []struct {
		name       string
		pmt        Payment
		wantFields map[string]string
	}{
		{
			name: "valid",
			pmt:  Payment{NumReceipt: " R-01 ", DateReceipt: "2024-09-01", Payed: decimal.NewFromInt(50000)},
		},
		{
			name:       "empty",
			pmt:        Payment{},
			wantFields: map[string]string{"num_receipt": "this field is required", "date_receipt": "this field is required", "payed": "payed must be greater than 0"},
		},
		{
			name:       "negative amount",
			pmt:        Payment{NumReceipt: "R-01", DateReceipt: "2024-09-01", Payed: decimal.NewFromFloat(-0.5)},
			wantFields: map[string]string{"payed": "payed must be greater than 0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pmt.Validate(validate)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				assert.Equal(t, "R-01", tt.pmt.NumReceipt)
				return
			}
			assert.Equal(t, tt.wantFields, core.FieldMessages(err, translator))
		})
	}
}

func TestRegisterSemester_Validate(t *testing.T) {
	validate, _ := newTestValidator()
	siblings := []RegisterSemester{{Semester: "S1", RepeatStatus: RepeatStatusPassing, JourneyID: 1}}

	tests := []struct {
		name    string
		rs      RegisterSemester
		wantErr error
		invalid bool
	}{
		{name: "valid", rs: RegisterSemester{Semester: "S3", RepeatStatus: RepeatStatusTripling, JourneyID: 2}},
		{name: "bad repeat status", rs: RegisterSemester{Semester: "S3", RepeatStatus: "AJOURNE", JourneyID: 2}, invalid: true},
		{name: "no journey", rs: RegisterSemester{Semester: "S3", RepeatStatus: RepeatStatusPassing}, invalid: true},
		{name: "duplicate journey", rs: RegisterSemester{Semester: "S2", RepeatStatus: RepeatStatusPassing, JourneyID: 1}, wantErr: ErrDuplicateJourney},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rs.Validate(validate, siblings)
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, core.IsValidationError(err))
			case tt.invalid:
				_, ok := errors.Cause(err).(validator.ValidationErrors)
				assert.True(t, ok, "Validate() error = %v", err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterSemester_CheckSemester(t *testing.T) {
	rs := RegisterSemester{Semester: "S2", RepeatStatus: RepeatStatusPassing, JourneyID: 1}

	assert.NoError(t, rs.CheckSemester(&testJourneys[0]))
	assert.True(t, errors.Is(rs.CheckSemester(&testJourneys[1]), ErrInvalidSemester))
	assert.True(t, errors.Is(rs.CheckSemester(nil), ErrUnknownJourney))
}

func TestParseChildKind(t *testing.T) {
	kind, err := ParseChildKind(" Payment ")
	assert.NoError(t, err)
	assert.Equal(t, KindPayment, kind)

	_, err = ParseChildKind("grade")
	assert.Equal(t, ErrUnknownKind, err)
}
