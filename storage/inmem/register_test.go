package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
	"github.com/trezcool/registrar/tests"
)

var ctx = context.Background()

func setup(t *testing.T) (register.Client, register.AnnualRegister) {
	client := NewClient(Open(DemoFixtures()))
	return client, testutil.CreateRegister(t, client, "CARD-0001", 2024)
}

func TestClient_annualRegisters(t *testing.T) {
	client, ar := setup(t)
	assert.True(t, ar.ID.Valid)

	_, err := client.CreateAnnualRegister(ctx, register.NewAnnualRegister{
		StudentIdentifier: register.StudentIdentifier{NumCarte: "CARD-0001"},
		AcademicYearID:    2024,
	})
	assert.True(t, core.IsValidationError(err))

	tests := []struct {
		name   string
		filter register.ListFilter
		want   int
	}{
		{name: "by card", filter: register.ListFilter{StudentIdentifier: register.StudentIdentifier{NumCarte: "CARD-0001"}}, want: 2},
		{name: "by card and year", filter: register.ListFilter{StudentIdentifier: register.StudentIdentifier{NumCarte: "CARD-0001"}, AcademicYearID: 2024}, want: 1},
		{name: "unknown student", filter: register.ListFilter{StudentIdentifier: register.StudentIdentifier{NumSelect: "SEL-9"}}},
		{name: "no identifier", filter: register.ListFilter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registers, err := client.ListAnnualRegisters(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, registers, tt.want)
		})
	}

	require.NoError(t, client.DeleteAnnualRegister(ctx, ar.ID.Int))
	assert.Equal(t, register.ErrNotFound, errors.Cause(client.DeleteAnnualRegister(ctx, ar.ID.Int)))
}

func TestClient_payments(t *testing.T) {
	client, ar := setup(t)

	p, err := client.CreatePayment(ctx, ar.ID.Int, register.Payment{NumReceipt: "R-01", DateReceipt: "2024-09-01", Payed: decimal.NewFromInt(50000)})
	require.NoError(t, err)
	assert.True(t, p.ID.Valid)

	p.Description = "first installment"
	_, err = client.UpdatePayment(ctx, ar.ID.Int, p)
	require.NoError(t, err)

	registers, err := client.ListAnnualRegisters(ctx, register.ListFilter{StudentIdentifier: ar.Identifier(), AcademicYearID: 2024})
	require.NoError(t, err)
	require.Len(t, registers[0].Payments, 1)
	assert.Equal(t, "first installment", registers[0].Payments[0].Description)

	require.NoError(t, client.DeletePayment(ctx, p.ID.Int))
	assert.Equal(t, register.ErrNotFound, errors.Cause(client.DeletePayment(ctx, p.ID.Int)))

	_, err = client.CreatePayment(ctx, 999, p)
	assert.Equal(t, register.ErrNotFound, errors.Cause(err))
}

func TestClient_registerSemesters(t *testing.T) {
	client, ar := setup(t)

	rs, err := client.CreateRegisterSemester(ctx, ar.ID.Int, register.RegisterSemester{Semester: "S1", RepeatStatus: register.RepeatStatusPassing, JourneyID: 1})
	require.NoError(t, err)
	require.NotNil(t, rs.Journey)
	assert.Equal(t, "SE", rs.Journey.Abbreviation)

	_, err = client.CreateRegisterSemester(ctx, ar.ID.Int, register.RegisterSemester{Semester: "S2", RepeatStatus: register.RepeatStatusPassing, JourneyID: 1})
	assert.True(t, errors.Is(err, register.ErrDuplicateJourney))

	rs.Semester = "S2"
	updated, err := client.UpdateRegisterSemester(ctx, ar.ID.Int, rs)
	require.NoError(t, err)
	assert.Equal(t, "S2", updated.Semester)

	require.NoError(t, client.DeleteRegisterSemester(ctx, rs.ID.Int))
}

func TestClient_documents(t *testing.T) {
	client, ar := setup(t)

	_, err := client.UploadDocument(ctx, ar.ID.Int, register.DocumentUpload{RequiredDocumentID: 1, Filename: "birth.pdf"})
	assert.True(t, errors.Is(err, register.ErrEmptyUpload))

	doc, err := client.UploadDocument(ctx, ar.ID.Int, register.DocumentUpload{RequiredDocumentID: 1, Filename: "birth.pdf", Content: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, documentURL(doc), doc.URL)

	require.NoError(t, client.DeleteDocument(ctx, doc.ID))
	assert.Equal(t, register.ErrNotFound, errors.Cause(client.DeleteDocument(ctx, doc.ID)))
}

func TestClient_lookups(t *testing.T) {
	client, _ := setup(t)

	journeys, err := client.JourneysByMention(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, journeys, 3)

	fee, err := client.EnrollmentFee(ctx, register.FeeQuery{AcademicYearID: 2024, MentionID: 1, Level: "L2"})
	require.NoError(t, err)
	assert.True(t, fee.Price.Equal(decimal.NewFromInt(65000)))

	_, err = client.EnrollmentFee(ctx, register.FeeQuery{AcademicYearID: 2030, MentionID: 1})
	assert.Equal(t, register.ErrNotFound, err)

	docs, err := client.RequiredDocuments(ctx, register.RequiredDocumentQuery{AcademicYearID: 2024, JourneyIDs: []int{2}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0].ID)
}
