package register

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registrar/core"
)

// clientMock records every call and answers like a well behaved backend.
// Hooks replace the default answer of one method.
type clientMock struct {
	mu     sync.Mutex
	calls  []string
	lastID int

	payments      []Payment
	registrations []RegisterSemester
	uploads       []DocumentUpload

	journeys []Journey
	fee      *EnrollmentFee
	required []RequiredDocument

	createAnnualFunc  func(ctx context.Context, nar NewAnnualRegister) (AnnualRegister, error)
	createPaymentFunc func(ctx context.Context, annualID int, p Payment) (Payment, error)
	journeysFunc      func(ctx context.Context, mentionID int) ([]Journey, error)
	createPaymentErr  error
	deleteErr         error
}

var _ Client = (*clientMock)(nil)

func (c *clientMock) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *clientMock) nextID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID++
	return c.lastID
}

func (c *clientMock) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return nil
	}
	calls := make([]string, len(c.calls))
	copy(calls, c.calls)
	return calls
}

func (c *clientMock) ListAnnualRegisters(_ context.Context, _ ListFilter) ([]AnnualRegister, error) {
	c.record("ListAnnualRegisters")
	return []AnnualRegister{}, nil
}

func (c *clientMock) CreateAnnualRegister(ctx context.Context, nar NewAnnualRegister) (AnnualRegister, error) {
	c.record("CreateAnnualRegister")
	if c.createAnnualFunc != nil {
		return c.createAnnualFunc(ctx, nar)
	}
	return AnnualRegister{
		ID:             null.IntFrom(c.nextID()),
		NumCarte:       nar.NumCarte,
		NumSelect:      nar.NumSelect,
		AcademicYearID: nar.AcademicYearID,
	}, nil
}

func (c *clientMock) DeleteAnnualRegister(_ context.Context, _ int) error {
	c.record("DeleteAnnualRegister")
	return c.deleteErr
}

func (c *clientMock) CreatePayment(ctx context.Context, annualID int, p Payment) (Payment, error) {
	c.record("CreatePayment")
	if c.createPaymentFunc != nil {
		return c.createPaymentFunc(ctx, annualID, p)
	}
	if c.createPaymentErr != nil {
		return Payment{}, c.createPaymentErr
	}
	c.mu.Lock()
	c.payments = append(c.payments, p)
	c.mu.Unlock()
	p.ID = null.IntFrom(c.nextID())
	return p, nil
}

func (c *clientMock) UpdatePayment(_ context.Context, _ int, p Payment) (Payment, error) {
	c.record("UpdatePayment")
	c.mu.Lock()
	c.payments = append(c.payments, p)
	c.mu.Unlock()
	return p, nil
}

func (c *clientMock) DeletePayment(_ context.Context, _ int) error {
	c.record("DeletePayment")
	return c.deleteErr
}

func (c *clientMock) CreateRegisterSemester(_ context.Context, _ int, rs RegisterSemester) (RegisterSemester, error) {
	c.record("CreateRegisterSemester")
	c.mu.Lock()
	c.registrations = append(c.registrations, rs)
	c.mu.Unlock()
	rs.ID = null.IntFrom(c.nextID())
	return rs, nil
}

func (c *clientMock) UpdateRegisterSemester(_ context.Context, _ int, rs RegisterSemester) (RegisterSemester, error) {
	c.record("UpdateRegisterSemester")
	return rs, nil
}

func (c *clientMock) DeleteRegisterSemester(_ context.Context, _ int) error {
	c.record("DeleteRegisterSemester")
	return c.deleteErr
}

func (c *clientMock) UploadDocument(_ context.Context, _ int, up DocumentUpload) (Document, error) {
	c.record("UploadDocument")
	c.mu.Lock()
	c.uploads = append(c.uploads, up)
	c.mu.Unlock()
	return Document{
		ID:                 c.nextID(),
		RequiredDocumentID: up.RequiredDocumentID,
		Name:               up.Filename,
		URL:                "/media/" + up.Filename,
		Description:        up.Description,
	}, nil
}

func (c *clientMock) DeleteDocument(_ context.Context, _ int) error {
	c.record("DeleteDocument")
	return c.deleteErr
}

func (c *clientMock) JourneysByMention(ctx context.Context, mentionID int) ([]Journey, error) {
	c.record("JourneysByMention")
	if c.journeysFunc != nil {
		return c.journeysFunc(ctx, mentionID)
	}
	return c.journeys, nil
}

func (c *clientMock) EnrollmentFee(_ context.Context, _ FeeQuery) (EnrollmentFee, error) {
	c.record("EnrollmentFee")
	if c.fee == nil {
		return EnrollmentFee{}, ErrNotFound
	}
	return *c.fee, nil
}

func (c *clientMock) RequiredDocuments(_ context.Context, _ RequiredDocumentQuery) ([]RequiredDocument, error) {
	c.record("RequiredDocuments")
	return c.required, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// busMock keeps the published events in order.
type busMock struct {
	mu     sync.Mutex
	topics []string
}

func (b *busMock) Publish(topic string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
}

func (b *busMock) Subscribe(string, core.Handler) func() { return func() {} }

func (b *busMock) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.topics...)
}

var testJourneys = []Journey{
	{ID: 1, Name: "Software Engineering", Abbreviation: "SE", MentionID: 3, Semesters: []string{"S1", "S2"}},
	{ID: 2, Name: "Networks", Abbreviation: "NET", MentionID: 3, Semesters: []string{"S3", "S4"}},
}

func newTestStore(client *clientMock) (*Store, *busMock) {
	// errors stay visible for the whole test
	afterFunc = func(time.Duration, func()) *time.Timer { return time.NewTimer(time.Hour) }

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	bus := new(busMock)
	s := NewStore(
		Deps{Client: client, Bus: bus, Logger: nopLogger{}, Validate: validate, Translator: translator},
		Options{MentionID: 3, Level: "L1"},
	)
	return s, bus
}

func persistedRegister(id int, children ...interface{}) AnnualRegister {
	ar := AnnualRegister{
		ID:             null.IntFrom(id),
		NumCarte:       "CARD-1",
		AcademicYearID: 2024,
		AcademicYear:   &AcademicYear{ID: 2024, Name: "2024-2025"},
	}
	for _, child := range children {
		switch c := child.(type) {
		case Payment:
			ar.Payments = append(ar.Payments, c)
		case RegisterSemester:
			ar.RegisterSemesters = append(ar.RegisterSemesters, c)
		case Document:
			ar.Documents = append(ar.Documents, c)
		}
	}
	return ar
}
