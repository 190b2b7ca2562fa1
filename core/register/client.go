package register

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound            = errors.New("not found")
	ErrUnknownKind         = errors.New("unknown kind")
	ErrUnknownField        = errors.New("unknown field")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrNoParent            = errors.New("no annual register to add to")
	ErrRequestInFlight     = errors.New("a request is already in progress for this annual register")
	ErrMissingIdentifier   = errors.New("a card number or a selection number is required")
	ErrMissingAcademicYear = errors.New("an academic year is required")
	ErrParentNotPersisted  = errors.New("the annual register must be saved first")
	ErrDuplicateJourney    = errors.New("this journey is already registered for this annual register")
	ErrInvalidSemester     = errors.New("this semester does not belong to the selected journey")
	ErrUnknownJourney      = errors.New("unknown journey")
	ErrEmptyUpload         = errors.New("the uploaded file is empty")
)

// Client is the REST backend as seen by the Store.
// Every method is a single network call that fails on any non-2xx response.
type Client interface {
	ListAnnualRegisters(ctx context.Context, filter ListFilter) ([]AnnualRegister, error)
	CreateAnnualRegister(ctx context.Context, nar NewAnnualRegister) (AnnualRegister, error)
	DeleteAnnualRegister(ctx context.Context, id int) error

	CreatePayment(ctx context.Context, annualRegisterID int, p Payment) (Payment, error)
	UpdatePayment(ctx context.Context, annualRegisterID int, p Payment) (Payment, error)
	DeletePayment(ctx context.Context, id int) error

	CreateRegisterSemester(ctx context.Context, annualRegisterID int, rs RegisterSemester) (RegisterSemester, error)
	UpdateRegisterSemester(ctx context.Context, annualRegisterID int, rs RegisterSemester) (RegisterSemester, error)
	DeleteRegisterSemester(ctx context.Context, id int) error

	UploadDocument(ctx context.Context, annualRegisterID int, up DocumentUpload) (Document, error)
	DeleteDocument(ctx context.Context, id int) error

	JourneysByMention(ctx context.Context, mentionID int) ([]Journey, error)
	// EnrollmentFee returns ErrNotFound when no fee applies.
	EnrollmentFee(ctx context.Context, q FeeQuery) (EnrollmentFee, error)
	RequiredDocuments(ctx context.Context, q RequiredDocumentQuery) ([]RequiredDocument, error)
}
