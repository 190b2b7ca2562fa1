package register

import (
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registrar/core"
)

// ChildKind names a collection owned by an AnnualRegister.
type ChildKind string

const (
	KindPayment      ChildKind = "payment"
	KindRegistration ChildKind = "registration"
	KindDocument     ChildKind = "document"
)

func ParseChildKind(s string) (ChildKind, error) {
	switch k := ChildKind(core.CleanString(s, true /* lower */)); k {
	case KindPayment, KindRegistration, KindDocument:
		return k, nil
	}
	return "", ErrUnknownKind
}

// RepeatStatus tells whether the student takes the semester for the first time or repeats it.
type RepeatStatus string

const (
	RepeatStatusPassing  RepeatStatus = "PASSANT"
	RepeatStatusRepeat   RepeatStatus = "REDOUBLANT"
	RepeatStatusTripling RepeatStatus = "TRIPLANT"
)

var RepeatStatuses = []RepeatStatus{RepeatStatusPassing, RepeatStatusRepeat, RepeatStatusTripling}

type AcademicYear struct {
	ID   int    `json:"id"`
	Name string `json:"name"` // e.g. 2024-2025
}

type Journey struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Abbreviation string   `json:"abbreviation"`
	MentionID    int      `json:"id_mention"`
	Semesters    []string `json:"semester_list"`
}

type Payment struct {
	ID          null.Int        `json:"id"`
	NumReceipt  string          `json:"num_receipt" validate:"required,notblank"`
	DateReceipt string          `json:"date_receipt" validate:"required"`
	Payed       decimal.Decimal `json:"payed" validate:"positive"`
	Description string          `json:"description"`
}

func (p Payment) identity() null.Int { return p.ID }

type RegisterSemester struct {
	ID           null.Int     `json:"id"`
	Semester     string       `json:"semester" validate:"required"`
	RepeatStatus RepeatStatus `json:"repeat_status" validate:"required,repeatstatus"`
	JourneyID    int          `json:"id_journey" validate:"required"`
	Journey      *Journey     `json:"journey,omitempty"`
}

func (rs RegisterSemester) identity() null.Int { return rs.ID }

type Document struct {
	ID                 int    `json:"id"`
	RequiredDocumentID int    `json:"id_required_document"`
	Name               string `json:"name"`
	URL                string `json:"url"`
	Description        string `json:"description"`
}

type AnnualRegister struct {
	ID                null.Int           `json:"id"`
	NumCarte          string             `json:"num_carte,omitempty"`
	NumSelect         string             `json:"num_select,omitempty"`
	AcademicYearID    int                `json:"id_academic_year"`
	AcademicYear      *AcademicYear      `json:"academic_year,omitempty"`
	Payments          []Payment          `json:"payment"`
	RegisterSemesters []RegisterSemester `json:"register_semester"`
	Documents         []Document         `json:"document"`
}

func (ar AnnualRegister) Identifier() StudentIdentifier {
	return StudentIdentifier{NumCarte: ar.NumCarte, NumSelect: ar.NumSelect}
}

// withoutChildren returns a copy of the parent record alone.
func (ar AnnualRegister) withoutChildren() AnnualRegister {
	ar.Payments = nil
	ar.RegisterSemesters = nil
	ar.Documents = nil
	return ar
}

// StudentIdentifier is either a card number (re-registration) or a selection number (first enrolment).
type StudentIdentifier struct {
	NumCarte  string `json:"num_carte,omitempty"`
	NumSelect string `json:"num_select,omitempty"`
}

func (si StudentIdentifier) Clean() StudentIdentifier {
	return StudentIdentifier{
		NumCarte:  core.CleanString(si.NumCarte),
		NumSelect: core.CleanString(si.NumSelect),
	}
}

func (si StudentIdentifier) IsEmpty() bool {
	si = si.Clean()
	return si.NumCarte == "" && si.NumSelect == ""
}

// NewAnnualRegister contains information needed to create an AnnualRegister.
type NewAnnualRegister struct {
	StudentIdentifier
	AcademicYearID int `json:"id_academic_year"`
}

// ListFilter selects the annual registers of one student.
type ListFilter struct {
	StudentIdentifier
	AcademicYearID int
}

type EnrollmentFee struct {
	ID             int             `json:"id"`
	AcademicYearID int             `json:"id_academic_year"`
	MentionID      int             `json:"id_mention"`
	Level          string          `json:"level"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
}

type FeeQuery struct {
	AcademicYearID int
	MentionID      int
	Level          string
}

type RequiredDocument struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	JourneyID      int    `json:"id_journey"`
	AcademicYearID int    `json:"id_academic_year"`
}

type RequiredDocumentQuery struct {
	AcademicYearID int
	JourneyIDs     []int
}

// DocumentUpload is a file sent along with its required-document reference.
type DocumentUpload struct {
	RequiredDocumentID int
	Filename           string
	Content            []byte
	Description        string
}

// DocumentCompleteness compares the uploaded documents of a register to the required ones.
type DocumentCompleteness struct {
	Complete bool               `json:"complete"`
	Provided []RequiredDocument `json:"provided"`
	Missing  []RequiredDocument `json:"missing"`
}
