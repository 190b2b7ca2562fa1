package inmemdb

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/trezcool/registrar/core/register"
)

type (
	// DB is an in-memory registrar backend. Annual registers own their children.
	DB struct {
		sync.RWMutex
		pkCount int

		registers map[int]*register.AnnualRegister
		journeys  []register.Journey
		fees      []register.EnrollmentFee
		required  []register.RequiredDocument
	}

	// Fixtures are the lookup tables of the backend.
	Fixtures struct {
		Journeys          []register.Journey
		EnrollmentFees    []register.EnrollmentFee
		RequiredDocuments []register.RequiredDocument
		AnnualRegisters   []register.AnnualRegister
	}
)

func Open(fixtures Fixtures) *DB {
	db := &DB{
		registers: make(map[int]*register.AnnualRegister),
		journeys:  fixtures.Journeys,
		fees:      fixtures.EnrollmentFees,
		required:  fixtures.RequiredDocuments,
	}
	for _, ar := range fixtures.AnnualRegisters {
		db.insert(ar)
	}
	return db
}

func (db *DB) nextPK() int {
	db.pkCount++
	return db.pkCount
}

// insert stores ar and its children with fresh ids. db must be locked.
func (db *DB) insert(ar register.AnnualRegister) register.AnnualRegister {
	ar.ID.SetValid(db.nextPK())
	ar.Payments = append([]register.Payment{}, ar.Payments...)
	ar.RegisterSemesters = append([]register.RegisterSemester{}, ar.RegisterSemesters...)
	ar.Documents = append([]register.Document{}, ar.Documents...)
	for i := range ar.Payments {
		ar.Payments[i].ID.SetValid(db.nextPK())
	}
	for i := range ar.RegisterSemesters {
		ar.RegisterSemesters[i].ID.SetValid(db.nextPK())
	}
	for i := range ar.Documents {
		ar.Documents[i].ID = db.nextPK()
	}
	db.registers[ar.ID.Int] = &ar
	return ar
}

// DemoFixtures is the data the demo server starts with.
func DemoFixtures() Fixtures {
	return Fixtures{
		Journeys: []register.Journey{
			{ID: 1, Name: "Software Engineering", Abbreviation: "SE", MentionID: 1, Semesters: []string{"S1", "S2", "S3", "S4"}},
			{ID: 2, Name: "Networks and Telecommunications", Abbreviation: "NET", MentionID: 1, Semesters: []string{"S1", "S2", "S3", "S4"}},
			{ID: 3, Name: "Data Science", Abbreviation: "DS", MentionID: 1, Semesters: []string{"S5", "S6"}},
		},
		EnrollmentFees: []register.EnrollmentFee{
			{ID: 1, AcademicYearID: 2024, MentionID: 1, Level: "L1", Description: "Enrollment fee L1", Price: decimal.NewFromInt(50000)},
			{ID: 2, AcademicYearID: 2024, MentionID: 1, Level: "L2", Description: "Enrollment fee L2", Price: decimal.NewFromInt(65000)},
		},
		RequiredDocuments: []register.RequiredDocument{
			{ID: 1, Name: "Birth certificate", JourneyID: 1, AcademicYearID: 2024},
			{ID: 2, Name: "Baccalaureate diploma", JourneyID: 1, AcademicYearID: 2024},
			{ID: 3, Name: "Birth certificate", JourneyID: 2, AcademicYearID: 2024},
		},
		AnnualRegisters: []register.AnnualRegister{
			{NumCarte: "CARD-0001", AcademicYearID: 2023, AcademicYear: &register.AcademicYear{ID: 2023, Name: "2023-2024"}},
		},
	}
}
