package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
)

type client struct {
	db *DB
}

var _ register.Client = (*client)(nil) // interface compliance check

// NewClient returns a register.Client backed by db.
func NewClient(db *DB) register.Client {
	return &client{db: db}
}

// copyRegister returns a deep enough copy of ar for callers to modify freely.
func copyRegister(ar *register.AnnualRegister) register.AnnualRegister {
	out := *ar
	out.Payments = append([]register.Payment{}, ar.Payments...)
	out.RegisterSemesters = append([]register.RegisterSemester{}, ar.RegisterSemesters...)
	out.Documents = append([]register.Document{}, ar.Documents...)
	return out
}

func (c *client) ListAnnualRegisters(_ context.Context, filter register.ListFilter) ([]register.AnnualRegister, error) {
	c.db.RLock()
	defer c.db.RUnlock()

	registers := make([]register.AnnualRegister, 0)
	for _, ar := range c.db.registers {
		if filter.NumCarte != "" && ar.NumCarte != filter.NumCarte {
			continue
		}
		if filter.NumSelect != "" && ar.NumSelect != filter.NumSelect {
			continue
		}
		if filter.NumCarte == "" && filter.NumSelect == "" {
			continue
		}
		if filter.AcademicYearID > 0 && ar.AcademicYearID != filter.AcademicYearID {
			continue
		}
		registers = append(registers, copyRegister(ar))
	}
	sort.Slice(registers, func(i, j int) bool { return registers[i].ID.Int < registers[j].ID.Int })
	return registers, nil
}

func (c *client) CreateAnnualRegister(_ context.Context, nar register.NewAnnualRegister) (register.AnnualRegister, error) {
	c.db.Lock()
	defer c.db.Unlock()

	for _, ar := range c.db.registers {
		if ar.AcademicYearID != nar.AcademicYearID {
			continue
		}
		if (nar.NumCarte != "" && ar.NumCarte == nar.NumCarte) || (nar.NumSelect != "" && ar.NumSelect == nar.NumSelect) {
			return register.AnnualRegister{}, core.NewValidationError(errAlreadyRegistered)
		}
	}
	created := c.db.insert(register.AnnualRegister{
		NumCarte:       nar.NumCarte,
		NumSelect:      nar.NumSelect,
		AcademicYearID: nar.AcademicYearID,
	})
	return copyRegister(&created), nil
}

func (c *client) DeleteAnnualRegister(_ context.Context, id int) error {
	c.db.Lock()
	defer c.db.Unlock()

	if _, ok := c.db.registers[id]; !ok {
		return errors.Wrapf(register.ErrNotFound, "annual register %d", id)
	}
	delete(c.db.registers, id)
	return nil
}

// parent returns the annual register id. db must be locked.
func (c *client) parent(id int) (*register.AnnualRegister, error) {
	ar, ok := c.db.registers[id]
	if !ok {
		return nil, errors.Wrapf(register.ErrNotFound, "annual register %d", id)
	}
	return ar, nil
}

func (c *client) CreatePayment(_ context.Context, annualRegisterID int, p register.Payment) (register.Payment, error) {
	c.db.Lock()
	defer c.db.Unlock()

	ar, err := c.parent(annualRegisterID)
	if err != nil {
		return register.Payment{}, err
	}
	p.ID.SetValid(c.db.nextPK())
	ar.Payments = append(ar.Payments, p)
	return p, nil
}

func (c *client) UpdatePayment(_ context.Context, annualRegisterID int, p register.Payment) (register.Payment, error) {
	c.db.Lock()
	defer c.db.Unlock()

	ar, err := c.parent(annualRegisterID)
	if err != nil {
		return register.Payment{}, err
	}
	for i := range ar.Payments {
		if ar.Payments[i].ID == p.ID {
			ar.Payments[i] = p
			return p, nil
		}
	}
	return register.Payment{}, errors.Wrapf(register.ErrNotFound, "payment %d", p.ID.Int)
}

func (c *client) DeletePayment(_ context.Context, id int) error {
	c.db.Lock()
	defer c.db.Unlock()

	for _, ar := range c.db.registers {
		for i := range ar.Payments {
			if ar.Payments[i].ID.Int == id {
				ar.Payments = append(ar.Payments[:i:i], ar.Payments[i+1:]...)
				return nil
			}
		}
	}
	return errors.Wrapf(register.ErrNotFound, "payment %d", id)
}

func (c *client) CreateRegisterSemester(_ context.Context, annualRegisterID int, rs register.RegisterSemester) (register.RegisterSemester, error) {
	c.db.Lock()
	defer c.db.Unlock()

	ar, err := c.parent(annualRegisterID)
	if err != nil {
		return register.RegisterSemester{}, err
	}
	if err = checkJourneyUnique(ar.RegisterSemesters, rs); err != nil {
		return register.RegisterSemester{}, err
	}
	rs.ID.SetValid(c.db.nextPK())
	rs.Journey = c.journey(rs.JourneyID)
	ar.RegisterSemesters = append(ar.RegisterSemesters, rs)
	return rs, nil
}

func (c *client) UpdateRegisterSemester(_ context.Context, annualRegisterID int, rs register.RegisterSemester) (register.RegisterSemester, error) {
	c.db.Lock()
	defer c.db.Unlock()

	ar, err := c.parent(annualRegisterID)
	if err != nil {
		return register.RegisterSemester{}, err
	}
	if err = checkJourneyUnique(ar.RegisterSemesters, rs); err != nil {
		return register.RegisterSemester{}, err
	}
	for i := range ar.RegisterSemesters {
		if ar.RegisterSemesters[i].ID == rs.ID {
			rs.Journey = c.journey(rs.JourneyID)
			ar.RegisterSemesters[i] = rs
			return rs, nil
		}
	}
	return register.RegisterSemester{}, errors.Wrapf(register.ErrNotFound, "semester registration %d", rs.ID.Int)
}

func (c *client) DeleteRegisterSemester(_ context.Context, id int) error {
	c.db.Lock()
	defer c.db.Unlock()

	for _, ar := range c.db.registers {
		for i := range ar.RegisterSemesters {
			if ar.RegisterSemesters[i].ID.Int == id {
				ar.RegisterSemesters = append(ar.RegisterSemesters[:i:i], ar.RegisterSemesters[i+1:]...)
				return nil
			}
		}
	}
	return errors.Wrapf(register.ErrNotFound, "semester registration %d", id)
}

func checkJourneyUnique(existing []register.RegisterSemester, rs register.RegisterSemester) error {
	for _, other := range existing {
		if other.JourneyID == rs.JourneyID && other.ID != rs.ID {
			return core.NewValidationError(register.ErrDuplicateJourney)
		}
	}
	return nil
}

// journey returns a copy of the journey id. db must be locked.
func (c *client) journey(id int) *register.Journey {
	for i := range c.db.journeys {
		if c.db.journeys[i].ID == id {
			j := c.db.journeys[i]
			return &j
		}
	}
	return nil
}

func (c *client) UploadDocument(_ context.Context, annualRegisterID int, up register.DocumentUpload) (register.Document, error) {
	c.db.Lock()
	defer c.db.Unlock()

	ar, err := c.parent(annualRegisterID)
	if err != nil {
		return register.Document{}, err
	}
	if len(up.Content) == 0 {
		return register.Document{}, core.NewValidationError(register.ErrEmptyUpload)
	}
	doc := register.Document{
		ID:                 c.db.nextPK(),
		RequiredDocumentID: up.RequiredDocumentID,
		Name:               up.Filename,
		Description:        up.Description,
	}
	doc.URL = documentURL(doc)
	ar.Documents = append(ar.Documents, doc)
	return doc, nil
}

func (c *client) DeleteDocument(_ context.Context, id int) error {
	c.db.Lock()
	defer c.db.Unlock()

	for _, ar := range c.db.registers {
		for i := range ar.Documents {
			if ar.Documents[i].ID == id {
				ar.Documents = append(ar.Documents[:i:i], ar.Documents[i+1:]...)
				return nil
			}
		}
	}
	return errors.Wrapf(register.ErrNotFound, "document %d", id)
}
