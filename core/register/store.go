package register

import (
	"context"
	"fmt"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
)

const genericErrorMessage = "An error occurred, please try again."

type (
	// Options describe the student the store is editing for.
	Options struct {
		MentionID         int    // journeys lookup & enrollment fee
		Level             string // enrollment fee
		ErrorDisplayDelay time.Duration
	}

	Deps struct {
		Client     Client
		Bus        core.MessageBus // optional
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
	}

	// ParentState is the read model of one annual register of the draft list.
	ParentState struct {
		Index     int            `json:"index"`
		Key       string         `json:"key"`
		Record    AnnualRegister `json:"record"`
		IsEditing bool           `json:"is_editing"`
		IsNew     bool           `json:"is_new"`
		Saving    bool           `json:"saving"`
	}

	parent struct {
		record    AnnualRegister // children live in the store's collections
		isEditing bool
		isNew     bool
		busy      bool // a mutating request is in flight
	}

	event struct {
		topic   string
		payload interface{}
	}
)

// Store reconciles the annual registers of one student, and their payments, semester
// registrations and documents, between what the server last confirmed (saved) and what
// is being edited (draft).
//
// Store is safe for concurrent use. Its lock is never held during a Client call, so
// requests on different annual registers may be in flight together; a second mutating
// request on the same annual register fails with ErrRequestInFlight.
type Store struct {
	client     Client
	bus        core.MessageBus
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	opts       Options

	saveErr *banner
	docErr  *banner

	mu            sync.Mutex
	raw           []AnnualRegister
	initialized   bool
	parents       []*parent
	payments      childSet[Payment]
	registrations childSet[RegisterSemester]
	documents     map[AnnualKey][]Document
	journeys      []Journey
	hasJourneys   bool
}

func NewStore(deps Deps, opts Options) *Store {
	return &Store{
		client:        deps.Client,
		bus:           deps.Bus,
		logger:        deps.Logger,
		validate:      deps.Validate,
		translator:    deps.Translator,
		opts:          opts,
		saveErr:       newBanner(opts.ErrorDisplayDelay),
		docErr:        newBanner(opts.ErrorDisplayDelay),
		payments:      newChildSet[Payment](),
		registrations: newChildSet[RegisterSemester](),
		documents:     make(map[AnnualKey][]Document),
	}
}

// Close stops the pending error timers.
func (s *Store) Close() {
	s.saveErr.stop()
	s.docErr.stop()
}

// Initialize replaces the whole state with the registers fetched from the server.
func (s *Store) Initialize(registers []AnnualRegister) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.raw = make([]AnnualRegister, len(registers))
	copy(s.raw, registers)

	s.parents = make([]*parent, 0, len(registers))
	s.payments = newChildSet[Payment]()
	s.registrations = newChildSet[RegisterSemester]()
	s.documents = make(map[AnnualKey][]Document, len(registers))

	for i, ar := range registers {
		s.parents = append(s.parents, &parent{record: ar.withoutChildren()})
		key := keyFor(ar.ID, i)
		s.payments.seed(key, ar.Payments)
		s.registrations.seed(key, ar.RegisterSemesters)
		docs := make([]Document, len(ar.Documents))
		copy(docs, ar.Documents)
		s.documents[key] = docs
	}
	s.initialized = true
}

// Load fetches the registers matching filter then initializes the store with them.
func (s *Store) Load(ctx context.Context, filter ListFilter) error {
	registers, err := s.client.ListAnnualRegisters(ctx, filter)
	if err != nil {
		return s.fail(s.saveErr, "load", "", errors.Wrap(err, "listing annual registers"))
	}
	s.Initialize(registers)
	return nil
}

// AddParent creates the annual register of identifier for academicYearID.
// The register is listed as a draft while the create call is in flight; children added to it
// meanwhile move from its draft key to its persisted key once the server returns its id.
// It returns the position of the new register.
func (s *Store) AddParent(ctx context.Context, identifier StudentIdentifier, academicYearID int) (int, error) {
	identifier = identifier.Clean()
	if identifier.IsEmpty() {
		return -1, s.fail(s.saveErr, "add_parent", "", core.NewValidationError(ErrMissingIdentifier))
	}
	if academicYearID <= 0 {
		return -1, s.fail(s.saveErr, "add_parent", "", core.NewValidationError(ErrMissingAcademicYear))
	}

	p := &parent{
		record: AnnualRegister{
			NumCarte:       identifier.NumCarte,
			NumSelect:      identifier.NumSelect,
			AcademicYearID: academicYearID,
		},
		isEditing: true,
		isNew:     true,
		busy:      true,
	}
	s.mu.Lock()
	s.parents = append(s.parents, p)
	draftKey := DraftKey(len(s.parents) - 1)
	s.payments.seed(draftKey, nil)
	s.registrations.seed(draftKey, nil)
	s.documents[draftKey] = []Document{}
	s.mu.Unlock()

	created, err := s.client.CreateAnnualRegister(ctx, NewAnnualRegister{StudentIdentifier: identifier, AcademicYearID: academicYearID})
	if err == nil && !created.ID.Valid {
		err = errors.New("annual register created without id")
	}
	if err != nil {
		s.mu.Lock()
		if idx := s.indexOf(p); idx >= 0 {
			s.removeParentAt(idx)
		}
		s.mu.Unlock()
		return -1, s.fail(s.saveErr, "add_parent", draftKey.String(), errors.Wrap(err, "creating annual register"))
	}

	fee, hasFee := s.enrollmentFee(ctx, academicYearID)

	s.mu.Lock()
	idx := s.indexOf(p)
	if idx < 0 {
		s.mu.Unlock()
		s.logger.Info(fmt.Sprintf("annual register %d created for a discarded draft", created.ID.Int))
		return -1, nil
	}
	from, to := DraftKey(idx), PersistedKey(created.ID.Int)
	s.payments.move(from, to)
	s.registrations.move(from, to)
	s.documents[to] = s.documents[from]
	delete(s.documents, from)

	p.record = created.withoutChildren()
	p.busy = false
	if hasFee && s.payments.isEmpty(to) {
		pi := s.payments.add(to)
		_ = s.payments.update(to, pi, func(pmt *Payment) error {
			pmt.Payed = fee.Price
			pmt.Description = fee.Description
			return nil
		})
	}
	s.mu.Unlock()

	s.publish(event{TopicParentAdded, ParentEvent{Key: to, AcademicYearID: academicYearID}})
	return idx, nil
}

// enrollmentFee looks up the fee a new register starts with. Lookup failures only skip the default payment.
func (s *Store) enrollmentFee(ctx context.Context, academicYearID int) (EnrollmentFee, bool) {
	fee, err := s.client.EnrollmentFee(ctx, FeeQuery{AcademicYearID: academicYearID, MentionID: s.opts.MentionID, Level: s.opts.Level})
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			s.logger.Warn("looking up enrollment fee", errors.Wrap(err, "looking up enrollment fee"))
		}
		return EnrollmentFee{}, false
	}
	return fee, fee.Price.IsPositive()
}

// DeleteParent deletes the register at index with all its children.
// Registers that were never saved are removed without calling the server.
func (s *Store) DeleteParent(ctx context.Context, index int) error {
	s.mu.Lock()
	p, err := s.parentAt(index)
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "delete_parent", "", err)
	}
	key := s.keyAt(index)
	if p.busy {
		s.mu.Unlock()
		return s.fail(s.saveErr, "delete_parent", key.String(), ErrRequestInFlight)
	}
	if !p.record.ID.Valid {
		s.removeParentAt(index)
		s.mu.Unlock()
		s.publish(event{TopicParentDeleted, ParentEvent{Key: key, AcademicYearID: p.record.AcademicYearID}})
		return nil
	}
	p.busy = true
	id, yearID := p.record.ID.Int, p.record.AcademicYearID
	s.mu.Unlock()

	err = s.client.DeleteAnnualRegister(ctx, id)

	s.mu.Lock()
	p.busy = false
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "delete_parent", key.String(), errors.Wrap(err, "deleting annual register"))
	}
	if idx := s.indexOf(p); idx >= 0 {
		s.removeParentAt(idx)
	}
	s.mu.Unlock()

	s.publish(event{TopicParentDeleted, ParentEvent{Key: key, AcademicYearID: yearID}})
	return nil
}

// removeParentAt drops the parent at idx and its children, then files the children of the
// following draft parents under their new positions. s.mu must be held.
func (s *Store) removeParentAt(idx int) {
	key := s.keyAt(idx)
	s.payments.drop(key)
	s.registrations.drop(key)
	delete(s.documents, key)

	s.parents = append(s.parents[:idx:idx], s.parents[idx+1:]...)
	for i := idx; i < len(s.parents); i++ {
		if s.parents[i].record.ID.Valid {
			continue
		}
		from, to := DraftKey(i+1), DraftKey(i)
		s.payments.move(from, to)
		s.registrations.move(from, to)
		if docs, ok := s.documents[from]; ok {
			s.documents[to] = docs
			delete(s.documents, from)
		}
	}
}

// s.mu must be held.
func (s *Store) parentAt(index int) (*parent, error) {
	if index < 0 || index >= len(s.parents) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "annual register %d", index)
	}
	return s.parents[index], nil
}

// s.mu must be held.
func (s *Store) keyAt(index int) AnnualKey {
	return keyFor(s.parents[index].record.ID, index)
}

// s.mu must be held.
func (s *Store) keys() []AnnualKey {
	keys := make([]AnnualKey, 0, len(s.parents))
	for i := range s.parents {
		keys = append(keys, s.keyAt(i))
	}
	return keys
}

// indexOf returns the current position of p, -1 once it left the list. s.mu must be held.
func (s *Store) indexOf(p *parent) int {
	for i, pp := range s.parents {
		if pp == p {
			return i
		}
	}
	return -1
}

// fail surfaces err on b and returns it.
func (s *Store) fail(b *banner, op, key string, err error) error {
	msg := s.message(err)
	b.set(msg)

	if core.IsValidationError(err) || isClientSide(err) {
		s.logger.Debug(fmt.Sprintf("register.%s: %s", op, msg))
	} else {
		s.logger.Error(fmt.Sprintf("register.%s failed", op), err, core.Fields{"key": key})
	}
	s.publish(event{TopicError, ErrorEvent{Op: op, Key: key, Message: msg, Err: err}})
	return err
}

func isClientSide(err error) bool {
	switch errors.Cause(err) {
	case ErrRequestInFlight, ErrIndexOutOfRange, ErrUnknownKind, ErrUnknownField, ErrNoParent, ErrEmptyUpload:
		return true
	}
	return false
}

// message turns err into the text shown to the user.
func (s *Store) message(err error) string {
	switch cause := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		if len(cause) > 0 {
			return cause[0].Translate(s.translator)
		}
	case *core.ValidationError:
		if len(cause.Fields) > 0 {
			return cause.Fields[0].Error
		}
		if msg := cause.Error(); msg != "" {
			return msg
		}
	case interface{ UserMessage() string }:
		if msg := cause.UserMessage(); msg != "" {
			return msg
		}
	case error:
		if msg := cause.Error(); msg != "" {
			return msg
		}
	}
	return genericErrorMessage
}

func (s *Store) publish(events ...event) {
	if s.bus == nil {
		return
	}
	for _, e := range events {
		s.bus.Publish(e.topic, e.payload)
	}
}

// SaveError returns the message of the last failed operation, empty once it expired.
func (s *Store) SaveError() string { return s.saveErr.get() }

// DocumentUploadError is SaveError for document uploads and deletions.
func (s *Store) DocumentUploadError() string { return s.docErr.get() }

// Parents returns the draft list of annual registers.
func (s *Store) Parents() []ParentState {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]ParentState, 0, len(s.parents))
	for i, p := range s.parents {
		states = append(states, ParentState{
			Index:     i,
			Key:       s.keyAt(i).String(),
			Record:    p.record,
			IsEditing: p.isEditing,
			IsNew:     p.isNew,
			Saving:    p.busy,
		})
	}
	return states
}

// SavingIndexes returns the positions of the registers with a request in flight.
func (s *Store) SavingIndexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexes := make([]int, 0)
	for i, p := range s.parents {
		if p.busy {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// Journeys returns the journeys of the store's mention, fetched once.
func (s *Store) Journeys(ctx context.Context) ([]Journey, error) {
	s.mu.Lock()
	if s.hasJourneys {
		journeys := s.journeys
		s.mu.Unlock()
		return journeys, nil
	}
	s.mu.Unlock()

	if s.opts.MentionID == 0 {
		return []Journey{}, nil
	}
	journeys, err := s.client.JourneysByMention(ctx, s.opts.MentionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing journeys")
	}

	s.mu.Lock()
	s.journeys = journeys
	s.hasJourneys = true
	s.mu.Unlock()
	return journeys, nil
}
