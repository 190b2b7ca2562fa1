package register

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registrar/core"
)

// collection is the kind-agnostic part of a childSet.
type collection interface {
	isEmpty(key AnnualKey) bool
	len(key AnnualKey) int
	add(key AnnualKey) int
	cancel(key AnnualKey, idx int)
	remove(key AnnualKey, idx int)
	editingIndex(key AnnualKey) (int, bool)
	idAt(key AnnualKey, idx int) (null.Int, bool)
	indexOfID(key AnnualKey, id int) int
}

func (cs *childSet[T]) idAt(key AnnualKey, idx int) (null.Int, bool) {
	item, ok := cs.at(key, idx)
	if !ok {
		return null.Int{}, false
	}
	return item.identity(), true
}

func (cs *childSet[T]) indexOfID(key AnnualKey, id int) int {
	for i, item := range cs.draft[key] {
		if ident := item.identity(); ident.Valid && ident.Int == id {
			return i
		}
	}
	return -1
}

// s.mu must be held.
func (s *Store) collection(kind ChildKind) (collection, error) {
	switch kind {
	case KindPayment:
		return &s.payments, nil
	case KindRegistration:
		return &s.registrations, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
}

// AddChild appends an empty draft of kind to the register picked by PickTarget and opens it for edition.
// Documents are uploaded, not drafted.
func (s *Store) AddChild(kind ChildKind) (parentIndex, childIndex int, err error) {
	s.mu.Lock()
	coll, err := s.collection(kind)
	if err != nil {
		s.mu.Unlock()
		return -1, -1, s.fail(s.saveErr, "add_child", "", err)
	}
	keys := s.keys()
	key, ok := PickTarget(keys, coll.isEmpty)
	if !ok {
		s.mu.Unlock()
		return -1, -1, s.fail(s.saveErr, "add_child", "", ErrNoParent)
	}
	target := 0
	for i, k := range keys {
		if k == key {
			target = i
			break
		}
	}
	childIndex = coll.add(key)
	s.parents[target].isEditing = true
	s.mu.Unlock()
	return target, childIndex, nil
}

// UpdateChildField sets field of the draft at (parentIndex, childIndex) to value.
// The saved snapshot is left untouched.
func (s *Store) UpdateChildField(kind ChildKind, parentIndex, childIndex int, field, value string) error {
	s.mu.Lock()
	if _, err := s.parentAt(parentIndex); err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "update_child", "", err)
	}
	if childIndex < 0 {
		s.mu.Unlock()
		return s.fail(s.saveErr, "update_child", "", errors.Wrapf(ErrIndexOutOfRange, "%s %d", kind, childIndex))
	}
	key := s.keyAt(parentIndex)

	var err error
	switch kind {
	case KindPayment:
		err = s.payments.update(key, childIndex, func(p *Payment) error { return p.setField(field, value) })
	case KindRegistration:
		err = s.registrations.update(key, childIndex, func(rs *RegisterSemester) error { return rs.setField(field, value) })
	default:
		err = errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	s.mu.Unlock()

	if err != nil {
		return s.fail(s.saveErr, "update_child", key.String(), err)
	}
	return nil
}

// CancelChildEdit reverts the draft at (parentIndex, childIndex) to its saved counterpart,
// or drops it when it was never saved.
// Dropping shifts the indexes of the following entries, so it is refused while a request
// of the register is in flight.
func (s *Store) CancelChildEdit(kind ChildKind, parentIndex, childIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.parentAt(parentIndex)
	if err != nil {
		return err
	}
	coll, err := s.collection(kind)
	if err != nil {
		return err
	}
	key := s.keyAt(parentIndex)
	if p.busy {
		return errors.Wrapf(ErrRequestInFlight, "annual register %s", key)
	}
	if childIndex < 0 || childIndex >= coll.len(key) {
		return errors.Wrapf(ErrIndexOutOfRange, "%s %d", kind, childIndex)
	}
	coll.cancel(key, childIndex)
	return nil
}

// DeleteChild deletes the entry at (parentIndex, childIndex). Entries that were never saved
// are removed without calling the server.
func (s *Store) DeleteChild(ctx context.Context, kind ChildKind, parentIndex, childIndex int) error {
	s.mu.Lock()
	p, err := s.parentAt(parentIndex)
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "delete_child", "", err)
	}
	key := s.keyAt(parentIndex)
	coll, err := s.collection(kind)
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "delete_child", key.String(), err)
	}
	if p.busy {
		s.mu.Unlock()
		return s.fail(s.saveErr, "delete_child", key.String(), ErrRequestInFlight)
	}
	id, ok := coll.idAt(key, childIndex)
	if !ok {
		s.mu.Unlock()
		return s.fail(s.saveErr, "delete_child", key.String(), errors.Wrapf(ErrIndexOutOfRange, "%s %d", kind, childIndex))
	}
	if !id.Valid {
		coll.remove(key, childIndex)
		s.mu.Unlock()
		s.publish(event{TopicChildDeleted, ChildEvent{Key: key, Kind: kind, Index: childIndex}})
		return nil
	}
	p.busy = true
	s.mu.Unlock()

	switch kind {
	case KindPayment:
		err = s.client.DeletePayment(ctx, id.Int)
	case KindRegistration:
		err = s.client.DeleteRegisterSemester(ctx, id.Int)
	}

	s.mu.Lock()
	p.busy = false
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "delete_child", key.String(), errors.Wrapf(err, "deleting %s %d", kind, id.Int))
	}
	if s.indexOf(p) >= 0 {
		if idx := coll.indexOfID(key, id.Int); idx >= 0 {
			coll.remove(key, idx)
		}
	}
	s.mu.Unlock()

	s.publish(event{TopicChildDeleted, ChildEvent{Key: key, Kind: kind, Index: childIndex, ID: id.Int}})
	return nil
}

// SaveChild validates the draft at (parentIndex, childIndex) then creates or updates it.
// The server version replaces both the draft and the saved entry and closes the edition.
func (s *Store) SaveChild(ctx context.Context, kind ChildKind, parentIndex, childIndex int) error {
	switch kind {
	case KindPayment:
		return s.savePayment(ctx, parentIndex, childIndex)
	case KindRegistration:
		return s.saveRegistration(ctx, parentIndex, childIndex)
	}
	return s.fail(s.saveErr, "save_child", "", errors.Wrapf(ErrUnknownKind, "%q", kind))
}

// beginSave checks that the register at parentIndex accepts a save and marks it busy.
// s.mu must be held.
func (s *Store) beginSave(parentIndex int) (*parent, AnnualKey, error) {
	p, err := s.parentAt(parentIndex)
	if err != nil {
		return nil, AnnualKey{}, err
	}
	key := s.keyAt(parentIndex)
	if p.busy {
		return p, key, ErrRequestInFlight
	}
	if !p.record.ID.Valid {
		return p, key, core.NewValidationError(ErrParentNotPersisted)
	}
	return p, key, nil
}

// endSave releases p and tells whether it still belongs to the store. s.mu must be held.
func (s *Store) endSave(p *parent, saved bool) bool {
	p.busy = false
	if s.indexOf(p) < 0 {
		return false
	}
	if saved {
		p.isEditing = false
		p.isNew = false
	}
	return true
}

func (s *Store) savePayment(ctx context.Context, parentIndex, childIndex int) error {
	s.mu.Lock()
	p, key, err := s.beginSave(parentIndex)
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_payment", keyString(p, key), err)
	}
	pmt, ok := s.payments.at(key, childIndex)
	if !ok {
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_payment", key.String(), errors.Wrapf(ErrIndexOutOfRange, "payment %d", childIndex))
	}
	if err = pmt.Validate(s.validate); err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_payment", key.String(), err)
	}
	p.busy = true
	parentID := p.record.ID.Int
	s.mu.Unlock()

	var saved Payment
	if pmt.ID.Valid {
		saved, err = s.client.UpdatePayment(ctx, parentID, pmt)
	} else {
		saved, err = s.client.CreatePayment(ctx, parentID, pmt)
	}

	s.mu.Lock()
	if !s.endSave(p, err == nil) {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_payment", key.String(), errors.Wrap(err, "saving payment"))
	}
	idx := childIndex
	if pmt.ID.Valid {
		if i := s.payments.indexOfID(key, pmt.ID.Int); i >= 0 {
			idx = i
		}
	}
	s.payments.commit(key, idx, saved)
	s.mu.Unlock()

	s.publish(event{TopicChildSaved, ChildEvent{Key: key, Kind: KindPayment, Index: idx, ID: saved.ID.Int}})
	return nil
}

func (s *Store) saveRegistration(ctx context.Context, parentIndex, childIndex int) error {
	// checks that need no lookup come first
	s.mu.Lock()
	p, key, err := s.beginSave(parentIndex)
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_registration", keyString(p, key), err)
	}
	rs, ok := s.registrations.at(key, childIndex)
	if !ok {
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_registration", key.String(), errors.Wrapf(ErrIndexOutOfRange, "registration %d", childIndex))
	}
	siblings := s.registrations.snapshot(key)
	siblings = append(siblings[:childIndex:childIndex], siblings[childIndex+1:]...)
	if err = rs.Validate(s.validate, siblings); err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_registration", key.String(), err)
	}
	// the register stays busy during the journey lookup so that childIndex keeps pointing at rs
	p.busy = true
	parentID := p.record.ID.Int
	s.mu.Unlock()

	var journey *Journey
	journeys, err := s.Journeys(ctx)
	if err == nil {
		journey = findJourney(journeys, rs)
		err = rs.CheckSemester(journey)
	}
	if err != nil {
		s.mu.Lock()
		p.busy = false
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_registration", key.String(), err)
	}

	s.mu.Lock()
	if s.indexOf(p) < 0 {
		p.busy = false
		s.mu.Unlock()
		s.logger.Info(fmt.Sprintf("semester registration of the discarded annual register %s not sent", key))
		return nil
	}
	s.mu.Unlock()

	rs.Journey = nil
	var saved RegisterSemester
	if rs.ID.Valid {
		saved, err = s.client.UpdateRegisterSemester(ctx, parentID, rs)
	} else {
		saved, err = s.client.CreateRegisterSemester(ctx, parentID, rs)
	}

	s.mu.Lock()
	if !s.endSave(p, err == nil) {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.saveErr, "save_registration", key.String(), errors.Wrap(err, "saving semester registration"))
	}
	if saved.Journey == nil && saved.JourneyID == journey.ID {
		j := *journey
		saved.Journey = &j
	}
	idx := childIndex
	if rs.ID.Valid {
		if i := s.registrations.indexOfID(key, rs.ID.Int); i >= 0 {
			idx = i
		}
	}
	s.registrations.commit(key, idx, saved)
	s.mu.Unlock()

	s.publish(event{TopicChildSaved, ChildEvent{Key: key, Kind: KindRegistration, Index: idx, ID: saved.ID.Int}})
	return nil
}

// findJourney resolves the journey of rs among journeys, falling back to the journey it carries.
func findJourney(journeys []Journey, rs RegisterSemester) *Journey {
	for i := range journeys {
		if journeys[i].ID == rs.JourneyID {
			j := journeys[i]
			return &j
		}
	}
	if rs.Journey != nil && rs.Journey.ID == rs.JourneyID && rs.JourneyID != 0 {
		j := *rs.Journey
		return &j
	}
	return nil
}

func keyString(p *parent, key AnnualKey) string {
	if p == nil {
		return ""
	}
	return key.String()
}

// EditingIndex returns the index of the entry of kind being edited under the register at parentIndex.
func (s *Store) EditingIndex(kind ChildKind, parentIndex int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.parentAt(parentIndex); err != nil {
		return 0, false
	}
	coll, err := s.collection(kind)
	if err != nil {
		return 0, false
	}
	return coll.editingIndex(s.keyAt(parentIndex))
}
