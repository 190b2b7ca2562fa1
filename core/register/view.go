package register

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// MergeAnnualWithDrafts returns ar with its children replaced by the drafts filed under the
// register at index. Before Initialize, ar is returned as fetched.
func (s *Store) MergeAnnualWithDrafts(ar AnnualRegister, index int) AnnualRegister {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merge(ar, index)
}

// s.mu must be held.
func (s *Store) merge(ar AnnualRegister, index int) AnnualRegister {
	if !s.initialized || index < 0 || index >= len(s.parents) {
		return ar
	}
	key := s.keyAt(index)
	ar.Payments = s.payments.snapshot(key)
	ar.RegisterSemesters = s.registrations.snapshot(key)
	docs := make([]Document, len(s.documents[key]))
	copy(docs, s.documents[key])
	ar.Documents = docs
	return ar
}

// Registers returns the merged view of every annual register, or the fetched list as is
// while the store is not initialized.
func (s *Store) Registers() []AnnualRegister {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		out := make([]AnnualRegister, len(s.raw))
		copy(out, s.raw)
		return out
	}
	out := make([]AnnualRegister, 0, len(s.parents))
	for i, p := range s.parents {
		out = append(out, s.merge(p.record, i))
	}
	return out
}

// PendingChanges renders the unsaved edits of one collection of the register at parentIndex
// as a unified diff, saved on the left and draft on the right. It is empty when nothing changed.
func (s *Store) PendingChanges(kind ChildKind, parentIndex int) (string, error) {
	s.mu.Lock()
	if _, err := s.parentAt(parentIndex); err != nil {
		s.mu.Unlock()
		return "", err
	}
	key := s.keyAt(parentIndex)

	var saved, draft interface{}
	switch kind {
	case KindPayment:
		saved, draft = s.payments.savedSnapshot(key), s.payments.snapshot(key)
	case KindRegistration:
		saved, draft = s.registrations.savedSnapshot(key), s.registrations.snapshot(key)
	default:
		s.mu.Unlock()
		return "", errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	s.mu.Unlock()

	a, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding saved entries")
	}
	b, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding draft entries")
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: "saved",
		ToFile:   "draft",
		Context:  2,
	})
}
