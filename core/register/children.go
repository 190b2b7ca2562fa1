package register

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

type entity interface {
	Payment | RegisterSemester
	identity() null.Int
}

// childSet keeps the draft and saved snapshots of one kind of child, per annual key.
// saved[k][i] is the saved counterpart of draft[k][i]; nil when the draft was never saved.
// len(saved[k]) never exceeds len(draft[k]).
type childSet[T entity] struct {
	draft   map[AnnualKey][]T
	saved   map[AnnualKey][]*T
	editing map[AnnualKey]int // absent means no entry is being edited
}

func newChildSet[T entity]() childSet[T] {
	return childSet[T]{
		draft:   make(map[AnnualKey][]T),
		saved:   make(map[AnnualKey][]*T),
		editing: make(map[AnnualKey]int),
	}
}

func (cs *childSet[T]) seed(key AnnualKey, items []T) {
	draft := make([]T, len(items))
	copy(draft, items)
	saved := make([]*T, len(items))
	for i := range items {
		item := items[i]
		saved[i] = &item
	}
	cs.draft[key] = draft
	cs.saved[key] = saved
	delete(cs.editing, key)
}

func (cs *childSet[T]) drop(key AnnualKey) {
	delete(cs.draft, key)
	delete(cs.saved, key)
	delete(cs.editing, key)
}

// move files everything stored under from under to instead.
func (cs *childSet[T]) move(from, to AnnualKey) {
	if from == to {
		return
	}
	cs.drop(to)
	if d, ok := cs.draft[from]; ok {
		cs.draft[to] = d
	}
	if s, ok := cs.saved[from]; ok {
		cs.saved[to] = s
	}
	if e, ok := cs.editing[from]; ok {
		cs.editing[to] = e
	}
	cs.drop(from)
}

func (cs *childSet[T]) isEmpty(key AnnualKey) bool {
	return len(cs.draft[key]) == 0
}

func (cs *childSet[T]) len(key AnnualKey) int {
	return len(cs.draft[key])
}

// add appends an empty draft and makes it the one being edited.
func (cs *childSet[T]) add(key AnnualKey) int {
	var zero T
	cs.draft[key] = append(cs.draft[key], zero)
	idx := len(cs.draft[key]) - 1
	cs.editing[key] = idx
	return idx
}

// update applies fn to the draft at idx. An idx one past the end appends an empty draft first,
// so an edit racing the addition of its entry is not lost; anything further is out of range.
func (cs *childSet[T]) update(key AnnualKey, idx int, fn func(*T) error) error {
	draft := cs.draft[key]
	if idx < 0 || idx > len(draft) {
		return errors.Wrapf(ErrIndexOutOfRange, "entry %d", idx)
	}
	if idx == len(draft) {
		var zero T
		draft = append(draft, zero)
	}
	item := draft[idx]
	if err := fn(&item); err != nil {
		return err
	}
	draft[idx] = item
	cs.draft[key] = draft
	return nil
}

func (cs *childSet[T]) at(key AnnualKey, idx int) (T, bool) {
	draft := cs.draft[key]
	if idx < 0 || idx >= len(draft) {
		var zero T
		return zero, false
	}
	return draft[idx], true
}

func (cs *childSet[T]) savedAt(key AnnualKey, idx int) *T {
	saved := cs.saved[key]
	if idx < 0 || idx >= len(saved) {
		return nil
	}
	return saved[idx]
}

// cancel reverts the draft at idx to its saved counterpart, or removes it when it was never saved.
func (cs *childSet[T]) cancel(key AnnualKey, idx int) {
	if s := cs.savedAt(key, idx); s != nil {
		cs.draft[key][idx] = *s
		delete(cs.editing, key)
		return
	}
	cs.remove(key, idx)
	delete(cs.editing, key)
}

// remove deletes the entry at idx from both snapshots and shifts the editing index accordingly.
func (cs *childSet[T]) remove(key AnnualKey, idx int) {
	draft := cs.draft[key]
	if idx < 0 || idx >= len(draft) {
		return
	}
	cs.draft[key] = append(draft[:idx:idx], draft[idx+1:]...)

	if saved := cs.saved[key]; idx < len(saved) {
		cs.saved[key] = append(saved[:idx:idx], saved[idx+1:]...)
	}

	if editing, ok := cs.editing[key]; ok {
		switch {
		case editing == idx:
			delete(cs.editing, key)
		case editing > idx:
			cs.editing[key] = editing - 1
		}
	}
}

// commit stores the server version of the entry at idx in both snapshots.
func (cs *childSet[T]) commit(key AnnualKey, idx int, item T) {
	_ = cs.update(key, idx, func(t *T) error {
		*t = item
		return nil
	})
	saved := cs.saved[key]
	for len(saved) <= idx {
		saved = append(saved, nil)
	}
	committed := item
	saved[idx] = &committed
	cs.saved[key] = saved
	delete(cs.editing, key)
}

func (cs *childSet[T]) editingIndex(key AnnualKey) (int, bool) {
	idx, ok := cs.editing[key]
	return idx, ok
}

// snapshot returns a copy of the drafts, never nil.
func (cs *childSet[T]) snapshot(key AnnualKey) []T {
	items := make([]T, len(cs.draft[key]))
	copy(items, cs.draft[key])
	return items
}

// savedSnapshot returns a copy of the saved entries, skipping the never saved ones.
func (cs *childSet[T]) savedSnapshot(key AnnualKey) []T {
	items := make([]T, 0, len(cs.saved[key]))
	for _, s := range cs.saved[key] {
		if s != nil {
			items = append(items, *s)
		}
	}
	return items
}
