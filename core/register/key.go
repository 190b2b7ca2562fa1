package register

import (
	"strconv"

	"github.com/volatiletech/null/v8"
)

// AnnualKey addresses the child collections of one AnnualRegister:
// its server id once persisted, its position in the draft list before that.
// The zero value is not a valid key; use PersistedKey or DraftKey.
type AnnualKey struct {
	persisted bool
	value     int
}

func PersistedKey(id int) AnnualKey { return AnnualKey{persisted: true, value: id} }

func DraftKey(position int) AnnualKey { return AnnualKey{value: position} }

// keyFor returns the key of a parent found at position in the draft list.
func keyFor(id null.Int, position int) AnnualKey {
	if id.Valid {
		return PersistedKey(id.Int)
	}
	return DraftKey(position)
}

func (k AnnualKey) IsPersisted() bool { return k.persisted }

// ID returns the server id of a persisted key.
func (k AnnualKey) ID() (int, bool) { return k.value, k.persisted }

// Position returns the draft position of a non-persisted key.
func (k AnnualKey) Position() (int, bool) { return k.value, !k.persisted }

// String renders persisted keys as the bare id and draft keys as "#position".
func (k AnnualKey) String() string {
	if k.persisted {
		return strconv.Itoa(k.value)
	}
	return "#" + strconv.Itoa(k.value)
}
