package echoapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
)

var newSessionID = func() string { return uuid.New().String() } // mockable

type (
	// OpenSession is the payload that opens an editing session on the registers of one student.
	OpenSession struct {
		NumCarte       string `json:"num_carte"`
		NumSelect      string `json:"num_select"`
		MentionID      int    `json:"id_mention"`
		Level          string `json:"level"`
		AcademicYearID int    `json:"id_academic_year"`
	}

	session struct {
		id         string
		identifier register.StudentIdentifier
		store      *register.Store
	}

	// sessionManager owns one register.Store per editing session.
	sessionManager struct {
		deps ServerDeps

		mu       sync.RWMutex
		sessions map[string]*session
	}
)

func newSessionManager(deps ServerDeps) *sessionManager {
	return &sessionManager{
		deps:     deps,
		sessions: make(map[string]*session),
	}
}

func (m *sessionManager) open(ctx context.Context, data OpenSession) (*session, error) {
	identifier := register.StudentIdentifier{NumCarte: data.NumCarte, NumSelect: data.NumSelect}.Clean()
	if identifier.IsEmpty() {
		return nil, core.NewValidationError(register.ErrMissingIdentifier)
	}

	store := register.NewStore(
		register.Deps{
			Client:     m.deps.Client,
			Bus:        m.deps.Bus,
			Logger:     m.deps.Logger,
			Validate:   m.deps.Validate,
			Translator: m.deps.Translator,
		},
		register.Options{
			MentionID:         data.MentionID,
			Level:             core.CleanString(data.Level),
			ErrorDisplayDelay: m.deps.Conf.Store.ErrorDisplayDelay,
		},
	)
	filter := register.ListFilter{StudentIdentifier: identifier, AcademicYearID: data.AcademicYearID}
	if err := store.Load(ctx, filter); err != nil {
		store.Close()
		return nil, errors.Wrap(err, "loading annual registers")
	}

	sess := &session{
		id:         newSessionID(),
		identifier: identifier,
		store:      store,
	}
	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	m.deps.Logger.Debug(fmt.Sprintf("session %s opened", sess.id), core.Fields{"student": studentRef(identifier)})
	return sess, nil
}

func (m *sessionManager) get(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	return nil, errSessionNotFound
}

// close discards the session. Responses still in flight for it are dropped by its store.
func (m *sessionManager) close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return errSessionNotFound
	}
	sess.store.Initialize(nil)
	sess.store.Close()
	return nil
}

func (m *sessionManager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.store.Close()
	}
}

func studentRef(si register.StudentIdentifier) string {
	if si.NumCarte != "" {
		return si.NumCarte
	}
	return si.NumSelect
}

// sessionView is the read model of a session.
type sessionView struct {
	ID                  string                             `json:"id"`
	Student             register.StudentIdentifier         `json:"student"`
	Registers           []register.AnnualRegister          `json:"registers"`
	Parents             []register.ParentState             `json:"parents"`
	Editing             map[register.ChildKind]map[int]int `json:"editing"`
	Saving              []int                              `json:"saving"`
	SaveError           string                             `json:"save_error"`
	DocumentUploadError string                             `json:"document_upload_error"`
}

func (sess *session) view() sessionView {
	parents := sess.store.Parents()
	editing := map[register.ChildKind]map[int]int{
		register.KindPayment:      {},
		register.KindRegistration: {},
	}
	for kind := range editing {
		for _, p := range parents {
			if idx, ok := sess.store.EditingIndex(kind, p.Index); ok {
				editing[kind][p.Index] = idx
			}
		}
	}
	return sessionView{
		ID:                  sess.id,
		Student:             sess.identifier,
		Registers:           sess.store.Registers(),
		Parents:             parents,
		Editing:             editing,
		Saving:              sess.store.SavingIndexes(),
		SaveError:           sess.store.SaveError(),
		DocumentUploadError: sess.store.DocumentUploadError(),
	}
}
