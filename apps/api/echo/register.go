package echoapi

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core/register"
)

const MaxUploadSize = 10 << 20

type sessionApi struct {
	sessions *sessionManager
}

func registerSessionAPI(g *echo.Group, sessions *sessionManager) {
	api := sessionApi{sessions: sessions}

	withSession := sessionMiddleware(sessions)

	g.POST("/sessions", api.open)
	g.GET("/sessions/:sid", api.retrieve, withSession)
	g.DELETE("/sessions/:sid", api.close)
	g.GET("/sessions/:sid/journeys", api.journeys, withSession)
	g.POST("/sessions/:sid/children/:kind", api.addChild, withSession)

	g.POST("/sessions/:sid/registers", api.addRegister, withSession)
	g.DELETE("/sessions/:sid/registers/:pidx", api.deleteRegister, withSession)
	g.PATCH("/sessions/:sid/registers/:pidx/children/:kind/:cidx", api.updateChild, withSession)
	g.DELETE("/sessions/:sid/registers/:pidx/children/:kind/:cidx", api.deleteChild, withSession)
	g.POST("/sessions/:sid/registers/:pidx/children/:kind/:cidx/save", api.saveChild, withSession)
	g.POST("/sessions/:sid/registers/:pidx/children/:kind/:cidx/cancel", api.cancelChild, withSession)
	g.GET("/sessions/:sid/registers/:pidx/changes/:kind", api.pendingChanges, withSession)
	g.GET("/sessions/:sid/registers/:pidx/documents", api.documents, withSession)
	g.POST("/sessions/:sid/registers/:pidx/documents", api.uploadDocument, withSession)
	g.DELETE("/sessions/:sid/registers/:pidx/documents/:didx", api.deleteDocument, withSession)
	g.GET("/sessions/:sid/registers/:pidx/document-status", api.documentStatus, withSession)
}

type (
	newRegisterData struct {
		register.StudentIdentifier
		AcademicYearID int `json:"id_academic_year"`
	}

	childRef struct {
		ParentIndex int `json:"parent_index"`
		ChildIndex  int `json:"child_index"`
	}
)

// Helpers

func (api *sessionApi) session(ctx echo.Context) (*session, error) {
	return getContextSession(ctx)
}

func intParam(ctx echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, errInvalidIndex
	}
	return v, nil
}

func kindParam(ctx echo.Context) (register.ChildKind, error) {
	return register.ParseChildKind(ctx.Param("kind"))
}

// childParams reads the session, parent index, kind and child index of a child route.
func (api *sessionApi) childParams(ctx echo.Context) (sess *session, kind register.ChildKind, pidx, cidx int, err error) {
	if sess, err = api.session(ctx); err != nil {
		return
	}
	if kind, err = kindParam(ctx); err != nil {
		return
	}
	if pidx, err = intParam(ctx, "pidx"); err != nil {
		return
	}
	cidx, err = intParam(ctx, "cidx")
	return
}

func (api *sessionApi) respond(ctx echo.Context, code int, sess *session) error {
	return ctx.JSON(code, sess.view())
}

// Handlers

func (api *sessionApi) open(ctx echo.Context) error {
	var data OpenSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenSession")
	}
	sess, err := api.sessions.open(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return api.respond(ctx, http.StatusCreated, sess)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	return api.respond(ctx, http.StatusOK, sess)
}

func (api *sessionApi) close(ctx echo.Context) error {
	if err := api.sessions.close(ctx.Param("sid")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) journeys(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	journeys, err := sess.store.Journeys(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, journeys)
}

func (api *sessionApi) addRegister(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	var data newRegisterData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to newRegisterData")
	}
	if data.StudentIdentifier.IsEmpty() {
		data.StudentIdentifier = sess.identifier
	}
	if _, err = sess.store.AddParent(ctx.Request().Context(), data.StudentIdentifier, data.AcademicYearID); err != nil {
		return err
	}
	return api.respond(ctx, http.StatusCreated, sess)
}

func (api *sessionApi) deleteRegister(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	pidx, err := intParam(ctx, "pidx")
	if err != nil {
		return err
	}
	if err = sess.store.DeleteParent(ctx.Request().Context(), pidx); err != nil {
		return err
	}
	return api.respond(ctx, http.StatusOK, sess)
}

func (api *sessionApi) addChild(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	kind, err := kindParam(ctx)
	if err != nil {
		return err
	}
	pidx, cidx, err := sess.store.AddChild(kind)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, childRef{ParentIndex: pidx, ChildIndex: cidx})
}

// updateChild applies a {field: value} map to a draft, fields in alphabetical order.
func (api *sessionApi) updateChild(ctx echo.Context) error {
	sess, kind, pidx, cidx, err := api.childParams(ctx)
	if err != nil {
		return err
	}
	// decoded by hand: binding a map would mix the path params in
	var data map[string]string
	if err = json.NewDecoder(ctx.Request().Body).Decode(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a {field: value} object is expected").SetInternal(err)
	}
	fields := make([]string, 0, len(data))
	for field := range data {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if err = sess.store.UpdateChildField(kind, pidx, cidx, field, data[field]); err != nil {
			return err
		}
	}
	return api.respond(ctx, http.StatusOK, sess)
}

func (api *sessionApi) deleteChild(ctx echo.Context) error {
	sess, kind, pidx, cidx, err := api.childParams(ctx)
	if err != nil {
		return err
	}
	if err = sess.store.DeleteChild(ctx.Request().Context(), kind, pidx, cidx); err != nil {
		return err
	}
	return api.respond(ctx, http.StatusOK, sess)
}

func (api *sessionApi) saveChild(ctx echo.Context) error {
	sess, kind, pidx, cidx, err := api.childParams(ctx)
	if err != nil {
		return err
	}
	if err = sess.store.SaveChild(ctx.Request().Context(), kind, pidx, cidx); err != nil {
		return err
	}
	return api.respond(ctx, http.StatusOK, sess)
}

func (api *sessionApi) cancelChild(ctx echo.Context) error {
	sess, kind, pidx, cidx, err := api.childParams(ctx)
	if err != nil {
		return err
	}
	if err = sess.store.CancelChildEdit(kind, pidx, cidx); err != nil {
		return err
	}
	return api.respond(ctx, http.StatusOK, sess)
}

func (api *sessionApi) pendingChanges(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	kind, err := kindParam(ctx)
	if err != nil {
		return err
	}
	pidx, err := intParam(ctx, "pidx")
	if err != nil {
		return err
	}
	diff, err := sess.store.PendingChanges(kind, pidx)
	if err != nil {
		return err
	}
	return ctx.String(http.StatusOK, diff)
}

func (api *sessionApi) documents(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	pidx, err := intParam(ctx, "pidx")
	if err != nil {
		return err
	}
	docs, err := sess.store.Documents(pidx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, docs)
}

func (api *sessionApi) uploadDocument(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	pidx, err := intParam(ctx, "pidx")
	if err != nil {
		return err
	}

	requiredID, err := strconv.Atoi(ctx.FormValue("id_required_document"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"id_required_document": "a valid required document is required"})
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"file": "this field is required"})
	}
	if fh.Size > MaxUploadSize {
		return errUploadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		return errors.Wrap(err, "reading uploaded file")
	}
	if len(content) > MaxUploadSize {
		return errUploadTooLarge
	}

	doc, err := sess.store.UploadDocument(ctx.Request().Context(), pidx, register.DocumentUpload{
		RequiredDocumentID: requiredID,
		Filename:           fh.Filename,
		Content:            content,
		Description:        ctx.FormValue("description"),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (api *sessionApi) deleteDocument(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	pidx, err := intParam(ctx, "pidx")
	if err != nil {
		return err
	}
	didx, err := intParam(ctx, "didx")
	if err != nil {
		return err
	}
	if err = sess.store.DeleteDocument(ctx.Request().Context(), pidx, didx); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) documentStatus(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	pidx, err := intParam(ctx, "pidx")
	if err != nil {
		return err
	}
	status, err := sess.store.DocumentStatus(ctx.Request().Context(), pidx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, status)
}
