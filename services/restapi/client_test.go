package restapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
)

var ctx = context.Background()

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// recordedRequest is what the fake backend received.
type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

func setup(t *testing.T, status int, response string) (*Client, *recordedRequest) {
	orig := newRequestID
	newRequestID = func() string { return "req-1" }
	t.Cleanup(func() { newRequestID = orig })

	rec := new(recordedRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*rec = recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, header: r.Header, body: body}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(core.BackendConfig{BaseURL: srv.URL + "/api/", Token: "secret", Timeout: time.Second}, nopLogger{})
	return client, rec
}

func TestClient_CreatePayment(t *testing.T) {
	client, rec := setup(t, http.StatusCreated, `{"id": 7, "num_receipt": "R-01", "date_receipt": "2024-09-01", "payed": "50000", "description": ""}`)

	saved, err := client.CreatePayment(ctx, 42, register.Payment{
		NumReceipt:  "R-01",
		DateReceipt: "2024-09-01",
		Payed:       decimal.NewFromInt(50000),
	})
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(7), saved.ID)
	assert.True(t, saved.Payed.Equal(decimal.NewFromInt(50000)))

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/annual-registers/42/payments", rec.path)
	assert.Equal(t, "Bearer secret", rec.header.Get("Authorization"))
	assert.Equal(t, "req-1", rec.header.Get("X-Request-ID"))
	assert.Equal(t, "application/json", rec.header.Get("Content-Type"))

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.body, &sent))
	assert.Nil(t, sent["id"])
	assert.Equal(t, "R-01", sent["num_receipt"])
	assert.Equal(t, "50000", sent["payed"])
}

func TestClient_UpdateRegisterSemester(t *testing.T) {
	client, rec := setup(t, http.StatusOK, `{"id": 5, "semester": "S3", "repeat_status": "PASSANT", "id_journey": 2}`)

	saved, err := client.UpdateRegisterSemester(ctx, 42, register.RegisterSemester{
		ID: null.IntFrom(5), Semester: "S3", RepeatStatus: register.RepeatStatusPassing, JourneyID: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.JourneyID)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/annual-registers/42/register-semesters/5", rec.path)
}

func TestClient_ListAnnualRegisters(t *testing.T) {
	client, rec := setup(t, http.StatusOK, `[{"id": 42, "num_carte": "CARD-1", "id_academic_year": 2024,
		"payment": [{"id": 7, "num_receipt": "R-01", "date_receipt": "2024-09-01", "payed": 50000}],
		"register_semester": [], "document": []}]`)

	registers, err := client.ListAnnualRegisters(ctx, register.ListFilter{
		StudentIdentifier: register.StudentIdentifier{NumCarte: "CARD-1"},
	})
	require.NoError(t, err)
	require.Len(t, registers, 1)
	assert.Equal(t, null.IntFrom(42), registers[0].ID)
	require.Len(t, registers[0].Payments, 1)
	assert.Equal(t, "R-01", registers[0].Payments[0].NumReceipt)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "num_carte=CARD-1", rec.query)
}

func TestClient_delete(t *testing.T) {
	client, rec := setup(t, http.StatusNoContent, "")

	tests := []struct {
		name     string
		call     func() error
		wantPath string
	}{
		{name: "annual register", call: func() error { return client.DeleteAnnualRegister(ctx, 42) }, wantPath: "/api/annual-registers/42"},
		{name: "payment", call: func() error { return client.DeletePayment(ctx, 7) }, wantPath: "/api/payments/7"},
		{name: "semester registration", call: func() error { return client.DeleteRegisterSemester(ctx, 5) }, wantPath: "/api/register-semesters/5"},
		{name: "document", call: func() error { return client.DeleteDocument(ctx, 9) }, wantPath: "/api/documents/9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			assert.Equal(t, http.MethodDelete, rec.method)
			assert.Equal(t, tt.wantPath, rec.path)
		})
	}
}

func TestClient_UploadDocument(t *testing.T) {
	var (
		gotRequired, gotDescription, gotFilename string
		gotContent                               []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotRequired = r.FormValue("id_required_document")
		gotDescription = r.FormValue("description")
		file, header, err := r.FormFile("file")
		if err == nil {
			gotFilename = header.Filename
			gotContent, _ = io.ReadAll(file)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 9, "id_required_document": 300, "name": "birth.pdf", "url": "/media/birth.pdf"}`)
	}))
	defer srv.Close()

	client := NewClient(core.BackendConfig{BaseURL: srv.URL}, nopLogger{})
	doc, err := client.UploadDocument(ctx, 42, register.DocumentUpload{
		RequiredDocumentID: 300,
		Filename:           "birth.pdf",
		Content:            []byte("%PDF-1.4"),
		Description:        "certified copy",
	})
	require.NoError(t, err)
	assert.Equal(t, 9, doc.ID)
	assert.Equal(t, "300", gotRequired)
	assert.Equal(t, "certified copy", gotDescription)
	assert.Equal(t, "birth.pdf", gotFilename)
	assert.Equal(t, []byte("%PDF-1.4"), gotContent)
}

func TestClient_EnrollmentFee(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantErr  error
		wantFee  string
	}{
		{name: "found", status: http.StatusOK, response: `[{"id": 1, "price": "50000", "description": "Enrollment"}]`, wantFee: "50000"},
		{name: "empty list", status: http.StatusOK, response: `[]`, wantErr: register.ErrNotFound},
		{name: "not found", status: http.StatusNotFound, response: `{"detail": "Not found."}`, wantErr: register.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, rec := setup(t, tt.status, tt.response)

			fee, err := client.EnrollmentFee(ctx, register.FeeQuery{AcademicYearID: 2024, MentionID: 3, Level: "L1"})
			assert.Equal(t, tt.wantErr, err)
			if tt.wantErr == nil {
				assert.True(t, fee.Price.Equal(decimal.RequireFromString(tt.wantFee)))
			}
			assert.Equal(t, "/api/enrollment-fees", rec.path)
			assert.Contains(t, rec.query, "id_mention=3")
			assert.Contains(t, rec.query, "level=L1")
		})
	}
}

func TestClient_RequiredDocuments(t *testing.T) {
	client, rec := setup(t, http.StatusOK, `[{"id": 300, "name": "Birth certificate", "id_journey": 1}]`)

	docs, err := client.RequiredDocuments(ctx, register.RequiredDocumentQuery{AcademicYearID: 2024, JourneyIDs: []int{1, 2}})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Contains(t, rec.query, "id_journey=1%2C2")
}

func TestClient_errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantMsg  string
	}{
		{name: "detail", status: http.StatusBadRequest, response: `{"detail": "Student not found."}`, wantMsg: "Student not found."},
		{name: "error", status: http.StatusConflict, response: `{"error": "already registered"}`, wantMsg: "already registered"},
		{name: "field errors", status: http.StatusBadRequest, response: `{"num_receipt": ["receipt already used"]}`, wantMsg: "num_receipt: receipt already used"},
		{name: "not json", status: http.StatusBadGateway, response: `<html>bad gateway</html>`, wantMsg: "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setup(t, tt.status, tt.response)

			_, err := client.CreateAnnualRegister(ctx, register.NewAnnualRegister{AcademicYearID: 2024})
			require.Error(t, err)
			apiErr, ok := errors.Cause(err).(*Error)
			require.True(t, ok, "CreateAnnualRegister() error = %v", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.UserMessage())
		})
	}
}

func TestClient_unreachable(t *testing.T) {
	client := NewClient(core.BackendConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nopLogger{})

	_, err := client.JourneysByMention(ctx, 3)
	assert.Error(t, err)
	_, ok := errors.Cause(err).(*Error)
	assert.False(t, ok)

	terr, ok := errors.Cause(err).(*TransportError)
	require.True(t, ok, "cause = %T", errors.Cause(err))
	assert.Equal(t, ErrUnreachable.Error(), terr.UserMessage())
	assert.True(t, errors.Is(err, ErrUnreachable))
	assert.Contains(t, terr.Error(), "GET ")
}
