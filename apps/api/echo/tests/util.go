package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
	"github.com/trezcool/registrar/storage/inmem"
	"github.com/trezcool/registrar/tests"
)

func setup(t *testing.T, client ...register.Client) Server {
	var cl register.Client
	if len(client) > 0 {
		cl = client[0]
	} else {
		cl = inmemdb.NewClient(inmemdb.Open(inmemdb.DemoFixtures()))
	}

	validate, translator := testutil.NewValidator()

	app := NewServer(ServerDeps{
		Conf:           &core.Config{AppName: "Registrar", TestMode: true},
		Logger:         nopLogger{},
		Client:         cl,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = app.Close() })
	return app
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

// sessionView mirrors the session payload of the API.
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func newUploadRequest(t *testing.T, path string, fields map[string]string, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
		if _, err = part.Write(content); err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, httptest.NewRecorder()
}

// serve sends a JSON request to app.
func serve(app Server, method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func openSession(t *testing.T, app Server, data OpenSession) sessionView {
	rec := serve(app, http.MethodPost, "/v1/sessions", marchallObj(t, data))
	if rec.Code != http.StatusCreated {
		t.Fatalf("openSession(): code = %v; body %v", rec.Code, rec.Body.String())
	}
	return decodeView(t, rec)
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) sessionView {
	var view sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decodeView(): %v; body %v", err, rec.Body.String())
	}
	return view
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqualValues(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
