package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
)

const defaultTimeout = 15 * time.Second

var newRequestID = func() string { return uuid.New().String() } // mockable

// Client is the register.Client of the REST backend.
type Client struct {
	baseURL string
	token   string
	http    *rest.Client
	logger  core.Logger
}

var _ register.Client = (*Client)(nil)

func NewClient(conf core.BackendConfig, logger core.Logger) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		token:   conf.Token,
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		logger:  logger,
	}
}

// Annual registers

func (c *Client) ListAnnualRegisters(ctx context.Context, filter register.ListFilter) ([]register.AnnualRegister, error) {
	params := make(map[string]string)
	if filter.NumCarte != "" {
		params["num_carte"] = filter.NumCarte
	}
	if filter.NumSelect != "" {
		params["num_select"] = filter.NumSelect
	}
	if filter.AcademicYearID > 0 {
		params["id_academic_year"] = strconv.Itoa(filter.AcademicYearID)
	}

	registers := make([]register.AnnualRegister, 0)
	if err := c.do(ctx, rest.Get, "/annual-registers", params, nil, &registers); err != nil {
		return nil, errors.Wrap(err, "listing annual registers")
	}
	return registers, nil
}

func (c *Client) CreateAnnualRegister(ctx context.Context, nar register.NewAnnualRegister) (register.AnnualRegister, error) {
	var ar register.AnnualRegister
	if err := c.do(ctx, rest.Post, "/annual-registers", nil, nar, &ar); err != nil {
		return register.AnnualRegister{}, errors.Wrap(err, "creating annual register")
	}
	return ar, nil
}

func (c *Client) DeleteAnnualRegister(ctx context.Context, id int) error {
	return errors.Wrapf(c.do(ctx, rest.Delete, fmt.Sprintf("/annual-registers/%d", id), nil, nil, nil), "deleting annual register %d", id)
}

// Payments

func (c *Client) CreatePayment(ctx context.Context, annualRegisterID int, p register.Payment) (register.Payment, error) {
	var saved register.Payment
	path := fmt.Sprintf("/annual-registers/%d/payments", annualRegisterID)
	if err := c.do(ctx, rest.Post, path, nil, p, &saved); err != nil {
		return register.Payment{}, errors.Wrap(err, "creating payment")
	}
	return saved, nil
}

func (c *Client) UpdatePayment(ctx context.Context, annualRegisterID int, p register.Payment) (register.Payment, error) {
	var saved register.Payment
	path := fmt.Sprintf("/annual-registers/%d/payments/%d", annualRegisterID, p.ID.Int)
	if err := c.do(ctx, rest.Put, path, nil, p, &saved); err != nil {
		return register.Payment{}, errors.Wrapf(err, "updating payment %d", p.ID.Int)
	}
	return saved, nil
}

func (c *Client) DeletePayment(ctx context.Context, id int) error {
	return errors.Wrapf(c.do(ctx, rest.Delete, fmt.Sprintf("/payments/%d", id), nil, nil, nil), "deleting payment %d", id)
}

// Semester registrations

func (c *Client) CreateRegisterSemester(ctx context.Context, annualRegisterID int, rs register.RegisterSemester) (register.RegisterSemester, error) {
	var saved register.RegisterSemester
	path := fmt.Sprintf("/annual-registers/%d/register-semesters", annualRegisterID)
	if err := c.do(ctx, rest.Post, path, nil, rs, &saved); err != nil {
		return register.RegisterSemester{}, errors.Wrap(err, "creating semester registration")
	}
	return saved, nil
}

func (c *Client) UpdateRegisterSemester(ctx context.Context, annualRegisterID int, rs register.RegisterSemester) (register.RegisterSemester, error) {
	var saved register.RegisterSemester
	path := fmt.Sprintf("/annual-registers/%d/register-semesters/%d", annualRegisterID, rs.ID.Int)
	if err := c.do(ctx, rest.Put, path, nil, rs, &saved); err != nil {
		return register.RegisterSemester{}, errors.Wrapf(err, "updating semester registration %d", rs.ID.Int)
	}
	return saved, nil
}

func (c *Client) DeleteRegisterSemester(ctx context.Context, id int) error {
	return errors.Wrapf(c.do(ctx, rest.Delete, fmt.Sprintf("/register-semesters/%d", id), nil, nil, nil), "deleting semester registration %d", id)
}

// Documents

func (c *Client) UploadDocument(ctx context.Context, annualRegisterID int, up register.DocumentUpload) (register.Document, error) {
	body, contentType, err := multipartBody(up)
	if err != nil {
		return register.Document{}, errors.Wrap(err, "encoding document")
	}

	req := c.request(rest.Post, fmt.Sprintf("/annual-registers/%d/documents", annualRegisterID), nil)
	req.Headers["Content-Type"] = contentType
	req.Body = body

	var doc register.Document
	if err = c.send(ctx, req, &doc); err != nil {
		return register.Document{}, errors.Wrap(err, "uploading document")
	}
	return doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id int) error {
	return errors.Wrapf(c.do(ctx, rest.Delete, fmt.Sprintf("/documents/%d", id), nil, nil, nil), "deleting document %d", id)
}

// Lookups

func (c *Client) JourneysByMention(ctx context.Context, mentionID int) ([]register.Journey, error) {
	journeys := make([]register.Journey, 0)
	params := map[string]string{"id_mention": strconv.Itoa(mentionID)}
	if err := c.do(ctx, rest.Get, "/journeys", params, nil, &journeys); err != nil {
		return nil, errors.Wrap(err, "listing journeys")
	}
	return journeys, nil
}

func (c *Client) EnrollmentFee(ctx context.Context, q register.FeeQuery) (register.EnrollmentFee, error) {
	params := map[string]string{
		"id_academic_year": strconv.Itoa(q.AcademicYearID),
		"id_mention":       strconv.Itoa(q.MentionID),
	}
	if q.Level != "" {
		params["level"] = q.Level
	}

	var fees []register.EnrollmentFee
	if err := c.do(ctx, rest.Get, "/enrollment-fees", params, nil, &fees); err != nil {
		if IsNotFound(err) {
			return register.EnrollmentFee{}, register.ErrNotFound
		}
		return register.EnrollmentFee{}, errors.Wrap(err, "looking up enrollment fee")
	}
	if len(fees) == 0 {
		return register.EnrollmentFee{}, register.ErrNotFound
	}
	return fees[0], nil
}

func (c *Client) RequiredDocuments(ctx context.Context, q register.RequiredDocumentQuery) ([]register.RequiredDocument, error) {
	ids := make([]string, 0, len(q.JourneyIDs))
	for _, id := range q.JourneyIDs {
		ids = append(ids, strconv.Itoa(id))
	}
	params := map[string]string{"id_academic_year": strconv.Itoa(q.AcademicYearID)}
	if len(ids) > 0 {
		params["id_journey"] = strings.Join(ids, ",")
	}

	docs := make([]register.RequiredDocument, 0)
	if err := c.do(ctx, rest.Get, "/required-documents", params, nil, &docs); err != nil {
		return nil, errors.Wrap(err, "listing required documents")
	}
	return docs, nil
}

// transport

func (c *Client) request(method rest.Method, path string, params map[string]string) rest.Request {
	headers := map[string]string{
		"Accept":       "application/json",
		"X-Request-ID": newRequestID(),
	}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}
	return rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     headers,
		QueryParams: params,
	}
}

// do sends a JSON request and decodes the response into dst when dst is not nil.
func (c *Client) do(ctx context.Context, method rest.Method, path string, params map[string]string, payload, dst interface{}) error {
	req := c.request(method, path, params)
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Headers["Content-Type"] = "application/json"
		req.Body = body
	}
	return c.send(ctx, req, dst)
}

func (c *Client) send(ctx context.Context, req rest.Request, dst interface{}) error {
	start := time.Now()
	resp, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		terr := &TransportError{Op: fmt.Sprintf("%s %s", req.Method, req.BaseURL), Err: err}
		c.logger.Warn("backend unreachable", terr)
		return terr
	}
	c.logger.Debug(fmt.Sprintf("%s %s -> %d (%s)", req.Method, req.BaseURL, resp.StatusCode, time.Since(start)), core.Fields{"request_id": req.Headers["X-Request-ID"]})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, resp.Body)
	}
	if dst == nil || resp.StatusCode == http.StatusNoContent || strings.TrimSpace(resp.Body) == "" {
		return nil
	}
	if err = json.Unmarshal([]byte(resp.Body), dst); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", req.Method, req.BaseURL)
	}
	return nil
}
