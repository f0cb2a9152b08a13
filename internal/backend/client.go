// Package backend is the HTTP client for the school REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/model"
)

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Error is a non-2xx answer from the school API. Message is suitable for
// showing to the user.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// IsNotFound reports whether err is a 404 from the school API.
func IsNotFound(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Status == http.StatusNotFound
}

// Client calls the school API.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for baseURL. timeout bounds every call.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "backend").Logger(),
	}
}

type submitRequest struct {
	StudentID model.ID                 `json:"student_id"`
	Answers   []model.SubmissionAnswer `json:"answers"`
}

// FetchExam loads one exam with its questions from the requester's perspective.
func (c *Client) FetchExam(ctx context.Context, examID model.ID, req model.RequesterContext) (*model.Exam, error) {
	q := url.Values{}
	if req.StudentID != "" {
		q.Set("student_id", req.StudentID.String())
	}
	if req.Role != "" {
		q.Set("role", string(req.Role))
	}
	endpoint := c.baseURL + "/exams/" + url.PathEscape(examID.String())
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var exam model.Exam
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &exam); err != nil {
		return nil, err
	}
	if exam.ID == "" {
		exam.ID = examID
	}
	return &exam, nil
}

// SubmitExam sends the selected answers of a student.
func (c *Client) SubmitExam(ctx context.Context, examID, studentID model.ID, answers []model.SubmissionAnswer) error {
	if answers == nil {
		answers = []model.SubmissionAnswer{}
	}
	body, err := json.Marshal(submitRequest{StudentID: studentID, Answers: answers})
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	endpoint := c.baseURL + "/exams/" + url.PathEscape(examID.String()) + "/submit"
	return c.do(ctx, http.MethodPost, endpoint, body, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("url", endpoint).Msg("School API unreachable")
		return fmt.Errorf("school API unreachable: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("School API call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return decodeData(raw, out)
}

// decodeData accepts both a bare payload and one wrapped in {"data": ...}.
func decodeData(raw []byte, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
		raw = envelope.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts a human readable message from an error body.
func errorMessage(status int, raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(body.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	return fmt.Sprintf("school API returned %d %s", status, http.StatusText(status))
}
