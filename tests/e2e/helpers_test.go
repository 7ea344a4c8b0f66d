//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"guestbook-board/internal/domain"
)

// BoardClient talks to one board server
type BoardClient struct {
	*http.Client
	t       *testing.T
	baseURL string
}

// NewBoardClient creates a client for the server at baseURL
func NewBoardClient(t *testing.T, baseURL string) *BoardClient {
	return &BoardClient{
		Client:  &http.Client{Timeout: 30 * time.Second},
		t:       t,
		baseURL: baseURL,
	}
}

// ListResponse is the body of GET /api/messages
type ListResponse struct {
	Messages []domain.Message `json:"messages"`
	Mode     string           `json:"mode"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RequestError is returned when the server answers with a non-2xx status
type RequestError struct {
	Status int
	Body   ErrorResponse
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("status %d: %s (%s)", e.Status, e.Body.Error, e.Body.Code)
}

// List returns the board
func (bc *BoardClient) List() (*ListResponse, error) {
	resp, err := bc.Get(bc.baseURL + "/api/messages")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ListResponse
	if err := decodeResponse(resp, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Create posts a new message
func (bc *BoardClient) Create(title, content string) (*domain.Message, error) {
	return bc.messageRequest(http.MethodPost, http.StatusCreated, map[string]string{
		"title":   title,
		"content": content,
	})
}

// Edit updates title and/or content; nil fields are omitted from the body
func (bc *BoardClient) Edit(id int64, title, content *string) (*domain.Message, error) {
	body := map[string]interface{}{"id": id}
	if title != nil {
		body["title"] = *title
	}
	if content != nil {
		body["content"] = *content
	}
	return bc.messageRequest(http.MethodPatch, http.StatusOK, body)
}

// Reorder submits a list-mode batch
func (bc *BoardClient) Reorder(items ...domain.OrderUpdate) (int, error) {
	return bc.rearrange(map[string]interface{}{"order": items})
}

// Move submits a spatial-mode batch
func (bc *BoardClient) Move(items ...domain.PositionUpdate) (int, error) {
	return bc.rearrange(map[string]interface{}{"positions": items})
}

func (bc *BoardClient) rearrange(body interface{}) (int, error) {
	resp, err := bc.SendJSON(http.MethodPut, "/api/messages", body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var result struct {
		OK      bool `json:"ok"`
		Applied int  `json:"applied"`
	}
	if err := decodeResponse(resp, http.StatusOK, &result); err != nil {
		return 0, err
	}
	return result.Applied, nil
}

func (bc *BoardClient) messageRequest(method string, wantStatus int, body interface{}) (*domain.Message, error) {
	resp, err := bc.SendJSON(method, "/api/messages", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Message *domain.Message `json:"message"`
	}
	if err := decodeResponse(resp, wantStatus, &result); err != nil {
		return nil, err
	}
	return result.Message, nil
}

// SendJSON sends a JSON request to the board server
func (bc *BoardClient) SendJSON(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, bc.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return bc.Do(req)
}

func decodeResponse(resp *http.Response, wantStatus int, v interface{}) error {
	if resp.StatusCode != wantStatus {
		reqErr := &RequestError{Status: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(&reqErr.Body)
		return reqErr
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// resetBoard empties the shared table between tests
func resetBoard(t *testing.T) {
	t.Helper()

	// The first request through a server creates the table
	if _, err := NewBoardClient(t, listServer.URL).List(); err != nil {
		t.Fatalf("failed to initialize board: %v", err)
	}
	if _, err := testDB.ExecContext(testContext, "TRUNCATE guestbook_messages RESTART IDENTITY"); err != nil {
		t.Fatalf("failed to reset board: %v", err)
	}
}

// assertStatus fails unless err is a RequestError with the given status and code
func assertStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	reqErr, ok := err.(*RequestError)
	if !ok {
		t.Fatalf("expected request error %d %s, got %v", status, code, err)
	}
	assertEqual(t, reqErr.Status, status, "status")
	assertEqual(t, reqErr.Body.Code, code, "error code")
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// assertEqual checks if two values are equal
func assertEqual[T comparable](t *testing.T, got, want T, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

func ids(messages []domain.Message) []int64 {
	out := make([]int64, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
