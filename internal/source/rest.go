package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oscarh/taskwatch/internal/task"
)

// RESTSource implements Source against the task service's JSON API.
type RESTSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// RESTConfig holds configuration for the REST source.
type RESTConfig struct {
	BaseURL string // Task API root, e.g. https://api.example.com
	Token   string // Bearer token (or read from TASKWATCH_TASK_API_TOKEN)
}

// NewRESTSource creates a new REST-backed task source.
func NewRESTSource(cfg RESTConfig) (*RESTSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: task API base URL not set", ErrInvalidConfig)
	}

	token := cfg.Token
	if token == "" {
		token = os.Getenv("TASKWATCH_TASK_API_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("%w: TASKWATCH_TASK_API_TOKEN not set", ErrInvalidConfig)
	}

	return &RESTSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// ListTasksForDay returns the tasks scheduled on the given day.
func (s *RESTSource) ListTasksForDay(ctx context.Context, day string) ([]task.Task, error) {
	var tasks []task.Task
	path := "/v1/tasks?day=" + url.QueryEscape(day)
	if err := s.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListBacklogTasks returns tasks with no scheduled day.
func (s *RESTSource) ListBacklogTasks(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	if err := s.do(ctx, http.MethodGet, "/v1/tasks/backlog", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask retrieves a single task by ID.
func (s *RESTSource) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := s.do(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies the given changes and returns the updated task.
func (s *RESTSource) UpdateTask(ctx context.Context, id string, update TaskUpdate) (*task.Task, error) {
	var t task.Task
	if err := s.do(ctx, http.MethodPatch, "/v1/tasks/"+url.PathEscape(id), update, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Close releases the HTTP client's idle connections.
func (s *RESTSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// do performs one JSON request against the task API.
func (s *RESTSource) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrTaskNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("task API %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
