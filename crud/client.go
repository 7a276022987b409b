// Package crud talks to the ordered-CRUD HTTP service. It is a thin typed
// layer over the REST routes; all reconciliation logic lives in the engine.
package crud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"boardsync/domain"
)

const defaultTimeout = 15 * time.Second

// Client implements the engine's service contract against the REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API at baseURL authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Err: err}
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var body errorBody
	data, _ := io.ReadAll(resp.Body)
	_ = sonic.Unmarshal(data, &body)
	msg := body.Message
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &domain.ValidationError{Field: body.ErrorCode, Msg: msg}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.AuthorizationError{Msg: msg}
	case http.StatusNotFound:
		return &domain.NotFoundError{Kind: body.ErrorCode, ID: msg}
	default:
		return &domain.NetworkError{Err: fmt.Errorf("%s: %s", resp.Status, msg)}
	}
}

// Boards

func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var boards []domain.Board
	if err := c.do(ctx, http.MethodGet, "/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	var board domain.Board
	err := c.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID), nil, &board)
	return board, err
}

func (c *Client) CreateBoard(ctx context.Context, title, backgroundImage string) (domain.Board, error) {
	req := struct {
		Title           string `json:"title"`
		BackgroundImage string `json:"backgroundImage,omitempty"`
	}{Title: title, BackgroundImage: backgroundImage}
	var board domain.Board
	err := c.do(ctx, http.MethodPost, "/boards", req, &board)
	return board, err
}

func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	return c.do(ctx, http.MethodDelete, "/boards/"+url.PathEscape(boardID), nil, nil)
}

func (c *Client) AddMember(ctx context.Context, boardID, email string) (domain.Board, error) {
	req := struct {
		Email string `json:"email"`
	}{Email: email}
	var board domain.Board
	err := c.do(ctx, http.MethodPost, "/boards/"+url.PathEscape(boardID)+"/members", req, &board)
	return board, err
}

func (c *Client) RemoveMember(ctx context.Context, boardID, userID string) error {
	return c.do(ctx, http.MethodDelete,
		"/boards/"+url.PathEscape(boardID)+"/members/"+url.PathEscape(userID), nil, nil)
}

// Columns

func (c *Client) ListColumns(ctx context.Context, boardID string) ([]domain.Column, error) {
	var columns []domain.Column
	err := c.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/columns", nil, &columns)
	if err != nil {
		return nil, err
	}
	return columns, nil
}

func (c *Client) CreateColumn(ctx context.Context, boardID, title string) (domain.Column, error) {
	req := struct {
		BoardID string `json:"boardId"`
		Title   string `json:"title"`
	}{BoardID: boardID, Title: title}
	var column domain.Column
	err := c.do(ctx, http.MethodPost, "/columns", req, &column)
	return column, err
}

func (c *Client) UpdateColumn(ctx context.Context, columnID, title string) (domain.Column, error) {
	req := struct {
		Title string `json:"title"`
	}{Title: title}
	var column domain.Column
	err := c.do(ctx, http.MethodPatch, "/columns/"+url.PathEscape(columnID), req, &column)
	return column, err
}

func (c *Client) DeleteColumn(ctx context.Context, columnID string) error {
	return c.do(ctx, http.MethodDelete, "/columns/"+url.PathEscape(columnID), nil, nil)
}

func (c *Client) ReorderColumns(ctx context.Context, boardID string, orderedIDs []string) ([]domain.Column, error) {
	req := struct {
		BoardID    string   `json:"boardId"`
		OrderedIDs []string `json:"orderedIds"`
	}{BoardID: boardID, OrderedIDs: orderedIDs}
	var columns []domain.Column
	err := c.do(ctx, http.MethodPost, "/columns/reorder", req, &columns)
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// Tasks

type taskPage struct {
	Data       []domain.Task `json:"data"`
	NextCursor *string       `json:"nextCursor"`
}

func (c *Client) ListTasks(ctx context.Context, boardID, cursor string, limit int) ([]domain.Task, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/boards/" + url.PathEscape(boardID) + "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page taskPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, "", err
	}
	next := ""
	if page.NextCursor != nil {
		next = *page.NextCursor
	}
	return page.Data, next, nil
}

func (c *Client) CreateTask(ctx context.Context, columnID, title, description string) (domain.Task, error) {
	req := struct {
		ColumnID    string `json:"columnId"`
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
	}{ColumnID: columnID, Title: title, Description: description}
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks", req, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(taskID), patch, &task)
	return task, err
}

func (c *Client) MoveTask(ctx context.Context, taskID, columnID string, position int) (domain.Task, error) {
	req := struct {
		ColumnID string `json:"columnId"`
		Position int    `json:"position"`
	}{ColumnID: columnID, Position: position}
	var task domain.Task
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(taskID)+"/move", req, &task)
	return task, err
}

func (c *Client) ReorderTasks(ctx context.Context, columnID string, orderedIDs []string) ([]domain.Task, error) {
	req := struct {
		ColumnID   string   `json:"columnId"`
		OrderedIDs []string `json:"orderedIds"`
	}{ColumnID: columnID, OrderedIDs: orderedIDs}
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/reorder", req, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskID), nil, nil)
}

func (c *Client) AssignUser(ctx context.Context, taskID, userID string) (domain.Task, error) {
	req := struct {
		UserID string `json:"userId"`
	}{UserID: userID}
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/assign", req, &task)
	return task, err
}

func (c *Client) UnassignUser(ctx context.Context, taskID, userID string) (domain.Task, error) {
	req := struct {
		UserID string `json:"userId"`
	}{UserID: userID}
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/unassign", req, &task)
	return task, err
}

func (c *Client) AddChecklistItem(ctx context.Context, taskID, title string) (domain.ChecklistItem, error) {
	req := struct {
		Title string `json:"title"`
	}{Title: title}
	var item domain.ChecklistItem
	err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/checklist", req, &item)
	return item, err
}

func (c *Client) UpdateChecklistItem(ctx context.Context, itemID string, completed bool) (domain.ChecklistItem, error) {
	req := struct {
		Completed bool `json:"completed"`
	}{Completed: completed}
	var item domain.ChecklistItem
	err := c.do(ctx, http.MethodPatch, "/checklist/"+url.PathEscape(itemID), req, &item)
	return item, err
}

// Activities

type activityPage struct {
	Data       []domain.Activity `json:"data"`
	NextCursor *string           `json:"nextCursor"`
}

func (c *Client) ListActivities(ctx context.Context, boardID, cursor string, limit int) ([]domain.Activity, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/boards/" + url.PathEscape(boardID) + "/activities"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page activityPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, "", err
	}
	next := ""
	if page.NextCursor != nil {
		next = *page.NextCursor
	}
	return page.Data, next, nil
}

func (c *Client) LogActivity(ctx context.Context, boardID, taskID, action string) (domain.Activity, error) {
	req := struct {
		TaskID string `json:"taskId,omitempty"`
		Action string `json:"action"`
	}{TaskID: taskID, Action: action}
	var activity domain.Activity
	err := c.do(ctx, http.MethodPost, "/boards/"+url.PathEscape(boardID)+"/activities", req, &activity)
	return activity, err
}

// AddComment posts a comment on a task, which the server records as a
// comment-typed activity on the task's board.
func (c *Client) AddComment(ctx context.Context, taskID, content string) (domain.Activity, error) {
	req := struct {
		Content string `json:"content"`
	}{Content: content}
	var activity domain.Activity
	err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/comments", req, &activity)
	return activity, err
}
