// Package smartsheet implements the TaskRepository interface over the
// Smartsheet REST API. Rows map to tasks through column titles, so the
// sheet layout can change without code changes as long as the titles
// stay.
package smartsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dataassist/internal/derr"
	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// Column titles recognized in the sheet. Unknown columns are ignored.
const (
	colTitle          = "Task Name"
	colStatus         = "Status"
	colPriority       = "Priority"
	colDueDate        = "Due Date"
	colAssignedTo     = "Assigned To"
	colProject        = "Project"
	colNotes          = "Notes"
	colContactFlag    = "Contact"
	colRecurring      = "Recurring"
	colEstimatedHours = "Estimated Hours"
	colNumber         = "Number"
)

// fieldColumns maps update diff keys to sheet column titles.
var fieldColumns = map[string]string{
	"title":           colTitle,
	"status":          colStatus,
	"priority":        colPriority,
	"due_date":        colDueDate,
	"assigned_to":     colAssignedTo,
	"project":         colProject,
	"notes":           colNotes,
	"contact_flag":    colContactFlag,
	"recurring":       colRecurring,
	"estimated_hours": colEstimatedHours,
	"number":          colNumber,
}

// Client talks to one sheet.
type Client struct {
	apiKey     string
	baseURL    string
	sheetID    string
	httpClient *http.Client

	// columns caches the title-to-id map after the first sheet read.
	columns map[string]int64
}

// NewClient builds a sheet-backed task repository.
func NewClient(apiKey, baseURL, sheetID string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, derr.NewConfigurationError("smartsheet.api_key", "set SMARTSHEET_API_KEY or smartsheet.api_key in config")
	}
	if sheetID == "" {
		return nil, derr.NewConfigurationError("smartsheet.sheet_id", "set smartsheet.sheet_id in config")
	}
	if baseURL == "" {
		baseURL = "https://api.smartsheet.com/2.0"
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		sheetID:    sheetID,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

var _ types.TaskRepository = (*Client)(nil)

// ====== Wire format ======

type sheet struct {
	Columns []column `json:"columns"`
	Rows    []row    `json:"rows"`
}

type column struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type row struct {
	ID         int64  `json:"id"`
	ModifiedAt string `json:"modifiedAt"`
	Cells      []cell `json:"cells"`
}

type cell struct {
	ColumnID int64       `json:"columnId"`
	Value    interface{} `json:"value,omitempty"`
}

type rowUpdate struct {
	ID    int64  `json:"id,omitempty"`
	Cells []cell `json:"cells"`
}

type errorBody struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}

// Fetch returns the sheet's rows as tasks. Filters match on the task
// fields after mapping (supported keys: status, priority, project,
// assigned_to).
func (c *Client) Fetch(ctx context.Context, filters map[string]string) ([]types.Task, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SmartsheetFetch")
	defer timer.Stop()

	var s sheet
	if err := c.do(ctx, "GET", fmt.Sprintf("/sheets/%s?include=attachments", c.sheetID), nil, &s); err != nil {
		return nil, err
	}
	c.cacheColumns(s.Columns)

	byID := map[int64]string{}
	for _, col := range s.Columns {
		byID[col.ID] = col.Title
	}

	tasks := make([]types.Task, 0, len(s.Rows))
	for _, r := range s.Rows {
		task := rowToTask(r, byID)
		if matchesFilters(task, filters) {
			tasks = append(tasks, task)
		}
	}
	logging.StoreDebug("fetched %d tasks from sheet %s", len(tasks), c.sheetID)
	return tasks, nil
}

// Update writes a field diff to one row and returns the refreshed task.
func (c *Client) Update(ctx context.Context, id string, fieldDiff map[string]interface{}) (*types.Task, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, derr.NewNotFoundError("task", id)
	}

	cells, err := c.diffToCells(ctx, fieldDiff)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("no mappable fields in update for task %s", id)
	}

	payload := []rowUpdate{{ID: rowID, Cells: cells}}
	var resp struct {
		Result []row `json:"result"`
	}
	if err := c.do(ctx, "PUT", fmt.Sprintf("/sheets/%s/rows", c.sheetID), payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, derr.NewNotFoundError("task", id)
	}

	byID, err := c.columnTitles(ctx)
	if err != nil {
		return nil, err
	}
	task := rowToTask(resp.Result[0], byID)
	return &task, nil
}

// Create adds a row from a field map and returns the new task.
func (c *Client) Create(ctx context.Context, fields map[string]interface{}) (*types.Task, error) {
	cells, err := c.diffToCells(ctx, fields)
	if err != nil {
		return nil, err
	}

	payload := []rowUpdate{{Cells: cells}}
	var resp struct {
		Result []row `json:"result"`
	}
	if err := c.do(ctx, "POST", fmt.Sprintf("/sheets/%s/rows", c.sheetID), payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("row creation returned no result")
	}

	byID, err := c.columnTitles(ctx)
	if err != nil {
		return nil, err
	}
	task := rowToTask(resp.Result[0], byID)
	return &task, nil
}

// ====== Internals ======

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return derr.NewBackendError("smartsheet", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return derr.NewBackendError("smartsheet", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return derr.NewNotFoundError("sheet resource", path)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorBody
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return derr.NewBackendError("smartsheet", fmt.Errorf("API error %d: %s", apiErr.ErrorCode, apiErr.Message))
		}
		return derr.NewBackendError("smartsheet", fmt.Errorf("API request failed with status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return derr.NewBackendError("smartsheet", fmt.Errorf("failed to parse response: %w", err))
		}
	}
	return nil
}

func (c *Client) cacheColumns(cols []column) {
	m := make(map[string]int64, len(cols))
	for _, col := range cols {
		m[col.Title] = col.ID
	}
	c.columns = m
}

// columnTitles returns the id-to-title map, fetching the sheet columns
// if they are not cached yet.
func (c *Client) columnTitles(ctx context.Context) (map[int64]string, error) {
	if c.columns == nil {
		var s sheet
		if err := c.do(ctx, "GET", fmt.Sprintf("/sheets/%s?pageSize=1", c.sheetID), nil, &s); err != nil {
			return nil, err
		}
		c.cacheColumns(s.Columns)
	}
	byID := make(map[int64]string, len(c.columns))
	for title, id := range c.columns {
		byID[id] = title
	}
	return byID, nil
}

func (c *Client) diffToCells(ctx context.Context, diff map[string]interface{}) ([]cell, error) {
	if _, err := c.columnTitles(ctx); err != nil {
		return nil, err
	}

	var cells []cell
	for field, value := range diff {
		if field == "comment" {
			// Comments append to notes rather than replacing them.
			field = "notes"
		}
		title, ok := fieldColumns[field]
		if !ok {
			logging.StoreDebug("ignoring unmapped field %q", field)
			continue
		}
		colID, ok := c.columns[title]
		if !ok {
			logging.Get(logging.CategoryStore).Warn("sheet has no %q column, dropping field %q", title, field)
			continue
		}
		cells = append(cells, cell{ColumnID: colID, Value: value})
	}
	return cells, nil
}

func rowToTask(r row, byID map[int64]string) types.Task {
	task := types.Task{
		ID:     strconv.FormatInt(r.ID, 10),
		Source: "smartsheet",
	}
	if r.ModifiedAt != "" {
		if ts, err := time.Parse(time.RFC3339, r.ModifiedAt); err == nil {
			task.ModifiedAt = &ts
		}
	}
	for _, cl := range r.Cells {
		title := byID[cl.ColumnID]
		if cl.Value == nil {
			continue
		}
		switch title {
		case colTitle:
			task.Title, _ = cl.Value.(string)
		case colStatus:
			task.Status, _ = cl.Value.(string)
		case colPriority:
			task.Priority, _ = cl.Value.(string)
		case colDueDate:
			task.DueDate, _ = cl.Value.(string)
		case colAssignedTo:
			task.AssignedTo, _ = cl.Value.(string)
		case colProject:
			task.Project, _ = cl.Value.(string)
		case colNotes:
			task.Notes, _ = cl.Value.(string)
		case colContactFlag:
			task.ContactFlag, _ = cl.Value.(bool)
		case colRecurring:
			task.Recurring, _ = cl.Value.(string)
		case colEstimatedHours:
			task.EstimatedHours, _ = cl.Value.(string)
		case colNumber:
			if n, ok := cl.Value.(float64); ok {
				task.Number = &n
			}
		}
	}
	return task
}

func matchesFilters(task types.Task, filters map[string]string) bool {
	for key, want := range filters {
		var got string
		switch key {
		case "status":
			got = task.Status
		case "priority":
			got = task.Priority
		case "project":
			got = task.Project
		case "assigned_to":
			got = task.AssignedTo
		default:
			continue
		}
		if !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}
