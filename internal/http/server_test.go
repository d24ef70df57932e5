package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/cloudexport"
	"tally/internal/core"
	"tally/internal/session"
	"tally/internal/storage"
)

var apiNow = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	kv := storage.NewMemoryStore()
	repo := storage.NewExpenseRepository(storage.NewExpenseGateway(kv))
	coordinator := session.NewCoordinator(repo, session.WithClock(func() time.Time { return apiNow }))
	coordinator.Start(context.Background())

	hub := cloudexport.NewService(kv,
		cloudexport.WithDelays(cloudexport.Delays{}),
		cloudexport.WithFailureRate(0),
		cloudexport.WithClock(func() time.Time { return apiNow }),
	)

	s := NewServer(":0", coordinator, hub)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func createExpense(t *testing.T, s *Server, amount, category, description, date string) core.Expense {
	t.Helper()
	body, err := json.Marshal(core.ExpenseInput{
		Amount: amount, Category: category, Description: description, Date: date,
	})
	require.NoError(t, err)
	rec := doRequest(t, s, http.MethodPost, "/api/expenses", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var expense core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expense))
	return expense
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
}

func TestCreateExpense(t *testing.T) {
	s := newTestServer(t)

	expense := createExpense(t, s, "42.50", "Food", "Lunch", "2026-08-15")
	assert.NotEmpty(t, expense.ID)
	assert.Equal(t, int64(4250), expense.Amount.Cents)
	assert.Equal(t, core.CategoryFood, expense.Category)

	rec := doRequest(t, s, http.MethodGet, "/api/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list expenseListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Expenses, 1)
	assert.Equal(t, expense.ID, list.Expenses[0].ID)
}

func TestCreateExpenseValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/expenses",
		`{"amount":"-5","category":"Nope","description":"","date":"2099-01-01"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp validationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	for _, field := range []string{"amount", "category", "description", "date"} {
		assert.Contains(t, resp.Errors, field)
	}

	// Nothing was written.
	list := doRequest(t, s, http.MethodGet, "/api/expenses", "")
	var listResp expenseListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listResp))
	assert.Empty(t, listResp.Expenses)
}

func TestCreateExpenseMalformedBody(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/expenses", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateExpense(t *testing.T) {
	s := newTestServer(t)
	expense := createExpense(t, s, "10.00", "Food", "Coffee", "2026-08-01")

	rec := doRequest(t, s, http.MethodPut, "/api/expenses/"+expense.ID, `{"description":"Espresso"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	list := doRequest(t, s, http.MethodGet, "/api/expenses", "")
	var resp expenseListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &resp))
	require.Len(t, resp.Expenses, 1)
	assert.Equal(t, "Espresso", resp.Expenses[0].Description)

	// Invalid patch is rejected with field errors.
	rec = doRequest(t, s, http.MethodPut, "/api/expenses/"+expense.ID, `{"amount":"oops"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Unknown id is a silent no-op.
	rec = doRequest(t, s, http.MethodPut, "/api/expenses/missing", `{"description":"x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteExpense(t *testing.T) {
	s := newTestServer(t)
	expense := createExpense(t, s, "10.00", "Bills", "Rent", "2026-08-01")

	rec := doRequest(t, s, http.MethodDelete, "/api/expenses/"+expense.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Deleting again is idempotent.
	rec = doRequest(t, s, http.MethodDelete, "/api/expenses/"+expense.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	list := doRequest(t, s, http.MethodGet, "/api/expenses", "")
	var resp expenseListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &resp))
	assert.Empty(t, resp.Expenses)
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "30.00", "Food", "Groceries", "2026-08-10")
	createExpense(t, s, "10.00", "Bills", "Water", "2026-07-01")

	rec := doRequest(t, s, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary core.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(4000), summary.TotalSpending.Cents)
	assert.Equal(t, int64(3000), summary.MonthlySpending.Cents)
	assert.Equal(t, core.CategoryFood, summary.TopCategory)
	assert.Len(t, summary.Breakdown, len(core.Categories()))

	// A second read hits the revision-keyed cache and must agree.
	again := doRequest(t, s, http.MethodGet, "/api/summary", "")
	assert.JSONEq(t, rec.Body.String(), again.Body.String())
}

func TestFilters(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "10.00", "Food", "Groceries", "2026-08-10")
	createExpense(t, s, "20.00", "Bills", "Electricity", "2026-08-11")

	rec := doRequest(t, s, http.MethodPut, "/api/filters", `{"category":"Food"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	list := doRequest(t, s, http.MethodGet, "/api/expenses", "")
	var resp expenseListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &resp))
	require.Len(t, resp.Expenses, 1)
	assert.Equal(t, "Groceries", resp.Expenses[0].Description)

	rec = doRequest(t, s, http.MethodPut, "/api/filters", `{"category":"Nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/filters/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list = doRequest(t, s, http.MethodGet, "/api/expenses", "")
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &resp))
	assert.Len(t, resp.Expenses, 2)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "42.50", "Food", "Lunch", "2026-08-15")

	rec := doRequest(t, s, http.MethodGet, "/api/export/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "Date,Category,Description,Amount\n2026-08-15,Food,\"Lunch\",42.50", rec.Body.String())
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "10.00", "Food", "Snack", "2026-08-15")

	rec := doRequest(t, s, http.MethodGet, "/api/export/xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{'P', 'K'}, rec.Body.Bytes()[:2])
}

func TestExportTemplates(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/export/templates", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var templates []cloudexport.ExportTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	assert.Len(t, templates, 5)
}

func TestCloudExportEndpoint(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "10.00", "Food", "Snack", "2026-08-15")

	rec := doRequest(t, s, http.MethodPost, "/api/cloud/exports",
		`{"template":"full-export","destination":"dropbox"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var item cloudexport.ExportHistoryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, cloudexport.StatusCompleted, item.Status)
	assert.Equal(t, 1, item.RecordCount)

	history := doRequest(t, s, http.MethodGet, "/api/cloud/history", "")
	var items []cloudexport.ExportHistoryItem
	require.NoError(t, json.Unmarshal(history.Body.Bytes(), &items))
	assert.Len(t, items, 1)

	rec = doRequest(t, s, http.MethodPost, "/api/cloud/exports",
		`{"template":"full-export","destination":"floppy"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestIntegrationToggleEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/cloud/integrations/dropbox/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["connected"])

	rec = doRequest(t, s, http.MethodPost, "/api/cloud/integrations/bogus/toggle", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestScheduleEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/cloud/schedules",
		`{"template":"weekly-digest","destination":"email","frequency":"weekly"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var schedule cloudexport.ScheduledExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schedule))
	assert.True(t, schedule.Enabled)

	rec = doRequest(t, s, http.MethodPost, "/api/cloud/schedules/"+schedule.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var schedules []cloudexport.ScheduledExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schedules))
	require.Len(t, schedules, 1)
	assert.False(t, schedules[0].Enabled)

	rec = doRequest(t, s, http.MethodDelete, "/api/cloud/schedules/"+schedule.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestShareEndpoints(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "10.00", "Food", "Snack", "2026-08-15")

	rec := doRequest(t, s, http.MethodPost, "/api/cloud/shares",
		`{"template":"full-export","expires_in_days":7,"max_access":5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var share cloudexport.ShareableExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &share))
	assert.Contains(t, share.Link, "https://expensetracker.app/share/")

	list := doRequest(t, s, http.MethodGet, "/api/cloud/shares", "")
	var shares []cloudexport.ShareableExport
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &shares))
	assert.Len(t, shares, 1)
}
