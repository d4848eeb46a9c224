package riskmatrix

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohs/ohs/internal/platform/auth"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected echo.HTTPError, got %T", err)
	return httpErr.Code
}

func newRequest(method, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	ctx := auth.WithIdentity(req.Context(), "alice", []string{auth.RoleAdmin})
	return req.WithContext(ctx)
}

func TestHandler_Create(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	body := fmt.Sprintf(`{"version":"1.0","exam_periodicity_months":12,
		"rows":[{"hazard_id":%q,"nd":10,"ne":3,"nc":60,"measured_value":{"kind":"numeric","value":"92.5"}}]}`, f.noise)
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, body), rec)
	c.SetParamNames("position_id")
	c.SetParamValues(f.welder.String())

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice", got["created_by"])
	assert.Equal(t, "active", got["state"])
	rows := got["rows"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "dB", row["unit"])
	cls := row["classification"].(map[string]interface{})
	assert.Equal(t, float64(1800), cls["nr"])
	assert.Equal(t, "I", cls["intervention_level"])
}

func TestHandler_Create_Invalid(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	c := e.NewContext(newRequest(http.MethodPost, `{"version":"1.0","exam_periodicity_months":18}`), httptest.NewRecorder())
	c.SetParamNames("position_id")
	c.SetParamValues(f.welder.String())

	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.Create(c)))
}

func TestHandler_Get_InvalidAndMissing(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()

	c := e.NewContext(newRequest(http.MethodGet, ""), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("nope")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.Get(c)))

	c = e.NewContext(newRequest(http.MethodGet, ""), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	assert.Equal(t, http.StatusNotFound, statusOf(t, h.Get(c)))
}

func TestHandler_ListByPosition(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	require.NoError(t, f.svc.Create(newRequest(http.MethodGet, "").Context(), f.newMatrix("1.0", 12), "alice"))

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, ""), rec)
	c.SetParamNames("position_id")
	c.SetParamValues(f.welder.String())
	require.NoError(t, h.ListByPosition(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data  []map[string]interface{} `json:"data"`
		Total int                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Len(t, page.Data, 1)
}

func TestHandler_ListByPosition_Empty(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, ""), rec)
	c.SetParamNames("position_id")
	c.SetParamValues(f.welder.String())
	require.NoError(t, h.ListByPosition(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var page map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.JSONEq(t, `[]`, string(page["data"]))
	assert.JSONEq(t, `0`, string(page["total"]))
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	m := f.newMatrix("1.0", 12)
	require.NoError(t, f.svc.Create(newRequest(http.MethodGet, "").Context(), m, "alice"))

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPut, `{"company":"Acme Steel"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())
	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme Steel", f.repo.matrices[m.ID].Company)
	assert.Equal(t, "alice", f.repo.matrices[m.ID].ModifiedBy)

	rec = httptest.NewRecorder()
	c = e.NewContext(newRequest(http.MethodDelete, ""), rec)
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.repo.matrices)
}

func TestHandler_Duplicate(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	m := f.newMatrix("1.0", 12)
	require.NoError(t, f.svc.Create(newRequest(http.MethodGet, "").Context(), m, "alice"))
	target := f.positions.add("Fitter", "FIT-01")

	body := fmt.Sprintf(`{"target_position_ids":[%q,%q]}`, target, uuid.New())
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, body), rec)
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())
	require.NoError(t, h.Duplicate(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var results []DuplicateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
}
