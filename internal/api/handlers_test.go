package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"screener/internal/config"
	"screener/internal/engine"
	"screener/internal/export"
	"screener/internal/models"
)

func testStore(t *testing.T) *engine.ColumnStore {
	t.Helper()
	cs, err := engine.Parse(strings.NewReader(
		"Name,CMP (Rs.),P/E\n" +
			"Asian Paints,2900,55.1\n" +
			"Bharti Airtel,1550,abc\n" +
			"Cipla,1480,27\n"))
	require.NoError(t, err)
	return cs
}

func newTestServer(t *testing.T, ds *engine.ColumnStore) (*echo.Echo, *Handler) {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	cfg.Rate.Enabled = false

	h := NewHandler(ds)
	return NewServer(cfg, h), h
}

func do(e *echo.Echo, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) models.ViewResponse {
	t.Helper()
	var v models.ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func rowNames(v models.ViewResponse) []string {
	out := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r.Name
	}
	return out
}

func TestLoadingState(t *testing.T) {
	e, h := newTestServer(t, nil)
	assert.False(t, h.Loaded())

	rec := do(e, http.MethodGet, "/api/view", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "loading")

	rec = do(e, http.MethodPost, "/api/sort", echo.MIMEApplicationJSON, `{"column":"P/E"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(e, http.MethodGet, "/api/status", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loaded":false,"rows":0,"visible":0}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<td colspan="11">Loading...</td>`)

	// The loading placeholder survives keystrokes
	form := url.Values{"column": {"P/E"}, "value": {"5"}}.Encode()
	rec = do(e, http.MethodPost, "/ui/filter", echo.MIMEApplicationForm, form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Loading...")
}

func TestSetDataEndsLoading(t *testing.T) {
	e, h := newTestServer(t, nil)
	h.SetData(testStore(t))

	rec := do(e, http.MethodGet, "/api/view", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	v := decodeView(t, rec)
	assert.Equal(t, 3, v.Total)
	assert.Equal(t, 3, v.Visible)
	assert.Equal(t, []string{"Asian Paints", "Bharti Airtel", "Cipla"}, rowNames(v))
	assert.Equal(t, engine.FilterColumns, v.Columns)
	assert.Len(t, v.Filters, len(engine.FilterColumns))
}

func TestPatchFilterAndSort(t *testing.T) {
	e, _ := newTestServer(t, testStore(t))

	rec := do(e, http.MethodPost, "/api/sort", echo.MIMEApplicationJSON, `{"column":"P/E"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, []string{"Cipla", "Asian Paints", "Bharti Airtel"}, rowNames(v))
	assert.Equal(t, "P/E", v.SortColumn)
	assert.Equal(t, 1, v.Rows[0].SNo)
	assert.Equal(t, 2, v.Rows[0].Index)

	rec = do(e, http.MethodPatch, "/api/filters", echo.MIMEApplicationJSON, `{"column":"CMP (Rs.)","value":"50"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, []string{"Bharti Airtel"}, rowNames(v))
	assert.Empty(t, v.SortColumn)
}

func TestPutFilters(t *testing.T) {
	e, _ := newTestServer(t, testStore(t))

	rec := do(e, http.MethodPut, "/api/filters", echo.MIMEApplicationJSON, `{"P/E":"5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, []string{"Asian Paints"}, rowNames(v))
	assert.Equal(t, "", v.Filters["ROCE (%)"])

	rec = do(e, http.MethodPut, "/api/filters", echo.MIMEApplicationJSON, `{"P/E":"zzz"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, 0, v.Visible)
	assert.Empty(t, v.Rows)
}

func TestUnknownColumnIsBadRequest(t *testing.T) {
	e, _ := newTestServer(t, testStore(t))

	rec := do(e, http.MethodPost, "/api/sort", echo.MIMEApplicationJSON, `{"column":"Name"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPut, "/api/filters", echo.MIMEApplicationJSON, `{"Volume":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPatch, "/api/filters", echo.MIMEApplicationJSON, `{"column":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewETag(t *testing.T) {
	e, _ := newTestServer(t, testStore(t))

	rec := do(e, http.MethodGet, "/api/view", "", "")
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	do(e, http.MethodPost, "/api/sort", echo.MIMEApplicationJSON, `{"column":"CMP (Rs.)"}`)
	rec = do(e, http.MethodGet, "/api/view", "", "")
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestUIFragments(t *testing.T) {
	e, _ := newTestServer(t, testStore(t))

	rec := do(e, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "<td>Asian Paints</td>")
	assert.NotContains(t, page, "Loading...")

	form := url.Values{"column": {"CMP (Rs.)"}}.Encode()
	rec = do(e, http.MethodPost, "/ui/sort", echo.MIMEApplicationForm, form)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `<tbody id="rows">`))
	assert.Less(t, strings.Index(body, "Cipla"), strings.Index(body, "Asian Paints"))
	assert.Contains(t, body, `<thead id="head" hx-swap-oob="true">`)
	assert.Contains(t, body, `<th class="sorted" hx-post="/ui/sort" hx-target="#rows" hx-swap="outerHTML" hx-vals="{&#34;column&#34;:&#34;CMP (Rs.)&#34;}">CMP (Rs.)</th>`)

	form = url.Values{"column": {"P/E"}, "value": {"no match"}}.Encode()
	rec = do(e, http.MethodPost, "/ui/filter", echo.MIMEApplicationForm, form)
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `<tbody id="rows"></tbody><thead id="head" hx-swap-oob="true">`))
	assert.NotContains(t, body, `class="sorted"`)
}

func TestRenderFailureIsServerError(t *testing.T) {
	e := echo.New()
	e.GET("/broken", func(c echo.Context) error {
		return render(c, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			if _, err := io.WriteString(w, "<tbody id=\"rows\">"); err != nil {
				return err
			}
			return errors.New("cell formatting failed")
		}))
	})

	rec := do(e, http.MethodGet, "/broken", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<tbody")
}

func TestExports(t *testing.T) {
	e, _ := newTestServer(t, testStore(t))
	do(e, http.MethodPatch, "/api/filters", echo.MIMEApplicationJSON, `{"column":"P/E","value":"5"}`)

	rec := do(e, http.MethodGet, "/api/export.csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "1,Asian Paints,2900,55.1"))

	rec = do(e, http.MethodGet, "/api/export.xlsx", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
