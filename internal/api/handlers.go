package api

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"

	"screener/internal/engine"
	"screener/internal/export"
	"screener/internal/models"
	"screener/internal/views"
)

// Handler serves the screener. It starts without data and answers "loading"
// until SetData installs the dataset.
type Handler struct {
	mu       sync.RWMutex
	screener *engine.Screener
}

func NewHandler(ds *engine.ColumnStore) *Handler {
	h := &Handler{}
	if ds != nil {
		h.SetData(ds)
	}
	return h
}

// SetData installs the dataset with an unfiltered view.
func (h *Handler) SetData(ds *engine.ColumnStore) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.screener = engine.NewScreener(ds)
}

func (h *Handler) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.screener != nil
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.GetPage)

	ui := e.Group("/ui")
	ui.GET("/rows", h.GetRowsFragment)
	ui.POST("/filter", h.PostFilterFragment)
	ui.POST("/sort", h.PostSortFragment)

	api := e.Group("/api")
	api.GET("/status", h.GetStatus)
	api.GET("/columns", h.GetColumns)
	api.GET("/view", h.GetView)
	api.PUT("/filters", h.PutFilters)
	api.PATCH("/filters", h.PatchFilter)
	api.POST("/sort", h.PostSort)
	api.GET("/export.csv", h.GetExportCSV)
	api.GET("/export.xlsx", h.GetExportXLSX)
}

// --- STATE ACCESS ---

func (h *Handler) read(fn func(s *engine.Screener) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.screener == nil {
		return engine.ErrNotLoaded
	}
	return fn(h.screener)
}

func (h *Handler) write(fn func(s *engine.Screener) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.screener == nil {
		return engine.ErrNotLoaded
	}
	return fn(h.screener)
}

// httpError maps engine errors onto status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, engine.ErrNotLoaded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "loading").SetInternal(err)
	case errors.Is(err, engine.ErrUnknownColumn):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return err
}

// viewETag identifies the dataset, filters, sort column and row order.
func viewETag(s *engine.Screener) string {
	d := xxh3.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], s.Dataset().Fingerprint)
	d.Write(buf[:])
	fs := s.Filters()
	for _, c := range engine.FilterColumns {
		d.WriteString(fs[c])
		d.Write([]byte{0})
	}
	d.WriteString(s.SortColumn())
	for _, row := range s.View() {
		binary.LittleEndian.PutUint64(buf[:], uint64(row))
		d.Write(buf[:])
	}
	return strconv.Quote(fmt.Sprintf("%016x", d.Sum64()))
}

// --- PAGE ---

func (h *Handler) tableData() views.TableData {
	d := views.TableData{
		Columns: slices.Clone(engine.FilterColumns),
		Filters: engine.NewFilterSet(),
	}
	_ = h.read(func(s *engine.Screener) error {
		d.Loaded = true
		d.Filters = s.Filters()
		d.SortColumn = s.SortColumn()
		d.Rows = s.Rows()
		return nil
	})
	return d
}

// render buffers the component so a failed render still reaches echo's error
// handler instead of a half-written 200.
func render(c echo.Context, comp templ.Component) error {
	var buf bytes.Buffer
	if err := comp.Render(c.Request().Context(), &buf); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) GetPage(c echo.Context) error {
	return render(c, views.Page(h.tableData()))
}

func (h *Handler) GetRowsFragment(c echo.Context) error {
	return render(c, views.Fragment(h.tableData()))
}

// PostFilterFragment is fired on every keystroke in a filter input.
func (h *Handler) PostFilterFragment(c echo.Context) error {
	var req models.FilterUpdate
	if err := c.Bind(&req); err != nil {
		return err
	}
	err := h.write(func(s *engine.Screener) error { return s.SetFilter(req.Column, req.Value) })
	if err != nil && !errors.Is(err, engine.ErrNotLoaded) {
		return httpError(err)
	}
	return render(c, views.Fragment(h.tableData()))
}

// PostSortFragment is fired by a header click.
func (h *Handler) PostSortFragment(c echo.Context) error {
	var req models.SortRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	err := h.write(func(s *engine.Screener) error { return s.HandleSort(req.Column) })
	if err != nil && !errors.Is(err, engine.ErrNotLoaded) {
		return httpError(err)
	}
	return render(c, views.Fragment(h.tableData()))
}

// --- JSON API ---

func (h *Handler) GetStatus(c echo.Context) error {
	st := models.Status{}
	_ = h.read(func(s *engine.Screener) error {
		st.Loaded = true
		st.Rows = s.Dataset().Len()
		st.Visible = len(s.View())
		st.Fingerprint = fmt.Sprintf("%016x", s.Dataset().Fingerprint)
		return nil
	})
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) GetColumns(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":    engine.NameColumn,
		"filters": engine.FilterColumns,
	})
}

func (h *Handler) GetView(c echo.Context) error {
	var (
		resp models.ViewResponse
		etag string
	)
	err := h.read(func(s *engine.Screener) error {
		etag = viewETag(s)
		resp = s.Response()
		return nil
	})
	if err != nil {
		return httpError(err)
	}

	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, resp)
}

// mutate applies fn and responds with the resulting view.
func (h *Handler) mutate(c echo.Context, fn func(s *engine.Screener) error) error {
	var resp models.ViewResponse
	err := h.write(func(s *engine.Screener) error {
		if err := fn(s); err != nil {
			return err
		}
		resp = s.Response()
		return nil
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// PutFilters replaces the whole FilterSet. Absent columns become "".
func (h *Handler) PutFilters(c echo.Context) error {
	fs := engine.FilterSet{}
	if err := c.Bind(&fs); err != nil {
		return err
	}
	return h.mutate(c, func(s *engine.Screener) error { return s.ApplyFilters(fs) })
}

func (h *Handler) PatchFilter(c echo.Context) error {
	var req models.FilterUpdate
	if err := c.Bind(&req); err != nil {
		return err
	}
	return h.mutate(c, func(s *engine.Screener) error { return s.SetFilter(req.Column, req.Value) })
}

func (h *Handler) PostSort(c echo.Context) error {
	var req models.SortRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	return h.mutate(c, func(s *engine.Screener) error { return s.HandleSort(req.Column) })
}

// --- EXPORT ---

func (h *Handler) exportRows() ([]models.ViewRow, error) {
	var rows []models.ViewRow
	err := h.read(func(s *engine.Screener) error {
		rows = s.Rows()
		return nil
	})
	return rows, httpError(err)
}

func (h *Handler) GetExportCSV(c echo.Context) error {
	rows, err := h.exportRows()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		return fmt.Errorf("csv export: %w", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="screener.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) GetExportXLSX(c echo.Context) error {
	rows, err := h.exportRows()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows); err != nil {
		log.Error().Err(err).Msg("xlsx export failed")
		return fmt.Errorf("xlsx export: %w", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="screener.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
