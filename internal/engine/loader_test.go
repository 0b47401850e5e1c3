package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/models"
)

const sampleCSV = "\uFEFFName,CMP (Rs.),P/E,Mar Cap (Rs. Cr.),Div Yld (%),NP Qtr (Rs. Cr.),Qtr Profit Var (%),Sales Qtr (Rs. Cr.),Qtr Sales Var (%),ROCE (%)\n" +
	"Reliance Industries,2950.5,28.1,1996000,0.34,17265,-5.4,236217,11.5,9.1\n" +
	"\"Tata Consultancy Services, Ltd.\",4100,31.5,1485000,1.2,12040,8.7,60583,5.4,64.3\n" +
	"\n" +
	"Short Row Co,120\n"

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "companies_*.csv")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestLoadFile(t *testing.T) {
	path := writeTemp(t, sampleCSV)

	store, err := NewLoader(0).Load(context.Background(), path)
	require.NoError(t, err)
	defer store.Release()

	// Blank line skipped, three rows remain
	require.Equal(t, 3, store.Len())
	assert.NotZero(t, store.Fingerprint)

	// BOM stripped from the first header
	assert.True(t, store.HasColumn(NameColumn))
	assert.Equal(t, "Reliance Industries", store.Text(0, NameColumn))

	// Quoted field with a comma
	assert.Equal(t, "Tata Consultancy Services, Ltd.", store.Text(1, NameColumn))
	assert.Equal(t, "31.5", store.Text(1, "P/E"))

	// Short row: supplied cells present, the rest missing
	v, ok := store.Value(2, "CMP (Rs.)")
	assert.True(t, ok)
	assert.Equal(t, "120", v)
	_, ok = store.Value(2, "ROCE (%)")
	assert.False(t, ok)
	assert.Equal(t, models.Row{"Name": "Short Row Co", "CMP (Rs.)": "120"}, store.Row(2))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(0).Load(context.Background(), "does/not/exist.csv")
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "does/not/exist.csv", le.Location)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeTemp(t, "")

	_, err := NewLoader(0).Load(context.Background(), path)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, err.Error(), "missing header row")
}

func TestLoadHeaderOnly(t *testing.T) {
	path := writeTemp(t, "Name,P/E\n")

	store, err := NewLoader(0).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
	assert.False(t, store.HasColumn("ROCE (%)"))
}

func TestLoadRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/companies_data.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	loader := &Loader{Client: srv.Client()}

	store, err := loader.Load(context.Background(), srv.URL+"/companies_data.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	_, err = loader.Load(context.Background(), srv.URL+"/missing.csv")
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.Error(), "unexpected status 404")
}

func TestParseDuplicateHeader(t *testing.T) {
	store, err := Parse(strings.NewReader("Name,P/E,P/E\nA,1,2\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "P/E"}, store.Header())
	assert.Equal(t, "1", store.Text(0, "P/E"))
}

func TestParseExtraFieldsDropped(t *testing.T) {
	store, err := Parse(strings.NewReader("Name,P/E\nA,1,extra,more\n"))
	require.NoError(t, err)

	assert.Equal(t, models.Row{"Name": "A", "P/E": "1"}, store.Row(0))
}
