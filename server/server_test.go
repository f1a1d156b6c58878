package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ravisk/folio"
)

const tradebookCSV = `symbol,isin,trade_date,exchange,segment,series,trade_type,quantity,price
TATA,INE155A01022,2025-01-01,NSE,EQ,EQ,buy,10,100
TATA,INE155A01022,2025-01-02,NSE,EQ,EQ,buy,10,120
TATA,INE155A01022,2025-01-03,NSE,EQ,EQ,sell,10,150
`

const noteCSV = "0,1,2,3\n,,,01-01-2025\nTaxable value of Supply,,,,,,,,,,-20\n"

func testServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := New(zap.NewNop(), "INR")
	return s, s.Router()
}

func loadedServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s, handler := testServer(t)

	trades := []folio.Trade{
		folio.NewTrade("TATA", folio.NewDate(2025, time.January, 1), folio.Buy, folio.Q(10), folio.M(1000, "")),
		folio.NewTrade("TATA", folio.NewDate(2025, time.January, 3), folio.Sell, folio.Q(5), folio.M(700, "")),
	}
	s.Load(trades, folio.NewCharges())
	return s, handler
}

func doJSON(t *testing.T, handler http.Handler, req *http.Request, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestHealthz(t *testing.T) {
	_, handler := testServer(t)

	rec := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDashboard(t *testing.T) {
	_, handler := loadedServer(t)

	var resp struct {
		Holdings []struct {
			Symbol   string `json:"symbol"`
			Quantity string `json:"qty"`
			Invested string `json:"invested"`
		} `json:"holdings"`
		Invested    string   `json:"invested"`
		RealizedPnL string   `json:"realized_pnl"`
		FYList      []string `json:"fy_list"`
		Currency    string   `json:"currency"`
	}
	rec := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, resp.Holdings, 1)
	require.Equal(t, "TATA", resp.Holdings[0].Symbol)
	require.Equal(t, "5", resp.Holdings[0].Quantity)
	require.Equal(t, "500", resp.Holdings[0].Invested)
	require.Equal(t, "500", resp.Invested)
	// Sold 5 for 700 against a cost of 500.
	require.Equal(t, "200", resp.RealizedPnL)
	require.Equal(t, []string{"FY2025"}, resp.FYList)
	require.Equal(t, "INR", resp.Currency)
}

func TestDashboard_FinancialYearFilter(t *testing.T) {
	s, handler := testServer(t)
	trades := []folio.Trade{
		folio.NewTrade("TATA", folio.NewDate(2025, time.January, 10), folio.Buy, folio.Q(10), folio.M(1000, "")),
		folio.NewTrade("TATA", folio.NewDate(2025, time.February, 10), folio.Sell, folio.Q(5), folio.M(700, "")),
		folio.NewTrade("TATA", folio.NewDate(2025, time.June, 10), folio.Sell, folio.Q(5), folio.M(800, "")),
	}
	s.Load(trades, folio.NewCharges())

	var resp struct {
		RealizedPnL string `json:"realized_pnl"`
	}
	// The June sell falls in the next financial year.
	rec := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard?fy=FY2026", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "300", resp.RealizedPnL)

	rec = doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard?fy=FY2025", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "200", resp.RealizedPnL)

	// Without the parameter the figure stays all-time.
	rec = doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "500", resp.RealizedPnL)
}

func TestDashboard_Empty(t *testing.T) {
	_, handler := testServer(t)

	var resp struct {
		Holdings []any `json:"holdings"`
	}
	rec := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, resp.Holdings)
}

func TestRealizedReport(t *testing.T) {
	_, handler := loadedServer(t)

	var resp struct {
		Rows []struct {
			Symbol        string `json:"symbol"`
			Gain          string `json:"gain"`
			FinancialYear string `json:"fy"`
		} `json:"rows"`
	}
	rec := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/reports/realized?fy=FY2025", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Rows, 1)
	require.Equal(t, "TATA", resp.Rows[0].Symbol)
	require.Equal(t, "200", resp.Rows[0].Gain)
	require.Equal(t, "FY2025", resp.Rows[0].FinancialYear)

	rec = doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/reports/realized?fy=FY2030", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSummary(t *testing.T) {
	s, handler := testServer(t)
	charges := folio.NewCharges()
	charges.Add(folio.NewDate(2025, time.January, 1), folio.M(20, ""))
	s.Load(nil, charges)

	var resp struct {
		ChargesByFY []struct {
			FinancialYear string `json:"fy"`
			Total         string `json:"total"`
		} `json:"charges_by_fy"`
	}
	rec := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/reports/summary", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.ChargesByFY, 1)
	require.Equal(t, "FY2025", resp.ChargesByFY[0].FinancialYear)
	require.Equal(t, "20", resp.ChargesByFY[0].Total)
}

func aliasRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/symbols/aliases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSymbolAliases(t *testing.T) {
	s, handler := testServer(t)

	// A history spanning a ticker rename: the sell references the new name.
	trades := []folio.Trade{
		folio.NewTrade("ZOMATO", folio.NewDate(2025, time.January, 1), folio.Buy, folio.Q(10), folio.M(1000, "")),
		folio.NewTrade("ETERNAL", folio.NewDate(2025, time.January, 2), folio.Sell, folio.Q(5), folio.M(700, "")),
	}
	s.Load(trades, folio.NewCharges())

	// Without the alias the two names are separate instruments and the sell
	// oversells.
	rec := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard", nil), nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, handler, aliasRequest(`{"aliases":[{"from_symbol":"zomato","to_symbol":"eternal"}]}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Holdings []struct {
			Symbol   string `json:"symbol"`
			Quantity string `json:"qty"`
		} `json:"holdings"`
		SymbolAliases map[string]string `json:"symbol_aliases"`
	}
	rec = doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard", nil), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Holdings, 1)
	require.Equal(t, "ETERNAL", resp.Holdings[0].Symbol)
	require.Equal(t, "5", resp.Holdings[0].Quantity)
	require.Equal(t, map[string]string{"ZOMATO": "ETERNAL"}, resp.SymbolAliases)
}

func TestSymbolAliases_Invalid(t *testing.T) {
	_, handler := testServer(t)

	rec := doJSON(t, handler, aliasRequest(`{"aliases":[{"from_symbol":"ZOMATO","to_symbol":""}]}`), nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, handler, aliasRequest(`not json`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// multipartUpload builds an ingest request with one tradebook and any number
// of contract notes.
func multipartUpload(t *testing.T, tradebook string, notes ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("tradebook", "tradebook.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(tradebook))
	require.NoError(t, err)

	for _, note := range notes {
		fw, err = mw.CreateFormFile("contracts", "note.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(note))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func commitRequest(id string) *http.Request {
	body := strings.NewReader(`{"staging_id":"` + id + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/ingest/commit", body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestIngest_PreviewThenCommit(t *testing.T) {
	_, handler := testServer(t)

	var preview struct {
		StagingID string `json:"staging_id"`
		Trades    int    `json:"trades"`
		Notes     int    `json:"notes"`
	}
	rec := doJSON(t, handler, multipartUpload(t, tradebookCSV, noteCSV), &preview)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, preview.StagingID)
	require.Equal(t, 3, preview.Trades)
	require.Equal(t, 1, preview.Notes)

	// The preview did not change the served state.
	var dash struct {
		Holdings []any `json:"holdings"`
	}
	rec = doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard", nil), &dash)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, dash.Holdings)

	rec = doJSON(t, handler, commitRequest(preview.StagingID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/dashboard", nil), &dash)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, dash.Holdings, 1)

	// A staging id is consumed by its commit.
	rec = doJSON(t, handler, commitRequest(preview.StagingID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngest_StagingExpires(t *testing.T) {
	s, handler := testServer(t)

	var stale struct {
		StagingID string `json:"staging_id"`
	}
	rec := doJSON(t, handler, multipartUpload(t, tradebookCSV), &stale)
	require.Equal(t, http.StatusOK, rec.Code)

	s.mu.Lock()
	s.staged[stale.StagingID].created = time.Now().Add(-stagingTTL - time.Minute)
	s.mu.Unlock()

	// The next preview sweeps out expired stagings.
	var fresh struct {
		StagingID string `json:"staging_id"`
	}
	rec = doJSON(t, handler, multipartUpload(t, tradebookCSV), &fresh)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, commitRequest(stale.StagingID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, commitRequest(fresh.StagingID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestIngest_CommitUnknownID(t *testing.T) {
	_, handler := testServer(t)

	rec := doJSON(t, handler, commitRequest("nope"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngest_MissingTradebook(t *testing.T) {
	_, handler := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/ingest/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := doJSON(t, handler, req, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_OverSell(t *testing.T) {
	_, handler := testServer(t)

	overSold := `symbol,isin,trade_date,exchange,segment,series,trade_type,quantity,price
TATA,INE155A01022,2025-01-01,NSE,EQ,EQ,buy,10,100
TATA,INE155A01022,2025-01-02,NSE,EQ,EQ,sell,15,100
`
	rec := doJSON(t, handler, multipartUpload(t, overSold), nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "TATA")
}

func TestIngest_MalformedNote(t *testing.T) {
	_, handler := testServer(t)

	rec := doJSON(t, handler, multipartUpload(t, tradebookCSV, "not,a\nnote\n"), nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
