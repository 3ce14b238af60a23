package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartek5186/cennik/internal/db"
	"github.com/bartek5186/cennik/internal/db/dbtest"
	"github.com/bartek5186/cennik/internal/importer"
)

type testAPI struct {
	h   *db.Handle
	srv http.Handler
	sup db.Supplier
	ps  db.ProductSupplier
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	h := dbtest.Open(t)
	svc := importer.New(h.DB, zerolog.Nop(), importer.Options{})
	a := &testAPI{h: h, srv: New(svc, zerolog.Nop(), Options{MaxUploadMB: 1}).Router()}
	a.sup = dbtest.Supplier(t, h, "Hurtownia", "10", nil)
	p := dbtest.Product(t, h, "Śruba", nil)
	a.ps = dbtest.Association(t, h, db.ProductSupplier{
		ProductID: p.ID, SupplierID: a.sup.ID, SupplierSKU: "ABC-1",
		SupplierCost: 500, UnitCost: 500, Active: true,
	})
	return a
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) stageText(t *testing.T, text string) importer.RunView {
	t.Helper()
	form := url.Values{"text": {text}, "file_discount": {"5"}}
	req := httptest.NewRequest(http.MethodPost, "/api/suppliers/"+strconv.Itoa(int(a.sup.ID))+"/runs", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(ActorHeader, "3")

	rec := a.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var v importer.RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "/api/runs/"+v.Token, rec.Header().Get("Location"))
	return v
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestFullFlow(t *testing.T) {
	a := newTestAPI(t)

	v := a.stageText(t, "SKU;Cena\nabc-1;1000\nZZZ-NOTFOUND;10\n")
	assert.Equal(t, importer.StatusStaged, v.Status)
	assert.Equal(t, uint(3), *v.CreatedBy)
	base := "/api/runs/" + v.Token

	rec := a.do(t, httptest.NewRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, jsonReq(http.MethodPost, base+"/mapping", `{"sku":"SKU","price":"Cena"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var fin importer.FinalizeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fin))
	assert.Equal(t, 2, fin.Rows)
	assert.Equal(t, 1, fin.Matched)

	rec = a.do(t, httptest.NewRequest(http.MethodPost, base+"/match", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, httptest.NewRequest(http.MethodGet, base+"/rows", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []importer.RowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, db.RowUnmatched, rows[1].Status)

	apply := httptest.NewRequest(http.MethodPost, base+"/apply", nil)
	apply.Header.Set(ActorHeader, "9")
	rec = a.do(t, apply)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res importer.ApplyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.HistoryEntries)

	var ps db.ProductSupplier
	require.NoError(t, a.h.DB.Take(&ps, a.ps.ID).Error)
	assert.Equal(t, int64(855), ps.SupplierCost)

	// drugi raz: przekierowanie do runu, bez zapisów
	rec = a.do(t, httptest.NewRequest(http.MethodPost, base+"/apply", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, base, rec.Header().Get("Location"))

	rec = a.do(t, httptest.NewRequest(http.MethodGet, base+"/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var hist []importer.HistoryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist, 1)
	assert.Equal(t, uint(9), *hist[0].ActorID)

	rec = a.do(t, jsonReq(http.MethodPost, base+"/mapping", `{"sku":"SKU","price":"Cena"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RUN002", decodeErr(t, rec).Code)
}

func TestStageMultipart(t *testing.T) {
	a := newTestAPI(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "cennik.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("kod,cena\nABC-1,\"12,50\"\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/suppliers/"+strconv.Itoa(int(a.sup.ID))+"/runs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := a.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var v importer.RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "csv", v.Format)
	assert.Equal(t, ",", v.Delimiter)
	assert.Equal(t, "cennik.csv", v.Filename)
	assert.Equal(t, "kod", v.Summary.Proposed.SKU)
}

func TestStageCorruptXLSX(t *testing.T) {
	a := newTestAPI(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "c.xlsx")
	require.NoError(t, err)
	_, err = fw.Write([]byte("PK\x03\x04garbage, not a workbook"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/suppliers/"+strconv.Itoa(int(a.sup.ID))+"/runs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := a.do(t, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "IMP008", decodeErr(t, rec).Code)
}

func TestErrors(t *testing.T) {
	a := newTestAPI(t)
	sup := "/api/suppliers/" + strconv.Itoa(int(a.sup.ID)) + "/runs"

	form := func(path string, vals url.Values) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}

	cases := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"unknown run", httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil), http.StatusNotFound, "RUN001"},
		{"apply unknown run", httptest.NewRequest(http.MethodPost, "/api/runs/nope/apply", nil), http.StatusNotFound, "RUN001"},
		{"empty text", form(sup, url.Values{"text": {""}}), http.StatusBadRequest, "IMP002"},
		{"bad discount", form(sup, url.Values{"text": {"a;b\n1;2"}, "file_discount": {"x"}}), http.StatusBadRequest, "IMP007"},
		{"discount over 100", form(sup, url.Values{"text": {"a;b\n1;2"}, "file_discount": {"150"}}), http.StatusBadRequest, "IMP007"},
		{"bad delimiter", form(sup, url.Values{"text": {"a;b\n1;2"}, "delimiter": {"#"}}), http.StatusBadRequest, ""},
		{"unknown supplier", form("/api/suppliers/999/runs", url.Values{"text": {"a;b\n1;2"}}), http.StatusUnprocessableEntity, "IMP001"},
		{"header only", form(sup, url.Values{"text": {"a;b\n"}}), http.StatusUnprocessableEntity, "IMP006"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, tc.req)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeErr(t, rec).Code)
		})
	}

	t.Run("bad actor header", func(t *testing.T) {
		req := form(sup, url.Values{"text": {"a;b\n1;2"}})
		req.Header.Set(ActorHeader, "admin")
		rec := a.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	v := a.stageText(t, "SKU;Cena\nABC-1;10\n")
	base := "/api/runs/" + v.Token

	t.Run("unknown column", func(t *testing.T) {
		rec := a.do(t, jsonReq(http.MethodPost, base+"/mapping", `{"sku":"SKU","price":"Price"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "MAP001", decodeErr(t, rec).Code)
	})

	t.Run("incomplete mapping", func(t *testing.T) {
		rec := a.do(t, jsonReq(http.MethodPost, base+"/mapping", `{"sku":"SKU"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "MAP002", decodeErr(t, rec).Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := a.do(t, jsonReq(http.MethodPost, base+"/mapping", `{"sku":`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("apply before mapping", func(t *testing.T) {
		rec := a.do(t, httptest.NewRequest(http.MethodPost, base+"/apply", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "RUN003", decodeErr(t, rec).Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cennik_http_requests_total")
}
