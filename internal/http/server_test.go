package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"caja/internal/core"
	"caja/internal/ledger"
	"caja/internal/services"
	"caja/internal/workbook"
)

func newTestHandler() http.Handler {
	svc := services.NewLedgerService(ledger.New(), nil, nil, "caja")
	return NewServer(":0", svc).Handler
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[errorResponse](t, rec).Error.Code
}

func createMember(t *testing.T, h http.Handler, name string, goal float64) core.Member {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/members", map[string]any{"name": name, "weeklyGoal": goal})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create member %q: status %d, body %s", name, rec.Code, rec.Body)
	}
	return decodeBody[core.Member](t, rec)
}

func TestMemberLifecycle(t *testing.T) {
	h := newTestHandler()

	m := createMember(t, h, "Zulema", 100)
	if m.ID == "" || m.Name != "Zulema" {
		t.Fatalf("unexpected member in response: %+v", m)
	}

	createMember(t, h, "Andrea", 50)

	rec := doJSON(t, h, http.MethodGet, "/api/members", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list members: status %d", rec.Code)
	}
	members := decodeBody[[]core.Member](t, rec)
	if len(members) != 2 || members[0].Name != "Andrea" {
		t.Fatalf("expected sorted pair, got %+v", members)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/members/"+m.ID, map[string]any{"name": "Zulema R.", "weeklyGoal": 120})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update member: status %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/members/"+m.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete member: status %d", rec.Code)
	}

	members = decodeBody[[]core.Member](t, doJSON(t, h, http.MethodGet, "/api/members", nil))
	if len(members) != 1 {
		t.Fatalf("expected one member left, got %d", len(members))
	}
}

func TestCreateMemberValidation(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name string
		body any
		want int
		code string
	}{
		{"missing name", map[string]any{"weeklyGoal": 100}, http.StatusUnprocessableEntity, "validation_error"},
		{"zero goal", map[string]any{"name": "Ana", "weeklyGoal": 0}, http.StatusUnprocessableEntity, "validation_error"},
		{"negative goal", map[string]any{"name": "Ana", "weeklyGoal": -5}, http.StatusUnprocessableEntity, "validation_error"},
		{"unknown field", map[string]any{"name": "Ana", "weeklyGoal": 100, "nickname": "x"}, http.StatusBadRequest, "bad_request"},
		{"blank name", map[string]any{"name": "   ", "weeklyGoal": 100}, http.StatusUnprocessableEntity, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/members", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			if got := errorCode(t, rec); got != tt.code {
				t.Fatalf("error code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestMalformedJSONBody(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDepositRoutes(t *testing.T) {
	h := newTestHandler()
	m := createMember(t, h, "Berta", 100)

	rec := doJSON(t, h, http.MethodPost, "/api/members/"+m.ID+"/deposits", map[string]any{"weekNumber": 3, "penalty": 10})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create deposit: status %d, body %s", rec.Code, rec.Body)
	}
	d := decodeBody[core.Deposit](t, rec)
	if d.WeekNumber != 3 || d.Amount.String() != "110" {
		t.Fatalf("unexpected deposit: %+v", d)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/members/"+m.ID+"/deposits", map[string]any{"weekNumber": 3, "penalty": 0})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "duplicate_deposit" {
		t.Fatalf("duplicate deposit: status %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/members/missing/deposits", map[string]any{"weekNumber": 1, "penalty": 0})
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("deposit for unknown member: status %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/members/"+m.ID+"/deposits/"+d.ID, map[string]any{"penalty": 25})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update deposit: status %d, body %s", rec.Code, rec.Body)
	}
	members := decodeBody[[]core.Member](t, doJSON(t, h, http.MethodGet, "/api/members", nil))
	if got := members[0].Deposits[0].Amount.String(); got != "125" {
		t.Fatalf("amount after penalty update = %s, want 125", got)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/members/"+m.ID+"/deposits/"+d.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete deposit: status %d", rec.Code)
	}
}

func TestLoanAndPaymentRoutes(t *testing.T) {
	h := newTestHandler()
	m := createMember(t, h, "Carla", 500)
	doJSON(t, h, http.MethodPost, "/api/members/"+m.ID+"/deposits", map[string]any{"weekNumber": 1, "penalty": 0})

	rec := doJSON(t, h, http.MethodPost, "/api/loans", map[string]any{"memberId": m.ID, "principalAmount": 1000})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "insufficient_funds" {
		t.Fatalf("loan above fund balance: status %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/loans", map[string]any{"memberId": m.ID, "principalAmount": 400})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan: status %d, body %s", rec.Code, rec.Body)
	}
	loan := decodeBody[core.Loan](t, rec)
	if loan.Status != core.LoanStatusActive {
		t.Fatalf("new loan status = %q", loan.Status)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/loans/"+loan.ID+"/payments", map[string]any{"amount": 5000})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "overpayment" {
		t.Fatalf("overpayment: status %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/loans/"+loan.ID+"/payments", map[string]any{"amount": 420})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record payment: status %d, body %s", rec.Code, rec.Body)
	}
	p := decodeBody[core.LoanPayment](t, rec)

	loans := decodeBody[[]core.Loan](t, doJSON(t, h, http.MethodGet, "/api/loans", nil))
	if len(loans) != 1 || loans[0].Status != core.LoanStatusPaid {
		t.Fatalf("expected settled loan, got %+v", loans)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/loans/"+loan.ID+"/payments/"+p.ID, map[string]any{"amount": 100})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update payment: status %d, body %s", rec.Code, rec.Body)
	}
	loans = decodeBody[[]core.Loan](t, doJSON(t, h, http.MethodGet, "/api/loans", nil))
	if loans[0].Status != core.LoanStatusActive || loans[0].PaidDate != nil {
		t.Fatalf("expected reopened loan, got %+v", loans[0])
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/members/"+m.ID, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "member_has_loans" {
		t.Fatalf("delete borrower: status %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/loans/"+loan.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete loan: status %d", rec.Code)
	}
}

func TestSummaryRoute(t *testing.T) {
	h := newTestHandler()
	m := createMember(t, h, "Diana", 200)
	doJSON(t, h, http.MethodPost, "/api/members/"+m.ID+"/deposits", map[string]any{"weekNumber": 1, "penalty": 50})

	rec := doJSON(t, h, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	sum := decodeBody[core.Summary](t, rec)
	if sum.MemberCount != 1 || sum.TotalDeposits.String() != "250" || sum.TotalPenalties.String() != "50" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newTestHandler()
	m := createMember(t, h, "Elena", 150)
	doJSON(t, h, http.MethodPost, "/api/members/"+m.ID+"/deposits", map[string]any{"weekNumber": 2, "penalty": 0})

	rec := doJSON(t, h, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("export content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "caja-backup-") {
		t.Fatalf("export disposition = %q", cd)
	}
	exported := rec.Body.Bytes()

	fresh := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported))
	importRec := httptest.NewRecorder()
	fresh.ServeHTTP(importRec, req)
	if importRec.Code != http.StatusNoContent {
		t.Fatalf("import: status %d, body %s", importRec.Code, importRec.Body)
	}

	members := decodeBody[[]core.Member](t, doJSON(t, fresh, http.MethodGet, "/api/members", nil))
	if len(members) != 1 || members[0].Name != "Elena" || len(members[0].Deposits) != 1 {
		t.Fatalf("imported state mismatch: %+v", members)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	h := newTestHandler()
	createMember(t, h, "Flora", 100)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("definitely not a workbook"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("garbage import: status %d, body %s", rec.Code, rec.Body)
	}

	members := decodeBody[[]core.Member](t, doJSON(t, h, http.MethodGet, "/api/members", nil))
	if len(members) != 1 {
		t.Fatalf("garbage import must leave state intact, got %d members", len(members))
	}
}

func TestDeleteAllData(t *testing.T) {
	h := newTestHandler()
	createMember(t, h, "Gina", 100)

	rec := doJSON(t, h, http.MethodDelete, "/api/data", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete all: status %d, body %s", rec.Code, rec.Body)
	}

	members := decodeBody[[]core.Member](t, doJSON(t, h, http.MethodGet, "/api/members", nil))
	if len(members) != 0 {
		t.Fatalf("expected empty ledger, got %d members", len(members))
	}
	sum := decodeBody[core.Summary](t, doJSON(t, h, http.MethodGet, "/api/summary", nil))
	if !sum.FundBalance.IsZero() {
		t.Fatalf("fund balance after wipe = %s", sum.FundBalance)
	}
}

func TestBackupFilenameInDisposition(t *testing.T) {
	h := newTestHandler()
	rec := doJSON(t, h, http.MethodGet, "/api/export", nil)
	cd := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment; filename=") || !strings.HasSuffix(strings.Trim(cd[len("attachment; filename="):], `"`), ".xlsx") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	if _, _, err := workbook.Import(rec.Body.Bytes()); err != nil {
		t.Fatalf("exported empty workbook must import cleanly: %v", err)
	}
}
