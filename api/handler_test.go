package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"library-desk/library"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*gin.Engine, *library.LibraryManager) {
	t.Helper()
	lm, err := library.NewLibraryManager(context.Background(), library.NewMemoryStore(), library.Options{
		Clock: func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return NewRouter(NewHandler(lm, zap.NewNop()), zap.NewNop()), lm
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBooksEndpoints(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]library.Book](t, w), 4)

	w = doJSON(t, r, http.MethodPost, "/api/books", map[string]any{
		"id": "2000", "title": "Clinical Pharmacology", "author": "Bennett",
		"specialization": "صيدلة", "copies": 3, "remainingCopies": 3, "price": "120.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/books", map[string]any{"id": "2000", "title": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/books", map[string]any{"id": "2001"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decode[errorResponse](t, w)
	require.NotEmpty(t, errBody.Details)
	assert.Equal(t, "title", errBody.Details[0].Field)

	w = doJSON(t, r, http.MethodGet, "/api/books?q=pharmacology", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]library.Book](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "2000", found[0].ID)
	assert.Equal(t, "120.5", found[0].Price.String())

	w = doJSON(t, r, http.MethodPut, "/api/books/2000", map[string]any{
		"title": "Clinical Pharmacology 2e", "copies": 3, "remainingCopies": 3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/books/2000", nil)
	assert.Equal(t, "Clinical Pharmacology 2e", decode[library.Book](t, w).Title)

	w = doJSON(t, r, http.MethodDelete, "/api/books/2000", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/books/2000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsersHidePasswords(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"password"`)

	w = doJSON(t, r, http.MethodPost, "/api/users", map[string]any{
		"id": "3001", "name": "Mona", "password": "secret", "role": "staff",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Equal(t, library.UserActive, decode[library.User](t, w).Status)

	w = doJSON(t, r, http.MethodPost, "/api/users", map[string]any{"id": "3002", "name": "X", "role": "janitor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUserKeepsPassword(t *testing.T) {
	r, lm := newTestServer(t)

	w := doJSON(t, r, http.MethodPut, "/api/users/1001", map[string]any{
		"name": "أحمد محمد علي", "role": "student", "status": "active",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	u, err := lm.GetUser("1001")
	require.NoError(t, err)
	assert.Equal(t, "أحمد محمد علي", u.Name)
	assert.True(t, u.CheckPassword("2002"))
}

func TestLoginAndResetPassword(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/login", map[string]string{"identifier": "1001", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/users/1001/password", map[string]string{"password": "n3w"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/login", map[string]string{"identifier": "student1@uni.edu", "password": "n3w"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u := decode[library.User](t, w)
	assert.Equal(t, "1001", u.ID)
	assert.Equal(t, 16, u.Visits)
	assert.Empty(t, u.Password)

	w = doJSON(t, r, http.MethodPost, "/api/users/nobody/password", map[string]string{"password": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIssueRejectsOverlongLoan(t *testing.T) {
	r, lm := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/loans", map[string]any{"bookId": "1624", "userId": "1001", "durationDays": 200000})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[errorResponse](t, w)
	require.NotEmpty(t, body.Details)
	assert.Equal(t, "durationDays", body.Details[0].Field)
	assert.Empty(t, lm.Loans(library.LoanFilter{}))
}

func TestLoanLifecycle(t *testing.T) {
	r, lm := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/loans", map[string]any{"bookId": "1625", "userId": "1001", "durationDays": 14})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loan := decode[library.Loan](t, w)
	assert.Equal(t, library.LoanActive, loan.Status)
	assert.True(t, loan.DueDate.Equal(testNow.Add(14*24*time.Hour)))

	w = doJSON(t, r, http.MethodPost, "/api/loans", map[string]any{"bookId": "1625", "userId": "2001"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/loans?status=active&user=1001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]library.Loan](t, w), 1)

	w = doJSON(t, r, http.MethodGet, "/api/loans?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/books/1625", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/loans/"+loan.ID+"/return", map[string]any{
		"condition": "damaged", "penaltyAmount": "25.00", "notes": "torn cover",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	returned := decode[library.Loan](t, w)
	assert.Equal(t, library.LoanReturned, returned.Status)
	assert.Equal(t, library.ConditionDamaged, returned.ConditionOnReturn)
	require.NotNil(t, returned.PenaltyAmount)
	assert.Equal(t, "25", returned.PenaltyAmount.String())

	w = doJSON(t, r, http.MethodPost, "/api/loans/"+loan.ID+"/return", map[string]any{})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/loans/missing/return", map[string]any{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	b, err := lm.GetBook("1625")
	require.NoError(t, err)
	assert.Equal(t, 1, b.RemainingCopies)
}

func TestIssueForbiddenRole(t *testing.T) {
	r, lm := newTestServer(t)
	s := lm.Settings()
	s.Permissions.Student.Borrow = false
	require.NoError(t, lm.UpdateSettings(context.Background(), s))

	w := doJSON(t, r, http.MethodPost, "/api/loans", map[string]any{"bookId": "1624", "userId": "1001"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSpecializationEndpoints(t *testing.T) {
	r, lm := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/specializations", map[string]any{"names": []string{"تمريض", "صيدلة", "تمريض"}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 2, decode[map[string]int](t, w)["added"])

	w = doJSON(t, r, http.MethodPost, "/api/specializations", map[string]any{"name": "صيدلة"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/specializations/"+url.PathEscape("إدارة صحية"), map[string]any{"name": "الإدارة الصحية"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[map[string]int](t, w)["booksUpdated"])

	b, err := lm.GetBook("1624")
	require.NoError(t, err)
	assert.Equal(t, "الإدارة الصحية", b.Specialization)

	w = doJSON(t, r, http.MethodDelete, "/api/specializations/"+url.PathEscape("تمريض"), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, lm.Specializations(), "تمريض")
}

func TestSettingsEndpoints(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	s := decode[library.LibrarySettings](t, w)

	s.Name = ""
	w = doJSON(t, r, http.MethodPut, "/api/settings", s)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.Name = "Health Sciences Library"
	s.BackupIntervalDays = 3
	w = doJSON(t, r, http.MethodPut, "/api/settings", s)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[library.LibrarySettings](t, w).BackupIntervalDays)
}

func TestBackupAndRestore(t *testing.T) {
	r, lm := newTestServer(t)
	_, err := lm.IssueBook(context.Background(), "1624", "1001", 7, "")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/api/backup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "library_backup_2024-05-01.json")
	backup := w.Body.Bytes()

	r2, lm2 := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/restore", bytes.NewReader(backup))
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Len(t, lm2.Loans(library.LoanFilter{}), 1)
	b, err := lm2.GetBook("1624")
	require.NoError(t, err)
	assert.Equal(t, 1, b.RemainingCopies)
	assert.Len(t, lm2.Books(), len(lm.Books()))

	req = httptest.NewRequest(http.MethodPost, "/api/restore", strings.NewReader("{not json"))
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationsAndStats(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]string](t, w))

	doJSON(t, r, http.MethodPost, "/api/loans", map[string]any{"bookId": "1624", "userId": "2001"})

	w = doJSON(t, r, http.MethodGet, "/api/notifications", nil)
	feed := decode[[]string](t, w)
	require.Len(t, feed, 1)
	assert.Contains(t, feed[0], "Issued")

	w = doJSON(t, r, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[library.Dashboard](t, w)
	assert.Equal(t, library.DashboardAuto, d.Mode)
	assert.Equal(t, 1, d.Values["borrowed"])
	assert.Equal(t, 17, d.Values["available"])
	assert.Equal(t, 1, d.Values["journals"])
}

func TestImportBooks(t *testing.T) {
	r, lm := newTestServer(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Code", "Title", "Author", "Specialization", "Copies"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"3100", "Anatomy Atlas", "Netter", "تشريح", 4}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"3101", "Histology", "Ross", "تشريح", 2}))
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "books.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/books/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	b, err := lm.GetBook("3100")
	require.NoError(t, err)
	assert.Equal(t, 4, b.RemainingCopies)
	assert.Contains(t, lm.Specializations(), "تشريح")

	w = doJSON(t, r, http.MethodPost, "/api/books/import", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
	assert.Equal(t, http.StatusNotFound, statusFor(library.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(&library.RowError{Row: 3, Reason: "bad"}))
}
