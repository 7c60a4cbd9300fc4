// Package api exposes the library manager over a JSON HTTP interface.
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"library-desk/library"
)

// Handler serves every route on top of one LibraryManager.
type Handler struct {
	lm  *library.LibraryManager
	log *zap.Logger
}

// NewHandler returns a Handler backed by lm.
func NewHandler(lm *library.LibraryManager, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{lm: lm, log: log}
}

// ── Books ──

// ListBooks returns the catalog, or search results when q is set.
// GET /api/books?q=
func (h *Handler) ListBooks(c *gin.Context) {
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		c.JSON(http.StatusOK, h.lm.SearchBooks(q))
		return
	}
	c.JSON(http.StatusOK, h.lm.Books())
}

// GET /api/books/:id
func (h *Handler) GetBook(c *gin.Context) {
	b, err := h.lm.GetBook(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/books
func (h *Handler) AddBook(c *gin.Context) {
	var b library.Book
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, "invalid book: "+err.Error())
		return
	}
	if err := h.lm.AddBook(c.Request.Context(), b); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// POST /api/books/bulk
func (h *Handler) AddBooks(c *gin.Context) {
	var books []library.Book
	if err := c.ShouldBindJSON(&books); err != nil {
		badRequest(c, "invalid book list: "+err.Error())
		return
	}
	if err := h.lm.AddBooks(c.Request.Context(), books); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": len(books)})
}

// ImportBooks adds every row of an uploaded .xlsx file (form field "file").
// POST /api/books/import
func (h *Handler) ImportBooks(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing spreadsheet upload in field \"file\"")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	books, err := library.ParseBooksSheet(f)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.lm.AddBooks(c.Request.Context(), books); err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("books imported", zap.String("file", fh.Filename), zap.Int("count", len(books)))
	c.JSON(http.StatusCreated, gin.H{"added": len(books)})
}

// PUT /api/books/:id
func (h *Handler) UpdateBook(c *gin.Context) {
	var b library.Book
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, "invalid book: "+err.Error())
		return
	}
	b.ID = c.Param("id")
	if err := h.lm.UpdateBook(c.Request.Context(), b); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DELETE /api/books/:id
func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.lm.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Users ──

// GET /api/users
func (h *Handler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, redactAll(h.lm.Users()))
}

// GET /api/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.lm.GetUser(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(u))
}

// POST /api/users
func (h *Handler) AddUser(c *gin.Context) {
	var u library.User
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, "invalid user: "+err.Error())
		return
	}
	if err := h.lm.AddUser(c.Request.Context(), u); err != nil {
		h.fail(c, err)
		return
	}
	saved, err := h.lm.GetUser(u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, redact(saved))
}

// POST /api/users/bulk
func (h *Handler) AddUsers(c *gin.Context) {
	var users []library.User
	if err := c.ShouldBindJSON(&users); err != nil {
		badRequest(c, "invalid user list: "+err.Error())
		return
	}
	if err := h.lm.AddUsers(c.Request.Context(), users); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": len(users)})
}

// ImportUsers adds every row of an uploaded .xlsx file (form field "file").
// POST /api/users/import
func (h *Handler) ImportUsers(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing spreadsheet upload in field \"file\"")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	users, err := library.ParseUsersSheet(f)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.lm.AddUsers(c.Request.Context(), users); err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("users imported", zap.String("file", fh.Filename), zap.Int("count", len(users)))
	c.JSON(http.StatusCreated, gin.H{"added": len(users)})
}

// UpdateUser replaces an account. An omitted password keeps the stored one.
// PUT /api/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	var u library.User
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, "invalid user: "+err.Error())
		return
	}
	u.ID = c.Param("id")
	if u.Password == "" {
		cur, err := h.lm.GetUser(u.ID)
		if err != nil {
			h.fail(c, err)
			return
		}
		u.Password = cur.Password
	}
	if err := h.lm.UpdateUser(c.Request.Context(), u); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(u))
}

// DELETE /api/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.lm.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

// POST /api/users/:id/password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "password is required")
		return
	}
	if err := h.lm.ResetPassword(c.Request.Context(), c.Param("id"), req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Login checks credentials by user id or email.
// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "identifier and password are required")
		return
	}
	u, err := h.lm.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(u))
}

// ── Loans ──

// ListLoans filters by status (active, returned, overdue), user and book.
// GET /api/loans?status=&user=&book=
func (h *Handler) ListLoans(c *gin.Context) {
	f := library.LoanFilter{
		UserID: c.Query("user"),
		BookID: c.Query("book"),
		Status: library.LoanStatus(c.Query("status")),
	}
	switch f.Status {
	case "", library.LoanActive, library.LoanReturned, library.LoanOverdue:
	default:
		badRequest(c, fmt.Sprintf("unknown loan status %q", f.Status))
		return
	}
	loans := h.lm.Loans(f)
	if loans == nil {
		loans = []library.Loan{}
	}
	c.JSON(http.StatusOK, loans)
}

// GET /api/loans/:id
func (h *Handler) GetLoan(c *gin.Context) {
	l, err := h.lm.GetLoan(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

type issueRequest struct {
	BookID       string `json:"bookId" binding:"required"`
	UserID       string `json:"userId" binding:"required"`
	DurationDays int    `json:"durationDays"`
	Notes        string `json:"notes"`
}

// POST /api/loans
func (h *Handler) IssueBook(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bookId and userId are required")
		return
	}
	loan, err := h.lm.IssueBook(c.Request.Context(), req.BookID, req.UserID, req.DurationDays, req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

type returnRequest struct {
	Condition     string          `json:"condition"`
	PenaltyAmount decimal.Decimal `json:"penaltyAmount"`
	Notes         string          `json:"notes"`
}

// ReturnBook closes a loan. Condition defaults to good.
// POST /api/loans/:id/return
func (h *Handler) ReturnBook(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid return: "+err.Error())
		return
	}
	cond := library.ConditionGood
	if req.Condition != "" {
		cond = library.Condition(req.Condition)
	}
	loan, err := h.lm.ReturnBook(c.Request.Context(), c.Param("id"), cond, req.PenaltyAmount, req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// ── Specializations ──

// GET /api/specializations
func (h *Handler) ListSpecializations(c *gin.Context) {
	c.JSON(http.StatusOK, h.lm.Specializations())
}

type specializationsRequest struct {
	Name  string   `json:"name"`
	Names []string `json:"names"`
}

// AddSpecializations accepts a single name or a list of names.
// POST /api/specializations
func (h *Handler) AddSpecializations(c *gin.Context) {
	var req specializationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != "" {
		if err := h.lm.AddSpecialization(c.Request.Context(), req.Name); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"added": 1})
		return
	}
	if len(req.Names) == 0 {
		badRequest(c, "name or names is required")
		return
	}
	n, err := h.lm.AddSpecializations(c.Request.Context(), req.Names)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": n})
}

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameSpecialization renames and cascades to every book carrying the old name.
// PUT /api/specializations/:name
func (h *Handler) RenameSpecialization(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}
	n, err := h.lm.RenameSpecialization(c.Request.Context(), c.Param("name"), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booksUpdated": n})
}

// DELETE /api/specializations/:name
func (h *Handler) DeleteSpecialization(c *gin.Context) {
	if err := h.lm.DeleteSpecialization(c.Request.Context(), c.Param("name")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Settings, backup, feed ──

// GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.lm.Settings())
}

// PUT /api/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var s library.LibrarySettings
	if err := c.ShouldBindJSON(&s); err != nil {
		badRequest(c, "invalid settings: "+err.Error())
		return
	}
	if err := h.lm.UpdateSettings(c.Request.Context(), s); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.lm.Settings())
}

// Backup downloads the full export as library_backup_<date>.json.
// GET /api/backup
func (h *Handler) Backup(c *gin.Context) {
	var buf bytes.Buffer
	b, err := h.lm.WriteBackup(c.Request.Context(), &buf)
	if err != nil {
		h.fail(c, err)
		return
	}
	name := library.BackupFileName(b.Date)
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

// Restore replaces the collections present in the uploaded backup document.
// POST /api/restore
func (h *Handler) Restore(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if err := h.lm.Restore(c.Request.Context(), body); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"books":           len(h.lm.Books()),
		"users":           len(h.lm.Users()),
		"loans":           len(h.lm.Loans(library.LoanFilter{})),
		"specializations": len(h.lm.Specializations()),
	})
}

// GET /api/notifications
func (h *Handler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.lm.Notifications())
}

// GET /api/stats
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.lm.Dashboard())
}
