package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-desk/library"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string               `json:"error"`
	Details []library.FieldError `json:"details,omitempty"`
}

// statusFor maps library errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *library.ValidationError
	var re *library.RowError
	switch {
	case errors.As(err, &ve), errors.As(err, &re):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrDuplicateID),
		errors.Is(err, library.ErrActiveLoans),
		errors.Is(err, library.ErrLoanNotActive),
		errors.Is(err, library.ErrNoCopiesAvailable):
		return http.StatusConflict
	case errors.Is(err, library.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, library.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, library.ErrMalformedBackup),
		errors.Is(err, library.ErrImportNoData),
		errors.Is(err, library.ErrImportTooManyRows),
		errors.Is(err, library.ErrImportBadHeader):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		body.Error = "internal server error"
	}
	var ve *library.ValidationError
	if errors.As(err, &ve) {
		body.Details = ve.Fields
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// publicUser hides the stored password in responses.
type publicUser struct {
	library.User
	Password string `json:"password,omitempty"`
}

func redact(u library.User) publicUser { return publicUser{User: u} }

func redactAll(users []library.User) []publicUser {
	out := make([]publicUser, 0, len(users))
	for _, u := range users {
		out = append(out, redact(u))
	}
	return out
}
