package server

import (
	"errors"
	"log"
	"net/http"

	accountservice "qna-platform/backend/internal/account/service"
	answerservice "qna-platform/backend/internal/answer/service"
	identityservice "qna-platform/backend/internal/identity/service"
	"qna-platform/backend/internal/platform/rbac"
	questiondomain "qna-platform/backend/internal/question/domain"
	questionservice "qna-platform/backend/internal/question/service"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errBadRequest marks malformed requests detected by the transport itself.
var errBadRequest = errors.New("bad request")

type apiError struct {
	status  int
	code    string
	message string
}

// errorMappings is checked in order; the first errors.Is match wins.
var errorMappings = []struct {
	target error
	apiError
}{
	{identityservice.ErrDuplicateUsername, apiError{http.StatusConflict, "SGR-001", "Try any other Username, this Username has already been taken"}},
	{identityservice.ErrDuplicateEmail, apiError{http.StatusConflict, "SGR-002", "This user has already been registered, try with any other emailId"}},
	{identityservice.ErrUnknownUsername, apiError{http.StatusUnauthorized, "ATH-001", "Invalid username or password"}},
	{identityservice.ErrWrongPassword, apiError{http.StatusUnauthorized, "ATH-001", "Invalid username or password"}},
	{identityservice.ErrNoActiveSession, apiError{http.StatusUnauthorized, "SGR-003", "User is not Signed in"}},
	{identityservice.ErrNotSignedIn, apiError{http.StatusUnauthorized, "ATHR-001", "User has not signed in"}},
	{identityservice.ErrInvalidToken, apiError{http.StatusUnauthorized, "ATHR-001", "User has not signed in"}},
	{identityservice.ErrSignedOut, apiError{http.StatusUnauthorized, "ATHR-002", "User is signed out. Sign in first"}},
	{identityservice.ErrSessionExpired, apiError{http.StatusUnauthorized, "ATHR-004", "User access token is expired"}},
	{rbac.ErrNotOwner, apiError{http.StatusForbidden, "ATHR-003", "Only the owner can edit this content"}},
	{rbac.ErrNotOwnerOrAdmin, apiError{http.StatusForbidden, "ATHR-003", "Only the owner or admin can delete this content"}},
	{rbac.ErrNotAdmin, apiError{http.StatusForbidden, "ATHR-003", "Unauthorized Access, Entered user is not an admin"}},
	{questionservice.ErrQuestionNotFound, apiError{http.StatusNotFound, "QUES-001", "Entered question uuid does not exist"}},
	{answerservice.ErrAnswerNotFound, apiError{http.StatusNotFound, "ANS-001", "Entered answer uuid does not exist"}},
	{accountservice.ErrAccountNotFound, apiError{http.StatusNotFound, "USR-001", "User with entered uuid does not exist"}},
	{questionservice.ErrOwnerNotFound, apiError{http.StatusNotFound, "USR-001", "User with entered uuid does not exist"}},
	{identityservice.ErrInvalidSignUp, apiError{http.StatusBadRequest, "BAD-REQUEST", ""}},
	{questiondomain.ErrEmptyContent, apiError{http.StatusBadRequest, "BAD-REQUEST", ""}},
	{errBadRequest, apiError{http.StatusBadRequest, "BAD-REQUEST", ""}},
}

// errorFor maps a service error to its HTTP status, code and message.
// Bad-request messages carry the error text; everything unmapped is a 500.
func errorFor(err error) apiError {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			e := m.apiError
			if e.message == "" {
				e.message = err.Error()
			}
			return e
		}
	}
	return apiError{http.StatusInternalServerError, "internal_server_error", "internal server error"}
}

func writeError(w http.ResponseWriter, err error) {
	e := errorFor(err)
	if e.status == http.StatusInternalServerError {
		log.Printf("server: internal error: %v", err)
	}
	writeJSON(w, e.status, ErrorResponse{Code: e.code, Message: e.message})
}
