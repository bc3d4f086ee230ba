package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	accountdomain "qna-platform/backend/internal/account/domain"
	answerdomain "qna-platform/backend/internal/answer/domain"
	identityservice "qna-platform/backend/internal/identity/service"
	questiondomain "qna-platform/backend/internal/question/domain"
)

// SignUpRequest is the body of POST /user/signup.
type SignUpRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	UserName      string `json:"user_name"`
	EmailAddress  string `json:"email_address"`
	Password      string `json:"password"`
	Country       string `json:"country"`
	AboutMe       string `json:"about_me"`
	DOB           string `json:"dob"`
	ContactNumber string `json:"contact_number"`
}

// StatusResponse acknowledges a mutation of the entity with the given id.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UserDetailsResponse is the public profile of an account.
type UserDetailsResponse struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	UserName      string `json:"user_name"`
	EmailAddress  string `json:"email_address"`
	Country       string `json:"country"`
	AboutMe       string `json:"about_me"`
	DOB           string `json:"dob"`
	ContactNumber string `json:"contact_number"`
}

// ContentRequest is the body of question and answer create and edit calls.
type ContentRequest struct {
	Content string `json:"content"`
}

// QuestionDetailsResponse is one question in a listing.
type QuestionDetailsResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// AnswerDetailsResponse is one answer in a listing.
type AnswerDetailsResponse struct {
	ID              string `json:"id"`
	QuestionContent string `json:"question_content"`
	AnswerContent   string `json:"answer_content"`
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	return nil
}

// handleSignUp always registers a nonadmin account. Admins are provisioned by cmd/seed.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	acct, err := s.deps.Auth.SignUp(r.Context(), identityservice.SignUpInput{
		Username:      req.UserName,
		Email:         req.EmailAddress,
		Password:      req.Password,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Country:       req.Country,
		AboutMe:       req.AboutMe,
		DateOfBirth:   req.DOB,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, StatusResponse{ID: acct.ID, Status: "USER SUCCESSFULLY REGISTERED"})
}

// handleSignIn reads "Authorization: Basic base64(username:password)" and returns the
// session token in the access-token response header.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		writeError(w, fmt.Errorf("%w: authorization must use Basic credentials", errBadRequest))
		return
	}
	res, err := s.deps.Auth.SignIn(r.Context(), username, password)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("access-token", res.Token)
	writeJSON(w, http.StatusOK, StatusResponse{ID: res.Account.ID, Status: "SIGNED IN SUCCESSFULLY"})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	accountID, err := s.deps.Auth.SignOut(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{ID: accountID, Status: "SIGNED OUT SUCCESSFULLY"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	acct, err := s.deps.Accounts.GetProfile(r.Context(), bearerToken(r), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDetails(acct))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.deps.Accounts.Delete(r.Context(), bearerToken(r), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{ID: acct.ID, Status: "USER SUCCESSFULLY DELETED"})
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	q, err := s.deps.Questions.Create(r.Context(), bearerToken(r), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, StatusResponse{ID: q.ID, Status: "QUESTION CREATED"})
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := s.deps.Questions.List(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionDetails(qs))
}

func (s *Server) handleListQuestionsByOwner(w http.ResponseWriter, r *http.Request) {
	qs, err := s.deps.Questions.ListByOwner(r.Context(), bearerToken(r), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionDetails(qs))
}

func (s *Server) handleEditQuestion(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	q, err := s.deps.Questions.Edit(r.Context(), bearerToken(r), r.PathValue("questionId"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{ID: q.ID, Status: "QUESTION EDITED"})
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.deps.Questions.Delete(r.Context(), bearerToken(r), r.PathValue("questionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{ID: q.ID, Status: "QUESTION DELETED"})
}

func (s *Server) handleCreateAnswer(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.deps.Answers.Create(r.Context(), bearerToken(r), r.PathValue("questionId"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, StatusResponse{ID: a.ID, Status: "ANSWER CREATED"})
}

func (s *Server) handleEditAnswer(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.deps.Answers.Edit(r.Context(), bearerToken(r), r.PathValue("answerId"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{ID: a.ID, Status: "ANSWER EDITED"})
}

func (s *Server) handleDeleteAnswer(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Answers.Delete(r.Context(), bearerToken(r), r.PathValue("answerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{ID: a.ID, Status: "ANSWER DELETED"})
}

func (s *Server) handleListAnswers(w http.ResponseWriter, r *http.Request) {
	questionID := r.PathValue("questionId")
	answers, err := s.deps.Answers.ListByQuestion(r.Context(), bearerToken(r), questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := s.deps.Questions.Get(r.Context(), questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswerDetails(q, answers))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toUserDetails(a *accountdomain.Account) UserDetailsResponse {
	return UserDetailsResponse{
		ID:            a.ID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		UserName:      a.Username,
		EmailAddress:  a.Email,
		Country:       a.Country,
		AboutMe:       a.AboutMe,
		DOB:           a.DateOfBirth,
		ContactNumber: a.ContactNumber,
	}
}

func toQuestionDetails(qs []*questiondomain.Question) []QuestionDetailsResponse {
	out := make([]QuestionDetailsResponse, 0, len(qs))
	for _, q := range qs {
		out = append(out, QuestionDetailsResponse{ID: q.ID, Content: q.Content})
	}
	return out
}

func toAnswerDetails(q *questiondomain.Question, answers []*answerdomain.Answer) []AnswerDetailsResponse {
	out := make([]AnswerDetailsResponse, 0, len(answers))
	for _, a := range answers {
		out = append(out, AnswerDetailsResponse{ID: a.ID, QuestionContent: q.Content, AnswerContent: a.Content})
	}
	return out
}
