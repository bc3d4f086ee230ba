// Package server exposes the Q&A API over HTTP and the readiness probe over gRPC.
package server

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	accountservice "qna-platform/backend/internal/account/service"
	answerservice "qna-platform/backend/internal/answer/service"
	"qna-platform/backend/internal/audit"
	healthhandler "qna-platform/backend/internal/health/handler"
	identityservice "qna-platform/backend/internal/identity/service"
	questionservice "qna-platform/backend/internal/question/service"
	telemetryotel "qna-platform/backend/internal/telemetry/otel"
)

const instrumentationName = "qna-platform/backend/internal/server"

// Deps holds the services behind the HTTP API.
type Deps struct {
	Auth      *identityservice.AuthService
	Accounts  *accountservice.Service
	Questions *questionservice.Service
	Answers   *answerservice.Service
	// Health backs GET /healthz. If nil, /healthz always reports ok.
	Health *healthhandler.Server
	// Audit records question and answer mutations. Auth and account events are
	// audited by their services. May be nil.
	Audit audit.AuditLogger
	// Metrics may be nil.
	Metrics *telemetryotel.Metrics
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Server routes HTTP requests to the services.
type Server struct {
	deps   Deps
	mux    *http.ServeMux
	tracer trace.Tracer
}

// New returns a Server with every route mounted.
func New(deps Deps) *Server {
	tp := deps.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s := &Server{
		deps:   deps,
		mux:    http.NewServeMux(),
		tracer: tp.Tracer(instrumentationName),
	}
	s.mountRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) mountRoutes() {
	s.handle("POST /user/signup", s.handleSignUp)
	s.handle("POST /user/signin", s.handleSignIn)
	s.handle("POST /user/signout", s.handleSignOut)
	s.handle("GET /userprofile/{userId}", s.handleGetProfile)
	s.handle("DELETE /admin/user/{userId}", s.handleDeleteAccount)

	s.handleAudited("POST /question/create", s.handleCreateQuestion)
	s.handle("GET /question/all", s.handleListQuestions)
	s.handle("GET /question/all/{userId}", s.handleListQuestionsByOwner)
	s.handleAudited("PUT /question/edit/{questionId}", s.handleEditQuestion)
	s.handleAudited("DELETE /question/delete/{questionId}", s.handleDeleteQuestion)

	s.handleAudited("POST /question/{questionId}/answer/create", s.handleCreateAnswer)
	s.handleAudited("PUT /answer/edit/{answerId}", s.handleEditAnswer)
	s.handleAudited("DELETE /answer/delete/{answerId}", s.handleDeleteAnswer)
	s.handle("GET /answer/all/{questionId}", s.handleListAnswers)

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, false, h))
}

func (s *Server) handleAudited(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, true, h))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
