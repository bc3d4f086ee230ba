package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	accountservice "qna-platform/backend/internal/account/service"
	answerdomain "qna-platform/backend/internal/answer/domain"
	answerservice "qna-platform/backend/internal/answer/service"
	"qna-platform/backend/internal/audit"
	healthhandler "qna-platform/backend/internal/health/handler"
	"qna-platform/backend/internal/identity/identitytest"
	identityservice "qna-platform/backend/internal/identity/service"
	"qna-platform/backend/internal/platform/rbac"
	questiondomain "qna-platform/backend/internal/question/domain"
	questionservice "qna-platform/backend/internal/question/service"
	telemetryotel "qna-platform/backend/internal/telemetry/otel"
)

type memQuestions struct {
	mu sync.Mutex
	m  map[string]*questiondomain.Question
}

func (r *memQuestions) GetByID(_ context.Context, id string) (*questiondomain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.m[id]; ok {
		c := *q
		return &c, nil
	}
	return nil, nil
}

func (r *memQuestions) List(ctx context.Context) ([]*questiondomain.Question, error) {
	return r.ListByOwner(ctx, "")
}

// ListByOwner with an empty owner returns every question.
func (r *memQuestions) ListByOwner(_ context.Context, ownerID string) ([]*questiondomain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*questiondomain.Question{}
	for _, q := range r.m {
		if ownerID == "" || q.OwnerID == ownerID {
			c := *q
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memQuestions) Create(_ context.Context, q *questiondomain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *q
	r.m[q.ID] = &c
	return nil
}

func (r *memQuestions) UpdateContent(_ context.Context, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.m[id]; ok {
		q.Content = content
	}
	return nil
}

func (r *memQuestions) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type memAnswers struct {
	mu sync.Mutex
	m  map[string]*answerdomain.Answer
}

func (r *memAnswers) GetByID(_ context.Context, id string) (*answerdomain.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.m[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (r *memAnswers) ListByQuestion(_ context.Context, questionID string) ([]*answerdomain.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*answerdomain.Answer{}
	for _, a := range r.m {
		if a.QuestionID == questionID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memAnswers) Create(_ context.Context, a *answerdomain.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.m[a.ID] = &c
	return nil
}

func (r *memAnswers) UpdateContent(_ context.Context, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.m[id]; ok {
		a.Content = content
	}
	return nil
}

func (r *memAnswers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type auditEntry struct {
	accountID, action, resource, metadata, ip string
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (r *recordingAudit) LogEvent(ctx context.Context, accountID, action, resource, metadata string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, auditEntry{accountID, action, resource, metadata, audit.ClientIP(ctx)})
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	env     *identitytest.Env
	audit   *recordingAudit
	spans   *tracetest.SpanRecorder
	reader  *sdkmetric.ManualReader
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	env, err := identitytest.New(identityservice.Options{})
	if err != nil {
		t.Fatalf("identitytest.New: %v", err)
	}
	policy := rbac.NewPolicy()
	tracker := NewCallerTracker(env.Auth)
	questions := questionservice.NewService(tracker, &memQuestions{m: map[string]*questiondomain.Question{}}, env.Accounts, policy)
	answers := answerservice.NewService(tracker, &memAnswers{m: map[string]*answerdomain.Answer{}}, questions, policy)

	reader := sdkmetric.NewManualReader()
	metrics, err := telemetryotel.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	spans := tracetest.NewSpanRecorder()
	rec := &recordingAudit{}
	srv := New(Deps{
		Auth:           env.Auth,
		Accounts:       accountservice.NewService(tracker, env.Accounts, policy, nil),
		Questions:      questions,
		Answers:        answers,
		Health:         healthhandler.NewServer(nil, nil),
		Audit:          rec,
		Metrics:        metrics,
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
	})
	return &testAPI{t: t, handler: srv.Handler(), env: env, audit: rec, spans: spans, reader: reader}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

// signUp registers through the public route. Admins cannot be created there, so they are
// seeded through the auth service directly.
func (a *testAPI) signUp(username, role string) string {
	a.t.Helper()
	if role == "admin" {
		acct, err := a.env.Auth.SignUp(context.Background(), identityservice.SignUpInput{
			Username: username, Email: username + "@example.com", Password: "pw-" + username, Role: role,
		})
		if err != nil {
			a.t.Fatalf("seed admin %s: %v", username, err)
		}
		return acct.ID
	}
	rr := a.do(http.MethodPost, "/user/signup", "", SignUpRequest{
		UserName: username, EmailAddress: username + "@example.com", Password: "pw-" + username,
	})
	if rr.Code != http.StatusCreated {
		a.t.Fatalf("signup %s: status %d body %s", username, rr.Code, rr.Body)
	}
	var resp StatusResponse
	decode(a.t, rr, &resp)
	return resp.ID
}

func (a *testAPI) signIn(username, password string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/user/signin", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(username+":"+password)))
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) token(username string) string {
	a.t.Helper()
	rr := a.signIn(username, "pw-"+username)
	if rr.Code != http.StatusOK {
		a.t.Fatalf("signin %s: status %d body %s", username, rr.Code, rr.Body)
	}
	tok := rr.Header().Get("access-token")
	if tok == "" {
		a.t.Fatal("signin: missing access-token header")
	}
	return tok
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func wantError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body)
	}
	var e ErrorResponse
	decode(t, rr, &e)
	if e.Code != code {
		t.Errorf("code = %q, want %q", e.Code, code)
	}
}

func TestAPI_SignUpAndSignIn(t *testing.T) {
	api := newTestAPI(t)
	id := api.signUp("alice", "")
	if id == "" {
		t.Fatal("signup returned empty id")
	}

	dup := api.do(http.MethodPost, "/user/signup", "", SignUpRequest{UserName: "alice", EmailAddress: "other@example.com", Password: "x"})
	wantError(t, dup, http.StatusConflict, "SGR-001")
	dupEmail := api.do(http.MethodPost, "/user/signup", "", SignUpRequest{UserName: "alice2", EmailAddress: "alice@example.com", Password: "x"})
	wantError(t, dupEmail, http.StatusConflict, "SGR-002")
	bad := api.do(http.MethodPost, "/user/signup", "", SignUpRequest{UserName: "bob", EmailAddress: "not-an-email", Password: "x"})
	wantError(t, bad, http.StatusBadRequest, "BAD-REQUEST")

	rr := api.signIn("alice", "pw-alice")
	if rr.Code != http.StatusOK {
		t.Fatalf("signin: status %d", rr.Code)
	}
	if rr.Header().Get("access-token") == "" {
		t.Error("missing access-token header")
	}
	var resp StatusResponse
	decode(t, rr, &resp)
	if resp.ID != id {
		t.Errorf("signin id = %q, want %q", resp.ID, id)
	}

	wantError(t, api.signIn("alice", "nope"), http.StatusUnauthorized, "ATH-001")
	wantError(t, api.signIn("ghost", "nope"), http.StatusUnauthorized, "ATH-001")

	noBasic := httptest.NewRequest(http.MethodPost, "/user/signin", nil)
	noBasicRR := httptest.NewRecorder()
	api.handler.ServeHTTP(noBasicRR, noBasic)
	wantError(t, noBasicRR, http.StatusBadRequest, "BAD-REQUEST")
}

func TestAPI_SignOut(t *testing.T) {
	api := newTestAPI(t)
	id := api.signUp("alice", "")
	tok := api.token("alice")

	rr := api.do(http.MethodPost, "/user/signout", tok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("signout: status %d body %s", rr.Code, rr.Body)
	}
	var resp StatusResponse
	decode(t, rr, &resp)
	if resp.ID != id {
		t.Errorf("signout id = %q, want %q", resp.ID, id)
	}

	wantError(t, api.do(http.MethodPost, "/user/signout", tok, nil), http.StatusUnauthorized, "SGR-003")
	wantError(t, api.do(http.MethodGet, "/question/all", tok, nil), http.StatusUnauthorized, "ATHR-002")
	wantError(t, api.do(http.MethodGet, "/question/all", "", nil), http.StatusUnauthorized, "ATHR-001")
	wantError(t, api.do(http.MethodGet, "/question/all", "garbage", nil), http.StatusUnauthorized, "ATHR-001")
}

func TestAPI_QuestionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ownerID := api.signUp("owner", "")
	api.signUp("other", "")
	adminID := api.signUp("root", "admin")
	ownerTok, otherTok, adminTok := api.token("owner"), api.token("other"), api.token("root")

	rr := api.do(http.MethodPost, "/question/create", ownerTok, ContentRequest{Content: "What is a goroutine?"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rr.Code, rr.Body)
	}
	var created StatusResponse
	decode(t, rr, &created)
	qid := created.ID

	wantError(t, api.do(http.MethodPost, "/question/create", ownerTok, ContentRequest{Content: "  "}), http.StatusBadRequest, "BAD-REQUEST")

	var all []QuestionDetailsResponse
	decode(t, api.do(http.MethodGet, "/question/all", otherTok, nil), &all)
	if len(all) != 1 || all[0].ID != qid {
		t.Fatalf("all = %+v", all)
	}
	var mine []QuestionDetailsResponse
	decode(t, api.do(http.MethodGet, "/question/all/"+ownerID, otherTok, nil), &mine)
	if len(mine) != 1 {
		t.Fatalf("by owner = %+v", mine)
	}
	wantError(t, api.do(http.MethodGet, "/question/all/ghost", otherTok, nil), http.StatusNotFound, "USR-001")

	wantError(t, api.do(http.MethodPut, "/question/edit/"+qid, otherTok, ContentRequest{Content: "x"}), http.StatusForbidden, "ATHR-003")
	wantError(t, api.do(http.MethodPut, "/question/edit/"+qid, adminTok, ContentRequest{Content: "x"}), http.StatusForbidden, "ATHR-003")
	wantError(t, api.do(http.MethodPut, "/question/edit/missing", ownerTok, ContentRequest{Content: "x"}), http.StatusNotFound, "QUES-001")
	if rr := api.do(http.MethodPut, "/question/edit/"+qid, ownerTok, ContentRequest{Content: "What is a channel?"}); rr.Code != http.StatusOK {
		t.Fatalf("owner edit: status %d", rr.Code)
	}

	wantError(t, api.do(http.MethodDelete, "/question/delete/"+qid, otherTok, nil), http.StatusForbidden, "ATHR-003")
	if rr := api.do(http.MethodDelete, "/question/delete/"+qid, adminTok, nil); rr.Code != http.StatusOK {
		t.Fatalf("admin delete: status %d", rr.Code)
	}
	wantError(t, api.do(http.MethodDelete, "/question/delete/"+qid, adminTok, nil), http.StatusNotFound, "QUES-001")

	want := []auditEntry{
		{ownerID, "create", "question", "/question/create", "203.0.113.7"},
		{ownerID, "update", "question", "/question/edit/" + qid, "203.0.113.7"},
		{adminID, "delete", "question", "/question/delete/" + qid, "203.0.113.7"},
	}
	if len(api.audit.entries) != len(want) {
		t.Fatalf("audit entries = %+v, want %d", api.audit.entries, len(want))
	}
	for i, w := range want {
		if api.audit.entries[i] != w {
			t.Errorf("audit[%d] = %+v, want %+v", i, api.audit.entries[i], w)
		}
	}
}

func TestAPI_AnswerLifecycle(t *testing.T) {
	api := newTestAPI(t)
	api.signUp("asker", "")
	api.signUp("helper", "")
	api.signUp("root", "admin")
	askerTok, helperTok, adminTok := api.token("asker"), api.token("helper"), api.token("root")

	var q StatusResponse
	decode(t, api.do(http.MethodPost, "/question/create", askerTok, ContentRequest{Content: "Why Go?"}), &q)

	wantError(t, api.do(http.MethodPost, "/question/missing/answer/create", helperTok, ContentRequest{Content: "x"}), http.StatusNotFound, "QUES-001")
	rr := api.do(http.MethodPost, "/question/"+q.ID+"/answer/create", helperTok, ContentRequest{Content: "Simplicity"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("answer create: status %d body %s", rr.Code, rr.Body)
	}
	var a StatusResponse
	decode(t, rr, &a)

	var list []AnswerDetailsResponse
	decode(t, api.do(http.MethodGet, "/answer/all/"+q.ID, askerTok, nil), &list)
	if len(list) != 1 || list[0].QuestionContent != "Why Go?" || list[0].AnswerContent != "Simplicity" {
		t.Fatalf("answers = %+v", list)
	}

	// The question owner does not own the answer.
	wantError(t, api.do(http.MethodPut, "/answer/edit/"+a.ID, askerTok, ContentRequest{Content: "x"}), http.StatusForbidden, "ATHR-003")
	wantError(t, api.do(http.MethodDelete, "/answer/delete/"+a.ID, askerTok, nil), http.StatusForbidden, "ATHR-003")
	wantError(t, api.do(http.MethodPut, "/answer/edit/missing", helperTok, ContentRequest{Content: "x"}), http.StatusNotFound, "ANS-001")
	if rr := api.do(http.MethodPut, "/answer/edit/"+a.ID, helperTok, ContentRequest{Content: "Tooling"}); rr.Code != http.StatusOK {
		t.Fatalf("owner edit: status %d", rr.Code)
	}
	if rr := api.do(http.MethodDelete, "/answer/delete/"+a.ID, adminTok, nil); rr.Code != http.StatusOK {
		t.Fatalf("admin delete: status %d", rr.Code)
	}
}

func TestAPI_AccountAdministration(t *testing.T) {
	api := newTestAPI(t)
	aliceID := api.signUp("alice", "")
	bobID := api.signUp("bob", "")
	api.signUp("root", "admin")
	aliceTok, adminTok := api.token("alice"), api.token("root")

	var profile UserDetailsResponse
	decode(t, api.do(http.MethodGet, "/userprofile/"+bobID, aliceTok, nil), &profile)
	if profile.UserName != "bob" || profile.EmailAddress != "bob@example.com" {
		t.Errorf("profile = %+v", profile)
	}
	wantError(t, api.do(http.MethodGet, "/userprofile/ghost", aliceTok, nil), http.StatusNotFound, "USR-001")

	wantError(t, api.do(http.MethodDelete, "/admin/user/"+bobID, aliceTok, nil), http.StatusForbidden, "ATHR-003")
	wantError(t, api.do(http.MethodDelete, "/admin/user/ghost", adminTok, nil), http.StatusNotFound, "USR-001")
	if rr := api.do(http.MethodDelete, "/admin/user/"+aliceID, adminTok, nil); rr.Code != http.StatusOK {
		t.Fatalf("admin delete: status %d body %s", rr.Code, rr.Body)
	}
	wantError(t, api.do(http.MethodGet, "/question/all", aliceTok, nil), http.StatusUnauthorized, "ATHR-001")
}

func TestAPI_SignUpIgnoresRequestedRole(t *testing.T) {
	api := newTestAPI(t)
	victimID := api.signUp("victim", "")

	body := map[string]string{
		"user_name": "mallory", "email_address": "mallory@example.com", "password": "pw-mallory", "role": "admin",
	}
	rr := api.do(http.MethodPost, "/user/signup", "", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: status %d body %s", rr.Code, rr.Body)
	}
	var resp StatusResponse
	decode(t, rr, &resp)
	acct, err := api.env.Accounts.GetByID(context.Background(), resp.ID)
	if err != nil || acct == nil {
		t.Fatalf("GetByID: %v, %v", acct, err)
	}
	if acct.IsAdmin() {
		t.Error("public signup created an admin account")
	}

	tok := api.token("mallory")
	wantError(t, api.do(http.MethodDelete, "/admin/user/"+victimID, tok, nil), http.StatusForbidden, "ATHR-003")
}

func TestAPI_Healthz(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rr.Code)
	}

	down := New(Deps{Health: healthhandler.NewServer(failingPinger{}, nil)})
	rr = httptest.NewRecorder()
	down.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz with failing db = %d, want 503", rr.Code)
	}
}

func TestAPI_Instrumentation(t *testing.T) {
	api := newTestAPI(t)
	api.signUp("alice", "")
	tok := api.token("alice")
	api.do(http.MethodGet, "/question/all", tok, nil)

	var found bool
	for _, s := range api.spans.Ended() {
		if s.Name() != "GET /question/all" {
			continue
		}
		found = true
		var hasCaller bool
		for _, kv := range s.Attributes() {
			if kv.Key == "qna.account_id" && kv.Value.AsString() != "" {
				hasCaller = true
			}
		}
		if !hasCaller {
			t.Error("span missing qna.account_id")
		}
	}
	if !found {
		t.Error("no span for GET /question/all")
	}

	var rm metricdata.ResourceMetrics
	if err := api.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var requests int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "qna.http.requests" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				requests += dp.Value
			}
		}
	}
	if requests != 3 {
		t.Errorf("requests counted = %d, want 3", requests)
	}
}
