package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/origo/signalcheck/internal/handler/health"
	"github.com/origo/signalcheck/internal/leads"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type operation struct {
	method, path string
	summary      string
	description  string
	req          any
	resp         map[int]any
	contentType  string
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Signal Check API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Signal Check market-signal readiness assessment.")

	for _, op := range operations() {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for status, body := range op.resp {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(status)}
			if op.contentType != "" && status < 300 {
				opts = append(opts, openapi.WithContentType(op.contentType))
			}
			oc.AddRespStructure(body, opts...)
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

type tokenPath struct {
	Token string `path:"token"`
}

type answerPath struct {
	Token      string `path:"token"`
	QuestionID string `path:"questionID"`
}

type setAnswerInput struct {
	answerPath
	SetAnswerRequest
}

type goToInput struct {
	tokenPath
	GoToRequest
}

type leadPath struct {
	ID string `path:"id"`
}

type userPath struct {
	Email string `path:"email"`
}

type leadQuery struct {
	Q    string `query:"q" description:"Search name, email, role or industry."`
	Tier string `query:"tier" description:"Tier label or slug."`
}

func operations() []operation {
	errResp := ErrorResponse{}
	withAuth := func(m map[int]any) map[int]any {
		m[http.StatusUnauthorized] = errResp
		return m
	}

	return []operation{
		{
			method:      http.MethodGet,
			path:        "/healthz",
			summary:     "Health check",
			description: "Returns the health status of backend dependencies.",
			resp: map[int]any{
				http.StatusOK:                 health.Response{},
				http.StatusServiceUnavailable: health.Response{},
			},
		},
		{
			method:      http.MethodGet,
			path:        "/api/assessment/catalog",
			summary:     "Question catalog",
			description: "Returns the ordered questions. Option values are only included for scored questions.",
			resp:        map[int]any{http.StatusOK: CatalogResponse{}},
		},
		{
			method:      http.MethodPost,
			path:        "/api/assessment/score",
			summary:     "Preview score",
			description: "Scores an answer list without storing anything.",
			req:         ScoreRequest{},
			resp: map[int]any{
				http.StatusOK:         ResultView{},
				http.StatusBadRequest: errResp,
			},
		},
		{
			method:      http.MethodPost,
			path:        "/api/assessment/sessions",
			summary:     "Start assessment",
			description: "Creates a quiz session. The token addresses it in later calls.",
			resp:        map[int]any{http.StatusCreated: SessionResponse{}},
		},
		{
			method:      http.MethodGet,
			path:        "/api/assessment/sessions/{token}",
			summary:     "Get session",
			description: "Returns the current step, answers, completeness and submission state.",
			req:         tokenPath{},
			resp: map[int]any{
				http.StatusOK:       SessionResponse{},
				http.StatusNotFound: errResp,
			},
		},
		{
			method:      http.MethodGet,
			path:        "/api/assessment/sessions/{token}/answers/{questionID}",
			summary:     "Get answer",
			description: "Returns the stored answer to one question.",
			req:         answerPath{},
			resp: map[int]any{
				http.StatusOK:       AnswerResponse{},
				http.StatusNotFound: errResp,
			},
		},
		{
			method:      http.MethodPut,
			path:        "/api/assessment/sessions/{token}/answers/{questionID}",
			summary:     "Set answer",
			description: "Records or replaces an answer. The value is free text, an option label or an option value; unscored choice questions take labels only.",
			req:         setAnswerInput{},
			resp: map[int]any{
				http.StatusOK:         AnswerResponse{},
				http.StatusBadRequest: errResp,
				http.StatusNotFound:   errResp,
				http.StatusConflict:   errResp,
			},
		},
		{
			method:      http.MethodPost,
			path:        "/api/assessment/sessions/{token}/next",
			summary:     "Next question",
			description: "Moves one step forward, stopping at the last question.",
			req:         tokenPath{},
			resp:        map[int]any{http.StatusOK: SessionResponse{}, http.StatusNotFound: errResp},
		},
		{
			method:      http.MethodPost,
			path:        "/api/assessment/sessions/{token}/previous",
			summary:     "Previous question",
			description: "Moves one step back, stopping at the first question.",
			req:         tokenPath{},
			resp:        map[int]any{http.StatusOK: SessionResponse{}, http.StatusNotFound: errResp},
		},
		{
			method:      http.MethodPost,
			path:        "/api/assessment/sessions/{token}/goto",
			summary:     "Go to question",
			description: "Jumps to a step, clamped to the catalog.",
			req:         goToInput{},
			resp: map[int]any{
				http.StatusOK:         SessionResponse{},
				http.StatusBadRequest: errResp,
				http.StatusNotFound:   errResp,
			},
		},
		{
			method:      http.MethodPost,
			path:        "/api/assessment/sessions/{token}/submit",
			summary:     "Submit assessment",
			description: "Scores and stores the assessment. Persistence failures carry a kind and a retryable flag.",
			req:         tokenPath{},
			resp: map[int]any{
				http.StatusCreated:             SubmitResponse{},
				http.StatusConflict:            SubmitErrorResponse{},
				http.StatusUnprocessableEntity: SubmitErrorResponse{},
				http.StatusBadGateway:          SubmitErrorResponse{},
				http.StatusServiceUnavailable:  SubmitErrorResponse{},
			},
		},
		{
			method:      http.MethodPost,
			path:        "/api/assessment/sessions/{token}/reset",
			summary:     "Start over",
			description: "Clears answers and submission state. A stored result stays viewable.",
			req:         tokenPath{},
			resp: map[int]any{
				http.StatusOK:       SessionResponse{},
				http.StatusConflict: errResp,
				http.StatusNotFound: errResp,
			},
		},
		{
			method:      http.MethodGet,
			path:        "/api/assessment/sessions/{token}/result",
			summary:     "Get result",
			description: "Returns the live result or its stored snapshot. Redirects to /assessment when there is neither.",
			req:         tokenPath{},
			resp: map[int]any{
				http.StatusOK:       ResultResponse{},
				http.StatusSeeOther: nil,
			},
		},
		{
			method:      http.MethodPost,
			path:        "/api/admin/login",
			summary:     "Admin login",
			description: "Authenticate with email and password. Sets admin_session cookie.",
			req:         AdminLoginRequest{},
			resp: map[int]any{
				http.StatusOK:           AdminMeResponse{},
				http.StatusBadRequest:   errResp,
				http.StatusUnauthorized: errResp,
			},
		},
		{
			method:      http.MethodPost,
			path:        "/api/admin/logout",
			summary:     "Admin logout",
			description: "Clears admin session and cookie.",
			resp:        map[int]any{http.StatusOK: nil},
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/me",
			summary:     "Current admin",
			description: "Returns the currently authenticated admin. Requires admin_session cookie.",
			resp:        withAuth(map[int]any{http.StatusOK: AdminMeResponse{}}),
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/leads",
			summary:     "List leads",
			description: "Returns stored assessments, newest first. Requires admin_session cookie.",
			req:         leadQuery{},
			resp: withAuth(map[int]any{
				http.StatusOK:         []LeadItem{},
				http.StatusBadRequest: errResp,
			}),
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/leads/{id}",
			summary:     "Get lead",
			description: "Returns one assessment with its answers and a mailto link. Requires admin_session cookie.",
			req:         leadPath{},
			resp: withAuth(map[int]any{
				http.StatusOK:       LeadDetail{},
				http.StatusNotFound: errResp,
			}),
		},
		{
			method:      http.MethodDelete,
			path:        "/api/admin/leads/{id}",
			summary:     "Delete lead",
			description: "Deletes one assessment. Requires admin_session cookie.",
			req:         leadPath{},
			resp: withAuth(map[int]any{
				http.StatusOK:       nil,
				http.StatusNotFound: errResp,
			}),
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/leads/export.csv",
			summary:     "Export leads as CSV",
			description: "Downloads assessments_YYYY-MM-DD.csv. Requires admin_session cookie.",
			req:         leadQuery{},
			contentType: "text/csv",
			resp:        withAuth(map[int]any{http.StatusOK: nil}),
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/leads/export.xlsx",
			summary:     "Export leads as XLSX",
			description: "Downloads assessments_YYYY-MM-DD.xlsx. Requires admin_session cookie.",
			req:         leadQuery{},
			contentType: xlsxType,
			resp:        withAuth(map[int]any{http.StatusOK: nil}),
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/users",
			summary:     "List users",
			description: "Leads deduplicated by email, most recent first. Requires admin_session cookie.",
			resp:        withAuth(map[int]any{http.StatusOK: []leads.User{}}),
		},
		{
			method:      http.MethodDelete,
			path:        "/api/admin/users/{email}",
			summary:     "Delete user",
			description: "Deletes every assessment of one email. Requires admin_session cookie.",
			req:         userPath{},
			resp: withAuth(map[int]any{
				http.StatusOK:       DeleteUserResponse{},
				http.StatusNotFound: errResp,
			}),
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/stats",
			summary:     "Dashboard stats",
			description: "Totals, 30-day active users, completion rate, average score and tier distribution.",
			resp:        withAuth(map[int]any{http.StatusOK: leads.Stats{}}),
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/analytics",
			summary:     "Analytics",
			description: "Chart series for the admin analytics page.",
			resp:        withAuth(map[int]any{http.StatusOK: leads.Analytics{}}),
		},
		{
			method:      http.MethodGet,
			path:        "/api/admin/feed",
			summary:     "Live lead feed",
			description: "Upgrades to a WebSocket that pushes lead_created and lead_deleted events.",
			contentType: "text/plain",
			resp: withAuth(map[int]any{
				http.StatusSwitchingProtocols: nil,
			}),
		},
	}
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
