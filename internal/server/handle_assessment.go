package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/quiz"
)

// retakePath is where visitors without a result are sent.
const retakePath = "/assessment"

type OptionItem struct {
	Label string `json:"label"`
	// Value is only exposed for scored questions.
	Value *int `json:"value,omitempty"`
}

type QuestionItem struct {
	ID       string               `json:"id"`
	Step     int                  `json:"step"`
	Category assessment.Category  `json:"category"`
	Kind     assessment.InputKind `json:"kind"`
	Text     string               `json:"text"`
	Scored   bool                 `json:"scored"`
	Options  []OptionItem         `json:"options,omitempty"`
}

type CatalogResponse struct {
	Questions []QuestionItem `json:"questions"`
	MaxScore  int            `json:"maxScore"`
}

type SubmitErrorResponse struct {
	Error       string                `json:"error"`
	Kind        quiz.FailureKind      `json:"kind,omitempty"`
	Retryable   bool                  `json:"retryable"`
	Reason      quiz.IncompleteReason `json:"reason,omitempty"`
	QuestionIDs []string              `json:"questionIds,omitempty"`
}

type SessionResponse struct {
	Token        string               `json:"token"`
	Step         int                  `json:"step"`
	Total        int                  `json:"total"`
	Question     QuestionItem         `json:"question"`
	Answers      []assessment.Answer  `json:"answers"`
	Complete     bool                 `json:"complete"`
	State        quiz.State           `json:"state"`
	SubmissionID string               `json:"submissionId,omitempty"`
	LastError    *SubmitErrorResponse `json:"lastError,omitempty"`
}

type SetAnswerRequest struct {
	Value assessment.Value `json:"value"`
}

type AnswerResponse struct {
	QuestionID string           `json:"questionId"`
	Value      assessment.Value `json:"value"`
	Label      string           `json:"label"`
	Complete   bool             `json:"complete"`
}

type GoToRequest struct {
	Step int `json:"step"`
}

// ResultView is a scored result with the copy that goes with its tier.
type ResultView struct {
	Score      int                    `json:"score"`
	MaxScore   int                    `json:"maxScore"`
	Percentage int                    `json:"percentage"`
	Tier       assessment.Tier        `json:"tier"`
	TierSlug   string                 `json:"tierSlug"`
	Profile    assessment.TierProfile `json:"profile"`
	CTALink    string                 `json:"ctaLink"`
}

func newResultView(c *assessment.Catalog, score, pct int, tier assessment.Tier, bookingURL string) ResultView {
	p := assessment.Profile(tier)
	return ResultView{
		Score:      score,
		MaxScore:   c.MaxScore(),
		Percentage: pct,
		Tier:       tier,
		TierSlug:   tier.Slug(),
		Profile:    p,
		CTALink:    p.CTALink(bookingURL),
	}
}

type SubmitResponse struct {
	SubmissionID string `json:"submissionId"`
	ResultView
}

type ResultResponse struct {
	Source       quiz.Source            `json:"source"`
	SubmissionID string                 `json:"submissionId"`
	Name         string                 `json:"name"`
	Answers      []quiz.FormattedAnswer `json:"answers"`
	ResultView
}

type ScoreRequest struct {
	Answers []assessment.Answer `json:"answers"`
}

func questionItem(c *assessment.Catalog, step int) QuestionItem {
	q := c.At(step)
	item := QuestionItem{
		ID:       q.ID,
		Step:     step,
		Category: q.Category,
		Kind:     q.Kind,
		Text:     q.Text,
		Scored:   q.Scored(),
	}
	for _, o := range q.Options {
		opt := OptionItem{Label: o.Label}
		if q.Scored() {
			v := o.Value
			opt.Value = &v
		}
		item.Options = append(item.Options, opt)
	}
	return item
}

func sessionResponse(sess *quiz.Session) SessionResponse {
	c := sess.Catalog()
	step := sess.Step()
	state, lastErr := sess.State()

	resp := SessionResponse{
		Token:        sess.ID(),
		Step:         step,
		Total:        c.Len(),
		Question:     questionItem(c, step),
		Answers:      sess.Answers(),
		Complete:     sess.IsComplete(),
		State:        state,
		SubmissionID: sess.SubmissionID(),
	}
	if resp.Answers == nil {
		resp.Answers = []assessment.Answer{}
	}
	if lastErr != nil {
		e := submitError(lastErr)
		resp.LastError = &e
	}
	return resp
}

func submitError(err error) SubmitErrorResponse {
	resp := SubmitErrorResponse{Error: err.Error()}

	var inc *quiz.IncompleteError
	var serr *quiz.SubmissionError
	switch {
	case errors.As(err, &inc):
		resp.Reason = inc.Reason
		resp.QuestionIDs = inc.QuestionIDs
	case errors.As(err, &serr):
		resp.Error = "could not save your assessment"
		resp.Kind = serr.Kind
		resp.Retryable = serr.Kind.Retryable()
	}
	return resp
}

func handleCatalog(c *assessment.Catalog) http.HandlerFunc {
	resp := CatalogResponse{MaxScore: c.MaxScore()}
	for i := range c.Len() {
		resp.Questions = append(resp.Questions, questionItem(c, i))
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleCreateSession(sessions *quiz.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessions.Create()
		writeJSON(w, http.StatusCreated, sessionResponse(sess))
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionResponse(quizSession(r)))
	}
}

func handleGetAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := quizSession(r)
		id := chi.URLParam(r, "questionID")

		q := sess.Catalog().Question(id)
		if q == nil {
			writeError(w, http.StatusNotFound, "question not found")
			return
		}
		v, ok := sess.Answer(id)
		if !ok {
			writeError(w, http.StatusNotFound, "question not answered")
			return
		}

		writeJSON(w, http.StatusOK, AnswerResponse{
			QuestionID: id,
			Value:      v,
			Label:      assessment.Resolve(q, v).Label,
			Complete:   sess.IsComplete(),
		})
	}
}

func handleSetAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := quizSession(r)
		id := chi.URLParam(r, "questionID")

		var req SetAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Value.Kind() == assessment.ValueNone {
			writeError(w, http.StatusBadRequest, "value is required")
			return
		}

		err := sess.SetAnswer(id, req.Value)
		switch {
		case errors.Is(err, quiz.ErrUnknownQuestion):
			writeError(w, http.StatusNotFound, "question not found")
			return
		case errors.Is(err, quiz.ErrLabelRequired):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, quiz.ErrSubmitInFlight), errors.Is(err, quiz.ErrAlreadySubmitted):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, AnswerResponse{
			QuestionID: id,
			Value:      req.Value,
			Label:      assessment.Resolve(sess.Catalog().Question(id), req.Value).Label,
			Complete:   sess.IsComplete(),
		})
	}
}

type navigation func(*quiz.Session) int

func navNext(s *quiz.Session) int     { return s.Next() }
func navPrevious(s *quiz.Session) int { return s.Previous() }

func handleNavigate(move navigation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := quizSession(r)
		move(sess)
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func handleGoTo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := quizSession(r)

		var req GoToRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sess.GoTo(req.Step)
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func handleSubmit(bookingURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := quizSession(r)

		receipt, err := sess.Submit(r.Context())
		if err != nil {
			writeJSON(w, submitStatus(err), submitError(err))
			return
		}

		res := receipt.Result
		writeJSON(w, http.StatusCreated, SubmitResponse{
			SubmissionID: receipt.ID,
			ResultView:   newResultView(sess.Catalog(), res.Raw, res.Percentage, res.Tier, bookingURL),
		})
	}
}

func submitStatus(err error) int {
	var inc *quiz.IncompleteError
	var serr *quiz.SubmissionError
	switch {
	case errors.Is(err, quiz.ErrSubmitInFlight), errors.Is(err, quiz.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.As(err, &inc):
		return http.StatusUnprocessableEntity
	case errors.As(err, &serr) && serr.Kind == quiz.FailureTransient:
		return http.StatusServiceUnavailable
	case errors.As(err, &serr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := quizSession(r)
		if err := sess.Reset(); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

// handleResult shows the live result, falling back to the stored snapshot.
// Visitors with neither are redirected to start the assessment.
func handleResult(sessions *quiz.Registry, bookingURL string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		snap, src, err := quiz.LoadResult(r.Context(), sessions.Lookup(token), sessions.Snapshots(), token)
		if err != nil {
			// A bare ErrNoResult is an ordinary miss.
			if err != quiz.ErrNoResult {
				logger.Warn("loading result", "session_id", token, "error", err)
			}
			http.Redirect(w, r, retakePath, http.StatusSeeOther)
			return
		}

		c := sessions.Catalog()
		writeJSON(w, http.StatusOK, ResultResponse{
			Source:       src,
			SubmissionID: snap.SubmissionID,
			Name:         snap.Contact.Name,
			Answers:      quiz.FormatAnswers(c, snap.Answers),
			ResultView:   newResultView(c, snap.Score, snap.Percentage, snap.Tier, bookingURL),
		})
	}
}

// handleScore previews the score of an answer list without storing anything.
// Later answers to the same question replace earlier ones.
func handleScore(c *assessment.Catalog, bookingURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScoreRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		preview := quiz.NewSession("preview", c, nil, quiz.Options{})
		for _, a := range req.Answers {
			if err := preview.SetAnswer(a.QuestionID, a.Value); err != nil {
				writeError(w, http.StatusBadRequest, a.QuestionID+": "+err.Error())
				return
			}
		}

		res := assessment.Evaluate(c, preview.Answers())
		writeJSON(w, http.StatusOK, newResultView(c, res.Raw, res.Percentage, res.Tier, bookingURL))
	}
}
