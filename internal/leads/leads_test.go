package leads

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/database"
	"github.com/origo/signalcheck/internal/migrations"
	"github.com/origo/signalcheck/internal/quiz"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))

	c, err := assessment.Default()
	require.NoError(t, err)
	return NewStore(db, c)
}

func setNow(s *Store, now *time.Time) {
	s.now = func() time.Time { return *now }
}

func submission(name, email string, score int) quiz.Submission {
	return quiz.Submission{
		SessionID: "sess-" + name,
		Contact: quiz.ContactInfo{
			Name:     name,
			Email:    email,
			Role:     "Founder / Owner",
			Industry: "Tech / SaaS",
		},
		Answers: []quiz.FormattedAnswer{
			{QuestionID: "q5", QuestionText: "Q5", AnswerLabel: "Yes, verified by recent deals", AnswerScore: 3},
		},
		ScoreTotal: score,
		Tier:       assessment.ClassifyTier(assessment.Percentage(score, 30)),
	}
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestSubmitterStoresRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sub := NewSubmitter(store, discardLogger(), false)

	var created []Record
	sub.OnCreate(func(r Record) { created = append(created, r) })

	id, err := sub.Submit(ctx, submission("Ada", "Ada@Example.com", 22))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Len(t, created, 1)
	assert.Equal(t, id, created[0].ID)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", rec.ContactName)
	assert.Equal(t, StatusNew, rec.Status)
	assert.Equal(t, 22, rec.ScoreTotal)
	assert.Equal(t, "Signal-Driven Growth", rec.TierResult)
	assert.Equal(t, "sess-Ada", rec.SessionID)
	require.Len(t, rec.Answers, 1)
	assert.Equal(t, 3, rec.Answers[0].AnswerScore)
	assert.NotEmpty(t, rec.InsertedAt)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitterValidation(t *testing.T) {
	store := newTestStore(t)
	sub := NewSubmitter(store, discardLogger(), false)

	tests := []struct {
		name   string
		mutate func(*quiz.Submission)
	}{
		{"blank name", func(s *quiz.Submission) { s.Contact.Name = " " }},
		{"blank email", func(s *quiz.Submission) { s.Contact.Email = "" }},
		{"bad email", func(s *quiz.Submission) { s.Contact.Email = "not-an-email" }},
		{"blank industry", func(s *quiz.Submission) { s.Contact.Industry = "" }},
		{"no answers", func(s *quiz.Submission) { s.Answers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := submission("Ada", "ada@example.com", 10)
			tt.mutate(&s)
			_, err := sub.Submit(context.Background(), s)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var serr *StoreError
			require.ErrorAs(t, err, &serr)
			assert.False(t, serr.Retryable())
			assert.Equal(t, quiz.FailureValidation, serr.FailureKind())
			assert.NotContains(t, err.Error(), "ada@example.com")
		})
	}

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{errors.New("SQLITE_ERROR: no such table: leads"), ErrConfiguration},
		{errors.New("attempt to write a readonly database"), ErrConfiguration},
		{errors.New("permission denied"), ErrConfiguration},
		{errors.New("database is locked"), ErrTransient},
		{errors.New("fetch failed"), ErrTransient},
		{context.DeadlineExceeded, ErrTransient},
		{errors.New("UNIQUE constraint failed: leads.id"), ErrValidation},
	}
	for _, tt := range tests {
		serr := classify("insert lead", tt.err)
		assert.ErrorIs(t, serr, tt.kind, tt.err.Error())
		assert.ErrorIs(t, serr, tt.err)
		assert.Equal(t, tt.kind == ErrTransient, serr.Retryable())
	}
}

func TestMissingTableIsConfiguration(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()
	c, err := assessment.Default()
	require.NoError(t, err)

	_, err = NewStore(db, c).Insert(context.Background(), Record{ContactEmail: "a@b.c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	var fk quiz.Classifier
	require.ErrorAs(t, err, &fk)
	assert.Equal(t, quiz.FailureConfiguration, fk.FailureKind())
}

func seed(t *testing.T, store *Store, now *time.Time) {
	t.Helper()
	ctx := context.Background()
	entries := []struct {
		name, email string
		score       int
		age         time.Duration
	}{
		{"Old Ada", "ada@example.com", 6, 60 * 24 * time.Hour},
		{"Bob", "bob@example.com", 15, 10 * 24 * time.Hour},
		{"Ada", "ADA@example.com", 24, 24 * time.Hour},
		{"Cy", "cy@example.com", 13, time.Hour},
	}
	base := *now
	for _, e := range entries {
		*now = base.Add(-e.age)
		_, err := store.Insert(ctx, Record{
			ContactName:     e.name,
			ContactEmail:    e.email,
			ContactRole:     "CEO / Managing Director",
			ContactIndustry: "Manufacturing",
			ScoreTotal:      e.score,
			TierResult:      "Growth Ready",
		})
		require.NoError(t, err)
	}
	*now = base
}

func TestListAndFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	setNow(store, &now)
	seed(t, store, &now)

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Cy", all[0].ContactName)
	assert.Equal(t, "Old Ada", all[3].ContactName)

	got, err := store.List(ctx, Filter{Query: "ADA"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Tier comes from the score, not the stored label.
	got, err = store.List(ctx, Filter{Tier: assessment.TierPartialSignal})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Cy", got[0].ContactName)
	assert.Equal(t, "Bob", got[1].ContactName)

	got, err = store.List(ctx, Filter{Tier: assessment.TierNoiseDriven, Query: "ada"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Old Ada", got[0].ContactName)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	setNow(store, &now)
	seed(t, store, &now)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalUsers:           3,
		TotalAssessments:     4,
		ActiveUsers:          3,
		CompletionRate:       100,
		AverageScore:         15,
		CompletedAssessments: 4,
		Tiers:                TierDistribution{NoiseDriven: 1, PartialSignal: 2, SignalDriven: 1},
	}, st)

	a, err := store.Analytics(ctx)
	require.NoError(t, err)
	assert.Len(t, a.UserGrowth, 12)
	assert.Len(t, a.CompletionRate, 6)
	assert.Equal(t, st.Tiers, a.Tiers)
}

func TestStatsEmpty(t *testing.T) {
	st, err := newTestStore(t).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	setNow(store, &now)
	seed(t, store, &now)

	users, err := store.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	assert.Equal(t, "cy@example.com", users[0].Email)
	assert.Equal(t, "ada@example.com", users[1].Email)
	assert.Equal(t, "Ada", users[1].Name)
	assert.Equal(t, 24, users[1].Score)
	assert.Equal(t, 80, users[1].Percentage)
	assert.Equal(t, assessment.TierSignalDriven, users[1].Tier)
	assert.Equal(t, 2, users[1].Assessments)
	assert.Equal(t, "bob@example.com", users[2].Email)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	setNow(store, &now)
	seed(t, store, &now)

	ids, err := store.DeleteByEmail(ctx, " Ada@Example.com ")
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	_, err = store.DeleteByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, store.Delete(ctx, all[0].ID))
	assert.ErrorIs(t, store.Delete(ctx, all[0].ID), ErrNotFound)
}

func TestDeleteByEmailCancelled(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	setNow(store, &now)
	seed(t, store, &now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ids, err := store.DeleteByEmail(ctx, "ada@example.com")
	require.Error(t, err)
	assert.Empty(t, ids)

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4, "a failed delete removes nothing")
}

func TestExports(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	setNow(store, &now)
	seed(t, store, &now)

	records, err := store.All(ctx)
	require.NoError(t, err)

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, store.WriteCSV(&buf, records))

		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, exportHeaders, rows[0])
		assert.Equal(t, []string{"Cy", "cy@example.com", "CEO / Managing Director", "Manufacturing", "13", "43", "Partial Signal Clarity", "2026-03-01"}, rows[1])
	})

	t.Run("xlsx", func(t *testing.T) {
		buf, err := store.XLSX(records, discardLogger())
		require.NoError(t, err)

		f, err := excelize.OpenReader(buf)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(exportSheet)
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, exportHeaders, rows[0])
		assert.Equal(t, "Old Ada", rows[4][0])
		assert.Equal(t, "20", rows[4][5])
		assert.Equal(t, "Noise-Driven Execution", rows[4][6])
	})

	assert.Equal(t, "assessments_2026-03-01.csv", ExportFilename(now, "csv"))
}

func TestLogAttrs(t *testing.T) {
	r := Record{ID: "id-1", ContactName: "Ada", ContactEmail: "ada@example.com", ScoreTotal: 9, TierResult: "Noise-Driven Execution"}

	prod := LogAttrs(r, false)
	assert.NotContains(t, prod, "ada@example.com")
	assert.NotContains(t, prod, "Ada")
	assert.Contains(t, prod, "id-1")

	dev := LogAttrs(r, true)
	assert.Contains(t, dev, "ada@example.com")
}
