package leads

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/origo/signalcheck/internal/assessment"
)

const activeWindow = 30 * 24 * time.Hour

type Stats struct {
	TotalUsers           int              `json:"totalUsers"`
	TotalAssessments     int              `json:"totalAssessments"`
	ActiveUsers          int              `json:"activeUsers"`
	CompletionRate       int              `json:"completionRate"`
	AverageScore         int              `json:"averageScore"`
	CompletedAssessments int              `json:"completedAssessments"`
	Tiers                TierDistribution `json:"tiers"`
}

type TierDistribution struct {
	NoiseDriven   int `json:"noiseDriven"`
	PartialSignal int `json:"partialSignal"`
	SignalDriven  int `json:"signalDriven"`
}

func (d *TierDistribution) add(t assessment.Tier) {
	switch t {
	case assessment.TierNoiseDriven:
		d.NoiseDriven++
	case assessment.TierPartialSignal:
		d.PartialSignal++
	case assessment.TierSignalDriven:
		d.SignalDriven++
	}
}

// Stats summarizes every record. Users are counted by distinct email; active
// users are those with a record in the last 30 days. AverageScore is the
// rounded mean raw score.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	records, err := s.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	return s.stats(records, s.now()), nil
}

func (s *Store) stats(records []Record, now time.Time) Stats {
	var st Stats
	total := 0
	emails := make(map[string]struct{})
	active := make(map[string]struct{})
	cutoff := now.Add(-activeWindow)

	for _, r := range records {
		email := normalizeEmail(r.ContactEmail)
		emails[email] = struct{}{}
		if !r.insertedAt().Before(cutoff) {
			active[email] = struct{}{}
		}
		if r.Completed() {
			st.CompletedAssessments++
		}
		total += r.ScoreTotal
		st.Tiers.add(s.Result(r).Tier)
	}

	st.TotalAssessments = len(records)
	st.TotalUsers = len(emails)
	st.ActiveUsers = len(active)
	if st.TotalAssessments > 0 {
		st.CompletionRate = roundRatio(st.CompletedAssessments*100, st.TotalAssessments)
		st.AverageScore = roundRatio(total, st.TotalAssessments)
	}
	return st
}

func roundRatio(num, den int) int {
	return int(math.Round(float64(num) / float64(den)))
}

// User is the most recent record of one contact email.
type User struct {
	Email       string          `json:"email"`
	Name        string          `json:"fullName"`
	Role        string          `json:"role"`
	Industry    string          `json:"industry"`
	LastSeen    string          `json:"lastSeen"`
	Assessments int             `json:"assessments"`
	Score       int             `json:"score"`
	Percentage  int             `json:"percentage"`
	Tier        assessment.Tier `json:"tier"`
}

// Users deduplicates records by email, keeping the newest, most recent first.
func (s *Store) Users(ctx context.Context) ([]User, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.users(records), nil
}

func (s *Store) users(records []Record) []User {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, newestFirst)

	index := make(map[string]int)
	var users []User
	for _, r := range sorted {
		email := normalizeEmail(r.ContactEmail)
		if i, ok := index[email]; ok {
			users[i].Assessments++
			continue
		}
		res := s.Result(r)
		index[email] = len(users)
		users = append(users, User{
			Email:       email,
			Name:        r.ContactName,
			Role:        r.ContactRole,
			Industry:    r.ContactIndustry,
			LastSeen:    r.InsertedAt,
			Assessments: 1,
			Score:       r.ScoreTotal,
			Percentage:  res.Percentage,
			Tier:        res.Tier,
		})
	}
	return users
}

type MonthlyUsers struct {
	Month string `json:"month"`
	Users int    `json:"users"`
}

type MonthlyRate struct {
	Month string `json:"month"`
	Rate  int    `json:"rate"`
}

// Analytics backs the admin charts. The growth and completion series are
// fixed demo data; the tier distribution is real.
type Analytics struct {
	UserGrowth     []MonthlyUsers   `json:"userGrowth"`
	CompletionRate []MonthlyRate    `json:"completionRate"`
	Tiers          TierDistribution `json:"tiers"`
}

var (
	demoUserGrowth = []MonthlyUsers{
		{"Jan", 45}, {"Feb", 52}, {"Mar", 61}, {"Apr", 58}, {"May", 73}, {"Jun", 85},
		{"Jul", 92}, {"Aug", 88}, {"Sep", 95}, {"Oct", 102}, {"Nov", 110}, {"Dec", 125},
	}
	demoCompletionRate = []MonthlyRate{
		{"Jan", 78}, {"Feb", 82}, {"Mar", 79}, {"Apr", 85}, {"May", 88}, {"Jun", 91},
	}
)

func (s *Store) Analytics(ctx context.Context) (Analytics, error) {
	st, err := s.Stats(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{
		UserGrowth:     slices.Clone(demoUserGrowth),
		CompletionRate: slices.Clone(demoCompletionRate),
		Tiers:          st.Tiers,
	}, nil
}
