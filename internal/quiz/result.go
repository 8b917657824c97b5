package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/snapshot"
)

const snapshotKeyPrefix = "last_quiz_result:"

// SnapshotKey is the snapshot store key for a session.
func SnapshotKey(sessionID string) string { return snapshotKeyPrefix + sessionID }

// Snapshot is the stored copy of a submitted result.
type Snapshot struct {
	Answers      []assessment.Answer `json:"answers"`
	Contact      ContactInfo         `json:"contactInfo"`
	Score        int                 `json:"score"`
	Percentage   int                 `json:"scorePercentage"`
	Tier         assessment.Tier     `json:"tier"`
	SubmissionID string              `json:"submissionId"`
}

func (s *Session) snapshotLocked() Snapshot {
	contact, _ := s.contactLocked()
	return Snapshot{
		Answers:      append([]assessment.Answer(nil), s.answers...),
		Contact:      contact,
		Score:        s.result.Raw,
		Percentage:   s.result.Percentage,
		Tier:         s.result.Tier,
		SubmissionID: s.submissionID,
	}
}

// Snapshot returns the live result of a Submitted session.
func (s *Session) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitted {
		return Snapshot{}, false
	}
	return s.snapshotLocked(), true
}

// Source says where a result was read from.
type Source string

const (
	SourceLive     Source = "live"
	SourceSnapshot Source = "snapshot"
)

// LoadResult reads the result for sessionID: the live session first (live may
// be nil), then the snapshot store. It returns ErrNoResult when neither has
// one. It never submits anything.
func LoadResult(ctx context.Context, live *Session, store snapshot.Store, sessionID string) (Snapshot, Source, error) {
	if live != nil {
		if snap, ok := live.Snapshot(); ok {
			return snap, SourceLive, nil
		}
	}

	data, err := store.Get(ctx, SnapshotKey(sessionID))
	if errors.Is(err, snapshot.ErrNotFound) {
		return Snapshot{}, "", ErrNoResult
	}
	if err != nil {
		return Snapshot{}, "", errors.Join(ErrNoResult, fmt.Errorf("reading snapshot: %w", err))
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, "", errors.Join(ErrNoResult, fmt.Errorf("decoding snapshot: %w", err))
	}
	return snap, SourceSnapshot, nil
}
