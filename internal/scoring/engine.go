// Package scoring computes and persists event engagement scores.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/store"
)

// MaxScore is the highest score Compute can return.
const MaxScore = 6

// Inputs are the signals an engagement score is derived from.
type Inputs struct {
	Registrations      int
	Confirmed          int
	OrganizerResponded bool
	Feedback           int
}

// InputsFromDetail extracts scoring inputs from an event loaded with its relations.
func InputsFromDetail(d *models.EventDetail) Inputs {
	in := Inputs{
		Registrations: len(d.Registrations),
		Feedback:      len(d.Feedback),
	}
	for _, r := range d.Registrations {
		if r.Confirmed {
			in.Confirmed++
		}
	}
	if d.Organizer != nil {
		in.OrganizerResponded = d.Organizer.Responded
	}
	return in
}

// Compute returns the engagement score for in, between 0 and MaxScore:
// registration volume (0-2), confirmation rate (0-2), organizer
// responsiveness (0-1) and feedback presence (0-1).
func Compute(in Inputs) int {
	registrationPoints := clamp(in.Registrations, 0, 2)

	confirmationPoints := 0
	if in.Registrations > 0 {
		rate := float64(in.Confirmed) / float64(in.Registrations) * 2
		confirmationPoints = clamp(int(math.Round(rate)), 0, 2)
	}

	organizerPoints := 0
	if in.OrganizerResponded {
		organizerPoints = 1
	}

	feedbackPoints := 0
	if in.Feedback > 0 {
		feedbackPoints = 1
	}

	return registrationPoints + confirmationPoints + organizerPoints + feedbackPoints
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Source is the slice of the data store the engine reads and writes.
type Source interface {
	GetEventDetail(ctx context.Context, id int64) (*models.EventDetail, error)
	SetEventScore(ctx context.Context, id int64, score int) error
}

// Engine recomputes and persists engagement scores.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Recompute loads the event from src, computes its score and writes it back.
// A missing event is not an error: it scores 0 and nothing is written.
func (e *Engine) Recompute(ctx context.Context, src Source, eventID int64) (int, error) {
	detail, err := src.GetEventDetail(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		e.logger.Debug("score skipped, event not found", zap.Int64("event_id", eventID))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load event %d: %w", eventID, err)
	}

	score := Compute(InputsFromDetail(detail))
	if err := src.SetEventScore(ctx, eventID, score); err != nil {
		return 0, fmt.Errorf("save score for event %d: %w", eventID, err)
	}
	e.logger.Debug("engagement score updated", zap.Int64("event_id", eventID), zap.Int("score", score))
	return score, nil
}
