package periodicity

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ohs/ohs/internal/domain/gtc45"
	"github.com/ohs/ohs/internal/domain/workforce"
	"github.com/ohs/ohs/internal/platform/apperr"
)

// AdHocLabel names the risk summary built from unsaved hazard scores.
const AdHocLabel = "current configuration"

var validMonths = map[int]bool{6: true, 12: true, 24: true, 36: true}

// Suggestion is the draft a user starts from when setting a periodicity.
type Suggestion struct {
	PositionID        uuid.UUID    `json:"position_id"`
	PositionName      string       `json:"position_name"`
	RecommendedMonths int          `json:"recommended_months"`
	Rules             []Rule       `json:"rules"`
	DraftMonths       int          `json:"draft_months"`
	Demographics      Demographics `json:"demographics"`
	Justification     string       `json:"justification"`
}

// Indicators is the full indicator bundle of a position.
type Indicators struct {
	PositionID     uuid.UUID      `json:"position_id"`
	Inputs         *Inputs        `json:"indicators"`
	Recommendation Recommendation `json:"recommendation"`
	Criteria       []Criterion    `json:"criteria"`
}

type Service struct {
	agg          *Aggregator
	engine       *Engine
	justifier    *Justifier
	positions    workforce.PositionRepository
	windowMonths int
	logger       zerolog.Logger
}

// NewService wires the engine and the justifier over agg. windowMonths is the
// trailing window of the indicators view.
func NewService(agg *Aggregator, positions workforce.PositionRepository, windowMonths int, logger zerolog.Logger) *Service {
	if windowMonths <= 0 {
		windowMonths = RecommendationWindowMonths
	}
	return &Service{
		agg:          agg,
		engine:       NewEngine(agg),
		justifier:    NewJustifier(agg, positions),
		positions:    positions,
		windowMonths: windowMonths,
		logger:       logger.With().Str("component", "periodicity").Logger(),
	}
}

// Suggest recommends an interval for the position and drafts the
// justification of months, or of the recommendation when months is nil.
func (s *Service) Suggest(ctx context.Context, positionID uuid.UUID, months *int, format Format) (*Suggestion, error) {
	if months != nil && !validMonths[*months] {
		return nil, apperr.Validation("invalid months: %d (allowed 6, 12, 24, 36)", *months)
	}
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.Recommend(ctx, positionID, nil)
	if err != nil {
		return nil, err
	}
	demo, err := s.agg.Demographics(ctx, positionID)
	if err != nil {
		return nil, err
	}
	draft := rec.Months
	if months != nil {
		draft = *months
	}
	text, err := s.justifier.Generate(ctx, positionID, draft, format, nil, "")
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("position_id", positionID.String()).
		Int("recommended_months", rec.Months).
		Int("draft_months", draft).
		Msg("periodicity suggested")
	return &Suggestion{
		PositionID:        positionID,
		PositionName:      pos.Name,
		RecommendedMonths: rec.Months,
		Rules:             rec.Rules,
		DraftMonths:       draft,
		Demographics:      demo,
		Justification:     text,
	}, nil
}

// JustifyFromInputs justifies months against unsaved hazard scores instead
// of the stored matrix.
func (s *Service) JustifyFromInputs(ctx context.Context, positionID uuid.UUID, months int, scores []HazardScore, format Format) (string, error) {
	if !validMonths[months] {
		return "", apperr.Validation("invalid months: %d (allowed 6, 12, 24, 36)", months)
	}
	for i, sc := range scores {
		if sc.HazardID == uuid.Nil {
			return "", apperr.Validation("hazards[%d]: hazard_id is required", i)
		}
		if err := gtc45.ValidateScores(sc.ND, sc.NE, sc.NC); err != nil {
			return "", apperr.Validation("hazards[%d]: %v", i, err)
		}
	}
	if _, err := s.positions.GetByID(ctx, positionID); err != nil {
		return "", err
	}
	summary := s.agg.SummarizeInputs(ctx, positionID, scores)
	return s.justifier.Generate(ctx, positionID, months, format, &summary, AdHocLabel)
}

// DraftJustification writes the terse justification a risk matrix stores
// when it is saved without one.
func (s *Service) DraftJustification(ctx context.Context, positionID uuid.UUID, months int) (string, error) {
	return s.justifier.Generate(ctx, positionID, months, FormatTerse, nil, "")
}

// Indicators returns every indicator of the position over the configured
// window with the criteria they meet, plus the engine recommendation.
func (s *Service) Indicators(ctx context.Context, positionID uuid.UUID) (*Indicators, error) {
	if _, err := s.positions.GetByID(ctx, positionID); err != nil {
		return nil, err
	}
	in, err := s.agg.Collect(ctx, positionID, s.windowMonths, nil)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.Recommend(ctx, positionID, nil)
	if err != nil {
		return nil, err
	}
	return &Indicators{
		PositionID:     positionID,
		Inputs:         in,
		Recommendation: rec,
		Criteria:       Criteria(in),
	}, nil
}
