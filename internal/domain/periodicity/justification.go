package periodicity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ohs/ohs/internal/domain/gtc45"
	"github.com/ohs/ohs/internal/domain/workforce"
)

// MinJustificationLength matches the minimum the risk matrix enforces for
// periodicities above 12 months.
const MinJustificationLength = 50

const (
	regulatoryBasis = "the occupational health and safety management system and Resolution 1843 of 2025"
	evidenceSuffix  = "Supporting evidence: current hazard matrix, epidemiological indicators and applicable surveillance programs."
)

// Report is everything a justification is rendered from.
type Report struct {
	PositionID   uuid.UUID
	PositionName string
	Months       int
	Recommended  Recommendation
	Inputs       *Inputs
	// MatrixLabel names the source of an ad-hoc risk summary.
	MatrixLabel string
	Today       time.Time
}

// Justifier gathers the inputs of a position and renders justifications.
type Justifier struct {
	agg       *Aggregator
	positions workforce.PositionRepository
}

func NewJustifier(agg *Aggregator, positions workforce.PositionRepository) *Justifier {
	return &Justifier{agg: agg, positions: positions}
}

// Generate justifies months for the position. override and label replace
// the stored matrix with ad-hoc scores. The recommendation inside the text
// is computed from the same inputs the text reports.
func (j *Justifier) Generate(ctx context.Context, positionID uuid.UUID, months int, format Format,
	override *RiskSummary, label string) (string, error) {
	in, err := j.agg.Collect(ctx, positionID, RecommendationWindowMonths, override)
	if err != nil {
		return "", err
	}
	r := &Report{
		PositionID:  positionID,
		Months:      months,
		Recommended: Decide(in),
		Inputs:      in,
		MatrixLabel: label,
		Today:       j.agg.today(),
	}
	if pos, err := j.positions.GetByID(ctx, positionID); err == nil {
		r.PositionName = pos.Name
	}
	return Render(r, format), nil
}

// Render writes the report in the requested format. The result is never
// shorter than MinJustificationLength.
func Render(r *Report, format Format) string {
	var text string
	if format == FormatDetailed {
		text = renderDetailed(r)
	} else {
		text = renderTerse(r)
	}
	return ensureMinLength(strings.TrimSpace(text))
}

func ensureMinLength(text string) string {
	if len([]rune(text)) < MinJustificationLength {
		text += "\n" + evidenceSuffix
	}
	return text
}

func positionRef(r *Report) string {
	if r.PositionName != "" {
		return fmt.Sprintf("%s (ID %s)", r.PositionName, r.PositionID)
	}
	return "ID " + r.PositionID.String()
}

func labelSuffix(label string) string {
	if label == "" {
		return ""
	}
	return " (" + label + ")"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func unavailableSources(in *Inputs) []string {
	var out []string
	if in.Absenteeism.Unavailable {
		out = append(out, sourceAbsenteeism)
	}
	if in.Exams.Unavailable {
		out = append(out, sourceExams)
	}
	if in.Matrix.Unavailable {
		out = append(out, sourceRiskMatrix)
	}
	return out
}

// -- Terse --

func renderTerse(r *Report) string {
	in := r.Inputs
	d, abs, ex := in.Demographics, in.Absenteeism, in.Exams

	line1 := fmt.Sprintf("Technical justification for setting the periodic occupational exam interval at %d months for position %s, based on %s.",
		r.Months, positionRef(r), regulatoryBasis)

	line2 := fmt.Sprintf("Supporting records: exposed population of %d active worker(s) (under 21: %d; tenure under 2 years: %d; missing hire date: %d). "+
		"Indicators for the last %d months: work accidents %d, work illnesses %d; unfit exams %d, follow-ups %d.",
		d.ActiveWorkers, d.Under21, d.TenureUnder2, d.MissingHireDate,
		abs.WindowMonths, abs.WorkAccidents, abs.WorkIllnesses, ex.Unfit, ex.FollowUpRequired)
	if missing := unavailableSources(in); len(missing) > 0 {
		line2 += " Unavailable sources: " + strings.Join(missing, ", ") + "."
	}

	stability := "n/a"
	if in.Matrix.HasPrevious && in.Matrix.Stable != nil {
		stability = "changed"
		if *in.Matrix.Stable {
			stability = "stable"
		}
	}
	var line3 string
	if in.Risk.MaxNR != nil {
		top := make([]string, 0, len(in.Risk.Top))
		for _, item := range in.Risk.Top {
			top = append(top, fmt.Sprintf("%s (NR %d)", item.Name, item.NR))
		}
		topText := "n/a"
		if len(top) > 0 {
			topText = strings.Join(top, ", ")
		}
		line3 = fmt.Sprintf("GTC-45 risk validation%s: maximum NR %d (%s); main hazards: %s. Risk matrix on record: %s (%s).",
			labelSuffix(r.MatrixLabel), *in.Risk.MaxNR, levelOf(*in.Risk.MaxNR), topText, yesNo(in.Matrix.HasMatrix), stability)
	} else {
		line3 = fmt.Sprintf("GTC-45 risk validation%s: NR cannot be computed because ND/NE/NC scores are incomplete. Risk matrix on record: %s (%s).",
			labelSuffix(r.MatrixLabel), yesNo(in.Matrix.HasMatrix), stability)
	}

	var line4 string
	if r.Months == r.Recommended.Months {
		line4 = fmt.Sprintf("Conclusion: the periodic exam interval is set at %d months.", r.Months)
	} else {
		line4 = fmt.Sprintf("Conclusion: the available evidence supports an interval of %d months; %d months is not supportable without additional evidence or a hazard matrix adjustment.",
			r.Recommended.Months, r.Months)
	}
	return strings.Join([]string{line1, line2, line3, line4}, "\n")
}

// -- Detailed --

// Criterion is one condition behind a 24 or 36 month interval.
type Criterion struct {
	Months      int    `json:"months"`
	Description string `json:"description"`
	Met         bool   `json:"met"`
}

// Criteria lists every condition that could support each interval and
// whether it holds for in.
func Criteria(in *Inputs) []Criterion {
	d, abs, ex, risk, m := in.Demographics, in.Absenteeism, in.Exams, in.Risk, in.Matrix
	workRelated := abs.WorkAccidents + abs.WorkIllnesses
	findings := ex.Unfit + ex.FollowUpRequired
	return []Criterion{
		{ShortInterval, fmt.Sprintf("Workers under 21 years of age (%d).", d.Under21), d.Under21 > 0},
		{ShortInterval, fmt.Sprintf("Workers with tenure under 2 years in the position (%d).", d.TenureUnder2), d.TenureUnder2 > 0},
		{ShortInterval, fmt.Sprintf("Workers without a recorded hire date (%d); 36 months cannot be supported without evidence.", d.MissingHireDate), d.MissingHireDate > 0},
		{ShortInterval, fmt.Sprintf("Work accidents or work illnesses recorded in the period (%d).", workRelated), workRelated > 0},
		{ShortInterval, fmt.Sprintf("Relevant clinical findings: unfit results or required follow-ups (%d).", findings), findings > 0},
		{ShortInterval, "No hazard matrix on record to support the maximum interval.", missingMatrix(in)},
		{ShortInterval, "Hazard matrix changed against the previous version (risk profile not stable).", m.Unstable()},
		{ShortInterval, fmt.Sprintf("Hazard matrix shows risk levels that need closer follow-up (NR >= %d).", RiskThreshold), highRisk(risk)},
		{LongInterval, "No active workers assigned to the position.", d.ActiveWorkers == 0},
		{LongInterval, "Working population aged 21 or over (per available records).", d.Under21 == 0},
		{LongInterval, "Tenure of 2 years or more in the position (per available records).", d.TenureUnder2 == 0},
		{LongInterval, "No work accidents or work illnesses recorded in the period.", workRelated == 0},
		{LongInterval, "No critical findings recorded in occupational exams.", findings == 0},
		{LongInterval, fmt.Sprintf("Tolerable global risk in the hazard matrix (NR < %d).", RiskThreshold), risk.MaxNR != nil && *risk.MaxNR < RiskThreshold},
		{LongInterval, "Hazard matrix stable against the previous version.", m.HasPrevious && m.Stable != nil && *m.Stable},
	}
}

func renderDetailed(r *Report) string {
	in := r.Inputs
	d, abs, ex, m, risk := in.Demographics, in.Absenteeism, in.Exams, in.Matrix, in.Risk
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("Technical justification of the periodic occupational exam interval (%d months) for position %s.", r.Months, positionRef(r))
	line("")
	line("Regulatory framework:")
	line("- Occupational health and safety management system criteria (hazard matrix, epidemiological surveillance, indicators).")
	line("- Resolution 1843 of 2025 (age, tenure and health status criteria with documented support).")
	line("- Analysis date: %s. Exposed population: %d active worker(s).", r.Today.Format("2006-01-02"), d.ActiveWorkers)
	line("")
	line("Records available (last %d months since %s):", abs.WindowMonths, abs.WindowStart.Format("2006-01-02"))
	line("- Under 21: %d; tenure under 2 years: %d; missing hire date: %d.", d.Under21, d.TenureUnder2, d.MissingHireDate)
	if abs.Unavailable {
		line("- Absenteeism: records unavailable at the time of analysis.")
	} else {
		line("- Absenteeism: events=%d, disability/charged days=%d, work accidents=%d, work illnesses=%d.",
			abs.Events, abs.ChargedDays, abs.WorkAccidents, abs.WorkIllnesses)
	}
	if ex.Unavailable {
		line("- Occupational exams: records unavailable at the time of analysis.")
	} else {
		line("- Occupational exams: total=%d (fit=%d, fit with recommendations=%d, unfit=%d), follow-up required=%d.",
			ex.Total, ex.Fit, ex.FitWithRecommendations, ex.Unfit, ex.FollowUpRequired)
	}
	switch {
	case m.Unavailable:
		line("- Hazard matrix: records unavailable at the time of analysis.")
	case m.HasMatrix:
		stability := "not evaluated"
		if m.Stable != nil {
			stability = yesNo(*m.Stable)
		}
		line("- Hazard matrix: version %s, rows=%d, stable against previous version=%s.", m.LatestVersion, m.RowCount, stability)
	default:
		line("- Hazard matrix: no versions on record for the position.")
	}
	switch {
	case risk.HasMatrix && risk.MaxNR != nil:
		top := make([]string, 0, len(risk.Top))
		for _, item := range risk.Top {
			top = append(top, fmt.Sprintf("%s (NR=%d, %s)", item.Name, item.NR, item.Level.Label()))
		}
		line("- GTC-45 validation%s: evaluated rows=%d, maximum NR=%d. Top hazards: %s.",
			labelSuffix(r.MatrixLabel), risk.Evaluated, *risk.MaxNR, strings.Join(top, "; "))
	case risk.HasMatrix:
		line("- GTC-45 validation%s: no rows with complete ND/NE/NC scores to compute NR.", labelSuffix(r.MatrixLabel))
	default:
		line("- GTC-45 validation: not available (no hazard matrix for the position).")
	}

	criteria := Criteria(in)
	for _, months := range []int{ShortInterval, LongInterval} {
		line("")
		line("Criteria supporting %d months:", months)
		for _, c := range criteria {
			if c.Months != months {
				continue
			}
			mark := " "
			if c.Met {
				mark = "x"
			}
			line("- [%s] %s", mark, c.Description)
		}
	}

	line("")
	line("System recommendation with the available evidence: %d months.", r.Recommended.Months)
	if r.Months != r.Recommended.Months {
		line("The chosen interval of %d months differs from the recommendation and needs additional documented support.", r.Months)
	}
	line("Evidence to attach or validate where applicable: current hazard matrix, process changes, area indicators and applicable surveillance programs.")
	return b.String()
}

func levelOf(nr int) string {
	return gtc45.LevelFor(nr, true).Label()
}
