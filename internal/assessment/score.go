package assessment

import "math"

// RawScore sums the resolved scores of answered scored questions. Answers to
// unknown or unscored questions contribute nothing.
func RawScore(c *Catalog, answers []Answer) int {
	total := 0
	for _, a := range answers {
		q := c.Question(a.QuestionID)
		if q == nil || !q.Scored() {
			continue
		}
		total += Resolve(q, a.Value).Score
	}
	return total
}

// Percentage returns raw/max as a whole percentage, rounded half away from
// zero. It is 0 when max is not positive.
func Percentage(raw, max int) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(float64(raw) / float64(max) * 100))
}

// Result is the outcome of scoring one set of answers.
type Result struct {
	Raw        int  `json:"score"`
	Max        int  `json:"maxScore"`
	Percentage int  `json:"percentage"`
	Tier       Tier `json:"tier"`
}

// Evaluate scores answers against the catalog.
func Evaluate(c *Catalog, answers []Answer) Result {
	return c.ScoreResult(RawScore(c, answers))
}

// ScoreResult derives percentage and tier from an already computed raw score.
// Stored leads only keep the raw score, so admin views go through here.
func (c *Catalog) ScoreResult(raw int) Result {
	pct := Percentage(raw, c.maxScore)
	return Result{
		Raw:        raw,
		Max:        c.maxScore,
		Percentage: pct,
		Tier:       ClassifyTier(pct),
	}
}
