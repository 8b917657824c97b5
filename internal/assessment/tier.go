package assessment

import (
	"fmt"
	"strings"
)

// Tier is the readiness bucket a percentage falls into.
type Tier int

const (
	TierUnknown Tier = iota
	TierNoiseDriven
	TierPartialSignal
	TierSignalDriven
)

// Upper bounds (inclusive) of the two lower tiers.
const (
	noiseCeiling   = 40
	partialCeiling = 70
)

// ClassifyTier buckets a 0-100 percentage. This is the only place tier
// boundaries live; every surface that shows a tier calls it.
func ClassifyTier(pct int) Tier {
	switch {
	case pct <= noiseCeiling:
		return TierNoiseDriven
	case pct <= partialCeiling:
		return TierPartialSignal
	default:
		return TierSignalDriven
	}
}

func (t Tier) String() string {
	switch t {
	case TierNoiseDriven:
		return "Noise-Driven Execution"
	case TierPartialSignal:
		return "Partial Signal Clarity"
	case TierSignalDriven:
		return "Signal-Driven Growth"
	}
	return "Unknown"
}

// Slug is a stable identifier for query strings and CSS classes.
func (t Tier) Slug() string {
	switch t {
	case TierNoiseDriven:
		return "noise-driven"
	case TierPartialSignal:
		return "partial-signal"
	case TierSignalDriven:
		return "signal-driven"
	}
	return "unknown"
}

// ParseTier accepts the canonical label, the slug, or one of the short labels
// older records were stored with. Matching ignores case.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "noise-driven execution", "noise-driven", "noise_driven", "noise":
		return TierNoiseDriven, nil
	case "partial signal clarity", "partial-signal", "partial signal", "partial_signal", "partial":
		return TierPartialSignal, nil
	case "signal-driven growth", "signal-driven", "signal_driven", "growth ready", "signal":
		return TierSignalDriven, nil
	}
	return TierUnknown, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CTAKind says where a tier's call to action leads.
type CTAKind string

const (
	CTAMasterclass CTAKind = "masterclass"
	CTABooking     CTAKind = "booking"
)

const MasterclassPath = "/masterclass"

type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TierProfile is the copy shown next to a result.
type TierProfile struct {
	Tier        Tier      `json:"tier"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CTALabel    string    `json:"ctaLabel"`
	CTAKind     CTAKind   `json:"ctaKind"`
	Insights    []Insight `json:"insights"`
}

// CTALink resolves the call to action against the booking page in use.
func (p TierProfile) CTALink(bookingURL string) string {
	if p.CTAKind == CTAMasterclass {
		return MasterclassPath
	}
	return bookingURL
}

var profiles = map[Tier]TierProfile{
	TierNoiseDriven: {
		Tier:        TierNoiseDriven,
		Title:       "Noise-Driven Execution",
		Description: "Your current strategy relies heavily on assumptions rather than verified signals. You are likely executing in areas with low buying intent.",
		CTALabel:    "Watch Signal Masterclass",
		CTAKind:     CTAMasterclass,
		Insights: []Insight{
			{"High Noise Detected", "Your current strategy relies heavily on assumptions rather than verified signals. You are likely executing in areas with low buying intent. Immediate Action: Stop scaling spend until demand signals are validated."},
			{"CAC/LTV Risk Warning", "You are currently treating all prospects as equal. This dilutes your team's focus and spikes CAC. You need a 'Negative Filtering' system immediately to disqualify bad fits early."},
			{"Reactive Execution", "You are reacting to the market rather than directing it. This leads to burnout and unpredictable revenue. Pause execution; build a decision framework first."},
		},
	},
	TierPartialSignal: {
		Tier:        TierPartialSignal,
		Title:       "Partial Signal Clarity",
		Description: "You have found some market fit, but consistency is lacking. You are likely winning deals but unsure why or how to repeat it efficiently.",
		CTALabel:    "Book Strategy Call",
		CTAKind:     CTABooking,
		Insights: []Insight{
			{"Signal Gaps Identified", "You have found some market fit, but consistency is lacking. You are likely winning deals but unsure why or how to repeat it efficiently. You need to bridge the gap between sales data and marketing targets."},
			{"Priority Leaks", "Your team knows who the ideal customer is, but they still spend 30-40% of their time on low-probability leads. Tighten your qualification criteria to free up resources."},
			{"Process Inconsistency", "Success currently depends on individual talent, not system architecture. If your top performer leaves, revenue risks dropping. Document the decision logic now."},
		},
	},
	TierSignalDriven: {
		Tier:        TierSignalDriven,
		Title:       "Signal-Driven Growth",
		Description: "You have strong market visibility. The challenge now is not finding customers, but architecting decisions to capture them before competitors do.",
		CTALabel:    "Book Executive Strategy Call",
		CTAKind:     CTABooking,
		Insights: []Insight{
			{"Signal Clarity Confirmed", "You have strong market visibility. The challenge now is not 'finding' customers, but 'architecting' decisions to capture them before competitors do. Focus on speed and precision."},
			{"High-Value Focus", "Your prioritization is solid. Shift your focus to 'Account Expansion' and increasing LTV. Use your signal data to predict their next need before they ask."},
			{"Systematic Scale", "You are ready for 'Decision Architecture'. Automate the signal reading so leaders can focus on the 8% of high-impact relationships (The Origo 92/8 Rule)."},
		},
	},
}

// Profile returns the result copy for t. Unknown tiers get the Noise-Driven
// profile.
func Profile(t Tier) TierProfile {
	p, ok := profiles[t]
	if !ok {
		p = profiles[TierNoiseDriven]
	}
	p.Insights = append([]Insight(nil), p.Insights...)
	return p
}
