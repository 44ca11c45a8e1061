package services

import (
	"math"
	"strings"
	"time"

	"github.com/dwoslabs/dwos-backend/internal/domain"
)

// priorityWeights maps tracker priority names to a base urgency weight.
// Unknown priorities score zero so operators notice the gap.
var priorityWeights = map[string]float64{
	"blocker":  1.0,
	"highest":  0.95,
	"critical": 0.9,
	"high":     0.8,
	"medium":   0.5,
	"low":      0.25,
	"lowest":   0.1,
}

// keywordWeights bias hardware-impacting incidents above routine work.
var keywordWeights = map[string]float64{
	"gpu":         0.30,
	"cool":        0.25,
	"thermal":     0.20,
	"power":       0.15,
	"network":     0.10,
	"maintenance": 0.05,
}

const (
	missingFieldPenalty = 0.05
	ageContributionCap  = 0.2
	ageFullScaleDays    = 14.0
	waitingStatusBoost  = 0.1
)

// trackerTimeLayouts are tried in order when parsing updated_at strings.
var trackerTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func priorityWeight(priority string) float64 {
	return priorityWeights[strings.ToLower(strings.TrimSpace(priority))]
}

func keywordBonus(text string) float64 {
	lower := strings.ToLower(text)
	var bonus float64
	for kw, w := range keywordWeights {
		if strings.Contains(lower, kw) {
			bonus += w
		}
	}
	return bonus
}

// baseScore is the static urgency of a ticket, independent of queue position.
func baseScore(t domain.Ticket) float64 {
	score := priorityWeight(t.Priority)
	score += keywordBonus(t.Summary + " " + t.Description)
	score -= missingFieldPenalty * float64(len(t.MissingFields()))
	if score < 0 {
		score = 0
	}
	return round3(score)
}

// ageContribution grows with time since the ticket was last updated, capped so
// a stale low-priority ticket never outranks a fresh critical one.
func ageContribution(updatedAt string, now time.Time) float64 {
	ts, ok := parseTrackerTime(updatedAt)
	if !ok {
		return 0
	}
	days := now.Sub(ts).Hours() / 24
	if days <= 0 {
		return 0
	}
	frac := days / ageFullScaleDays
	if frac > 1 {
		frac = 1
	}
	return ageContributionCap * frac
}

func statusBoost(status string) float64 {
	lower := strings.ToLower(status)
	if strings.Contains(lower, "waiting") || strings.Contains(lower, "blocked") {
		return waitingStatusBoost
	}
	return 0
}

func parseTrackerTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range trackerTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
