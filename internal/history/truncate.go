package history

import (
	"github.com/Alaeddine-Az/robotics-chatbot/internal/models"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/tokens"
)

// Truncator selects the suffix of a conversation that fits a token budget.
type Truncator struct {
	est    tokens.Estimator
	budget int
}

func NewTruncator(est tokens.Estimator, budget int) *Truncator {
	return &Truncator{est: est, budget: budget}
}

// Truncate scans the history newest to oldest, keeping messages while the
// running token total stays within budget, and stops at the first message
// that would exceed it. Older messages beyond that point are dropped even
// when they would individually fit. The second return reports whether any
// message was dropped.
func (t *Truncator) Truncate(msgs []models.Message) ([]models.Message, bool) {
	kept := make([]models.Message, 0, len(msgs))
	if t.budget <= 0 {
		return kept, len(msgs) > 0
	}
	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := t.est.Estimate(msgs[i].Content)
		if total+cost > t.budget {
			break
		}
		total += cost
		start = i
	}
	kept = append(kept, msgs[start:]...)
	return kept, start > 0
}
