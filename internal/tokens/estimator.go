package tokens

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator converts text into an approximate count of model-context tokens.
// Counts are used for prompt budgeting only, not billing.
type Estimator interface {
	Estimate(text string) int
}

const encodingName = "cl100k_base"

// Encoding counts tokens with a fixed subword tokenization scheme.
type Encoding struct {
	enc *tiktoken.Tiktoken
}

func (e *Encoding) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, nil, nil))
}

// WordCount is the degraded tier: roughly two tokens per whitespace-separated
// word. Pure and total over all inputs.
type WordCount struct{}

func (WordCount) Estimate(text string) int {
	return len(strings.Fields(text)) * 2
}

// New selects the estimation tier once at initialization. When the encoding
// table cannot be loaded the word-count fallback is returned instead, so
// later calls never retry the failing path.
func New() Estimator {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return WordCount{}
	}
	return &Encoding{enc: enc}
}
