package memory

import (
	"math"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/recalld/internal/core"
)

var (
	tk     *tiktoken.Tiktoken
	tkOnce sync.Once
)

// Baseline weights per context type. Reasoning steps and test results carry
// more signal than plain conversation turns.
var typeBaseline = map[core.ContextType]float64{
	core.ContextConversation:  0.30,
	core.ContextWebContent:    0.35,
	core.ContextDatabaseQuery: 0.40,
	core.ContextProjectTask:   0.45,
	core.ContextCodeAnalysis:  0.50,
	core.ContextKnowledgeBase: 0.50,
	core.ContextTestResult:    0.60,
	core.ContextReasoningStep: 0.60,
}

const (
	lengthWeight = 0.25
	// Token count beyond which extra length stops adding importance
	lengthSaturation = 512

	questionBonus = 0.05
	errorBonus    = 0.10
	decisionBonus = 0.10
)

var errorMarkers = []string{"error", "exception", "panic", "fail", "traceback"}

var decisionMarkers = []string{"decided", "decision", "must ", "should ", "important", "todo", "conclusion"}

// Score computes a default importance score for an entry. Pure and
// deterministic: same content and context type always produce the same
// value, always within [0, 1].
func Score(content string, contextType core.ContextType) float64 {
	score := typeBaseline[contextType]
	if score == 0 {
		score = 0.30
	}

	// Longer informative content skews higher, with diminishing returns
	n := countTokens(content)
	if n > lengthSaturation {
		n = lengthSaturation
	}
	score += lengthWeight * float64(n) / float64(lengthSaturation)

	lower := strings.ToLower(content)

	if strings.Contains(lower, "?") {
		score += questionBonus
	}
	if containsAny(lower, errorMarkers) {
		score += errorBonus
	}
	if containsAny(lower, decisionMarkers) {
		score += decisionBonus
	}

	return Clamp(score)
}

// Clamp forces a score into [0.0, 1.0]. NaN maps to 0.
func Clamp(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func countTokens(text string) int {
	if enc := getTokenizer(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	// Word count approximation when the encoding is unavailable
	return len(strings.Fields(text))
}

func getTokenizer() *tiktoken.Tiktoken {
	tkOnce.Do(func() {
		tk, _ = tiktoken.GetEncoding("cl100k_base")
	})
	return tk
}
