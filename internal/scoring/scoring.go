package scoring

import (
	"sync"

	"github.com/newspulse/newspulse/internal/models"
	"github.com/newspulse/newspulse/internal/utils"
)

// Label tiers. The thresholds are part of the product contract: feed
// consumers branch on the label, so they live here as named constants
// rather than inline numbers.
const (
	LabelMild      = "mild"
	LabelHot       = "hot"
	LabelExplosive = "explosive"

	LabelHotMin       = 40
	LabelExplosiveMin = 70
)

// Per-signal contribution caps. The caps sum to 100, so the composite
// clamp only fires on rounding.
const (
	maxChargedKeywords      = 40.0
	maxSentimentExtremity   = 25.0
	maxAdversarialFraming   = 25.0
	maxPunctuationIntensity = 10.0
)

// Signal names as reported in the breakdown map. Every signal appears
// in the breakdown of every result, including zero contributions.
const (
	SignalChargedKeywords      = "charged_keywords"
	SignalSentimentExtremity   = "sentiment_extremity"
	SignalAdversarialFraming   = "adversarial_framing"
	SignalPunctuationIntensity = "punctuation_intensity"
)

// Result is the outcome of scoring one item.
type Result struct {
	Score     int                `json:"score"`
	Label     string             `json:"label"`
	Emoji     string             `json:"emoji"`
	Breakdown map[string]float64 `json:"breakdown"`
}

var chargedKeywords = []string{
	// en
	"scandal", "outrage", "shocking", "slams", "blasts", "fury", "furious",
	"crisis", "chaos", "disaster", "catastrophe", "explosive", "bombshell",
	"betrayal", "corrupt", "corruption", "collapse", "threat", "threatens",
	"banned", "accuses", "accused", "destroyed", "humiliated", "lies",
	// ru
	"скандал", "возмущение", "шок", "шокирующий", "ярость", "кризис",
	"хаос", "катастрофа", "предательство", "коррупция", "развал",
	"угроза", "угрожает", "запретили", "обвиняет", "обвинили",
	"уничтожен", "провал", "ложь", "разгром",
}

var positiveWords = []string{
	"good", "great", "success", "win", "wins", "breakthrough", "hope",
	"improve", "growth", "progress", "celebrate", "record high",
	"хорошо", "успех", "победа", "прорыв", "надежда", "рост", "прогресс",
	"рекорд", "улучшение", "достижение",
}

var negativeWords = []string{
	"bad", "fail", "failure", "loss", "crash", "worst", "fear", "panic",
	"decline", "dead", "death", "killed", "collapse", "warning",
	"плохо", "провал", "потеря", "крах", "худший", "страх", "паника",
	"падение", "смерть", "погиб", "убит", "предупреждение",
}

var adversarialMarkers = []string{
	"vs", "against", "versus", "clash", "clashes", "standoff",
	"confrontation", "feud", "rivalry", "showdown", "face off", "faces off",
	"против", "столкновение", "противостояние", "конфликт", "вражда",
	"схватка", "соперничество",
}

// Word lists are matched against whole tokens, never substrings, so
// "lies" does not fire inside "supplies". Pre-tokenized once.
var (
	chargedRuns     = utils.TokenizeKeywords(chargedKeywords)
	positiveRuns    = utils.TokenizeKeywords(positiveWords)
	negativeRuns    = utils.TokenizeKeywords(negativeWords)
	adversarialRuns = utils.TokenizeKeywords(adversarialMarkers)
)

// Score computes the controversy score for one item. Pure and total:
// missing fields are coerced to empty text and contribute nothing.
func Score(item models.RawItem) Result {
	title := item.Title
	if title == "" {
		title = utils.CoerceString(item.Extra["title"])
	}
	summary := item.Summary
	if summary == "" {
		summary = utils.CoerceString(item.Extra["summary"])
	}
	tokens := utils.Tokenize(title + " " + summary)

	breakdown := map[string]float64{
		SignalChargedKeywords:      chargedScore(tokens),
		SignalSentimentExtremity:   extremityScore(tokens),
		SignalAdversarialFraming:   adversarialScore(tokens),
		SignalPunctuationIntensity: punctuationScore(title + " " + summary),
	}

	var raw float64
	for _, v := range breakdown {
		raw += v
	}
	score := int(raw + 0.5)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	label, emoji := labelForScore(score)
	return Result{
		Score:     score,
		Label:     label,
		Emoji:     emoji,
		Breakdown: breakdown,
	}
}

// ScoreBatch scores every item, preserving input order. Items are
// independent, so the work runs on a bounded pool writing into an
// index-addressed slice with no shared mutable state.
func ScoreBatch(items []models.RawItem, workers int) []Result {
	if workers <= 0 {
		workers = 4
	}
	results := make([]Result, len(items))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range items {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = Score(items[i])
		}(i)
	}
	wg.Wait()
	return results
}

// LabelFor maps a composite score to its tier label.
func LabelFor(score int) string {
	label, _ := labelForScore(score)
	return label
}

func labelForScore(score int) (string, string) {
	switch {
	case score >= LabelExplosiveMin:
		return LabelExplosive, "💥"
	case score >= LabelHotMin:
		return LabelHot, "🔥"
	default:
		return LabelMild, "🌶️"
	}
}

// chargedScore counts hits from the divisive keyword sets, 8 points
// each up to the cap.
func chargedScore(tokens []string) float64 {
	var hits int
	for _, kw := range chargedRuns {
		if utils.ContainsTokens(tokens, kw) {
			hits++
		}
	}
	score := float64(hits) * 8
	if score > maxChargedKeywords {
		score = maxChargedKeywords
	}
	return score
}

// extremityScore rewards polarity distance from neutral in either
// direction; a strongly positive headline is as extreme as a strongly
// negative one.
func extremityScore(tokens []string) float64 {
	var pos, neg int
	for _, w := range positiveRuns {
		if utils.ContainsTokens(tokens, w) {
			pos++
		}
	}
	for _, w := range negativeRuns {
		if utils.ContainsTokens(tokens, w) {
			neg++
		}
	}
	extremity := pos - neg
	if extremity < 0 {
		extremity = -extremity
	}
	score := float64(extremity) * 7
	if score > maxSentimentExtremity {
		score = maxSentimentExtremity
	}
	return score
}

func adversarialScore(tokens []string) float64 {
	var hits int
	for _, m := range adversarialRuns {
		if utils.ContainsTokens(tokens, m) {
			hits++
		}
	}
	score := float64(hits) * 9
	if score > maxAdversarialFraming {
		score = maxAdversarialFraming
	}
	return score
}

// punctuationScore measures exclamation and question mark density per
// 100 runes of the original (non-lowered) text.
func punctuationScore(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	var marks int
	for _, r := range runes {
		if r == '!' || r == '?' {
			marks++
		}
	}
	density := float64(marks) / float64(len(runes)) * 100
	score := density * 2.5
	if score > maxPunctuationIntensity {
		score = maxPunctuationIntensity
	}
	return score
}
