package scoring

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/newspulse/newspulse/internal/models"
)

func TestScoreRange(t *testing.T) {
	items := []models.RawItem{
		{},
		{Title: "Quiet day in local gardening club"},
		{Title: "SCANDAL! Corruption bombshell destroys minister in furious showdown!!!",
			Summary: "Outrage and chaos as betrayal accusations spark panic and fear of collapse!!!"},
		{Title: "Скандал! Коррупция и предательство: хаос и катастрофа!!!"},
	}
	for i, item := range items {
		r := Score(item)
		if r.Score < 0 || r.Score > 100 {
			t.Errorf("item %d: score %d out of [0,100]", i, r.Score)
		}
	}
}

func TestScoreLabels(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, LabelMild},
		{LabelHotMin - 1, LabelMild},
		{LabelHotMin, LabelHot},
		{LabelExplosiveMin - 1, LabelHot},
		{LabelExplosiveMin, LabelExplosive},
		{100, LabelExplosive},
	}
	for _, tt := range tests {
		if got := LabelFor(tt.score); got != tt.want {
			t.Errorf("LabelFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestScoreLabelMatchesScore(t *testing.T) {
	r := Score(models.RawItem{Title: "Scandal! Fury! Chaos vs order!"})
	if r.Label != LabelFor(r.Score) {
		t.Errorf("label %q does not match score %d", r.Label, r.Score)
	}
}

func TestScoreBreakdownComplete(t *testing.T) {
	r := Score(models.RawItem{Title: "Quiet afternoon"})
	for _, signal := range []string{
		SignalChargedKeywords,
		SignalSentimentExtremity,
		SignalAdversarialFraming,
		SignalPunctuationIntensity,
	} {
		if _, ok := r.Breakdown[signal]; !ok {
			t.Errorf("breakdown missing signal %q", signal)
		}
	}
}

func TestScoreNeutralIsMild(t *testing.T) {
	r := Score(models.RawItem{Title: "Library announces new opening hours"})
	if r.Label != LabelMild {
		t.Errorf("neutral headline scored %d (%s), expected mild", r.Score, r.Label)
	}
}

func TestScoreChargedOutscoresNeutral(t *testing.T) {
	neutral := Score(models.RawItem{Title: "Committee publishes annual report"})
	charged := Score(models.RawItem{
		Title:   "Scandal! Furious outrage as corruption bombshell threatens collapse!!!",
		Summary: "Betrayal accusations spark chaos, panic and fear in explosive standoff!",
	})
	if charged.Score <= neutral.Score {
		t.Errorf("charged headline (%d) should outscore neutral (%d)", charged.Score, neutral.Score)
	}
}

func TestScoreWholeWordsOnly(t *testing.T) {
	// "supplies" contains "lies" but must not count as a charged hit.
	r := Score(models.RawItem{Title: "Fresh supplies arrive on schedule"})
	if got := r.Breakdown[SignalChargedKeywords]; got != 0 {
		t.Errorf("charged contribution %v for neutral headline, want 0", got)
	}

	r = Score(models.RawItem{Title: "Lies exposed in leaked report"})
	if got := r.Breakdown[SignalChargedKeywords]; got == 0 {
		t.Error("whole-word charged keyword should still contribute")
	}
}

func TestScoreDeterministic(t *testing.T) {
	item := models.RawItem{Title: "Crisis vs chaos!", Summary: "Fury and panic?"}
	first := Score(item)
	for i := 0; i < 20; i++ {
		if got := Score(item); !reflect.DeepEqual(got, first) {
			t.Fatalf("scoring not deterministic: %+v then %+v", first, got)
		}
	}
}

func TestScoreMissingFields(t *testing.T) {
	// Must never panic on empty or non-text payloads.
	items := []models.RawItem{
		{},
		{Extra: map[string]any{"title": 12.5, "summary": nil}},
		{Extra: map[string]any{"title": []byte("scandal everywhere")}},
	}
	for i, item := range items {
		r := Score(item)
		if r.Score < 0 || r.Score > 100 {
			t.Errorf("item %d: score %d out of range", i, r.Score)
		}
	}
}

func TestScoreBatchPreservesOrder(t *testing.T) {
	items := make([]models.RawItem, 50)
	for i := range items {
		items[i] = models.RawItem{Title: fmt.Sprintf("Scandal number %d!", i)}
	}

	sequential := make([]Result, len(items))
	for i, item := range items {
		sequential[i] = Score(item)
	}

	parallel := ScoreBatch(items, 8)
	if len(parallel) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(parallel))
	}
	for i := range items {
		if !reflect.DeepEqual(parallel[i], sequential[i]) {
			t.Errorf("result %d differs between batch and sequential scoring", i)
		}
	}
}

func TestScoreBatchEmpty(t *testing.T) {
	if got := ScoreBatch(nil, 4); len(got) != 0 {
		t.Errorf("expected empty result, got %d entries", len(got))
	}
}
