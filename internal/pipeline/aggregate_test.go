package pipeline

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/dgallion1/chartmate/internal/ocr"
)

func TestPageFromLines(t *testing.T) {
	res := PageFromLines(2, []ocr.Line{
		{Text: "PATIENT", Confidence: 90},
		{Text: "Jane Doe", Confidence: 70},
	})
	if res.Page != 2 {
		t.Errorf("page = %d", res.Page)
	}
	if res.Text != "PATIENT Jane Doe " {
		t.Errorf("text = %q", res.Text)
	}
	if res.Confidence != 80 {
		t.Errorf("confidence = %f", res.Confidence)
	}
}

func TestPageFromLines_NoLines(t *testing.T) {
	res := PageFromLines(0, nil)
	if res.Text != "" || res.Confidence != 0 {
		t.Errorf("expected empty zero-confidence page, got %+v", res)
	}
}

func TestAssemblePages_OrderIndependent(t *testing.T) {
	// Property: the reassembled text is identical no matter what order
	// pages completed in.
	const n = 20
	base := make([]PageResult, n)
	for i := range base {
		base[i] = PageResult{Page: i, Text: "p" + strconv.Itoa(i) + " ", Confidence: float64(50 + i)}
	}
	want := AssemblePages(base)

	for trial := 0; trial < 25; trial++ {
		shuffled := make([]PageResult, n)
		copy(shuffled, base)
		rand.Shuffle(n, func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := AssemblePages(shuffled)
		if got.Text != want.Text {
			t.Fatalf("trial %d: text differs\ngot  %q\nwant %q", trial, got.Text, want.Text)
		}
		if got.Confidence != want.Confidence {
			t.Fatalf("trial %d: confidence differs: %f vs %f", trial, got.Confidence, want.Confidence)
		}
	}
}

func TestAssemblePages_ConfidenceBounds(t *testing.T) {
	tests := []struct {
		name  string
		confs []float64
		want  float64
	}{
		{"empty", nil, 0},
		{"single", []float64{42}, 42},
		{"mean", []float64{90, 80, 100}, 90},
		{"extremes", []float64{0, 100}, 50},
		{"all zero", []float64{0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := make([]PageResult, len(tt.confs))
			for i, c := range tt.confs {
				pages[i] = PageResult{Page: i, Confidence: c}
			}
			got := AssemblePages(pages)
			if got.Confidence != tt.want {
				t.Errorf("confidence = %f, want %f", got.Confidence, tt.want)
			}
			if got.Confidence < 0 || got.Confidence > 100 {
				t.Errorf("confidence %f out of [0,100]", got.Confidence)
			}
		})
	}
}

func TestAggregatedText_Append(t *testing.T) {
	old := AggregatedText{Text: "old ", Confidence: 80, Pages: 2}
	more := AggregatedText{Text: "new ", Confidence: 100, Pages: 2}
	got := old.Append(more)

	if got.Text != "old new " {
		t.Errorf("old text must precede new, got %q", got.Text)
	}
	if got.Confidence != 90 {
		t.Errorf("confidence = %f, want page-weighted mean 90", got.Confidence)
	}
	if got.Pages != 4 {
		t.Errorf("pages = %d", got.Pages)
	}
}

func TestAggregatedText_AppendEmpty(t *testing.T) {
	base := AggregatedText{Text: "x ", Confidence: 70, Pages: 1}
	if got := base.Append(AggregatedText{}); got != base {
		t.Errorf("appending empty changed the artifact: %+v", got)
	}
	if got := (AggregatedText{}).Append(base); got != base {
		t.Errorf("appending to empty lost data: %+v", got)
	}
}
