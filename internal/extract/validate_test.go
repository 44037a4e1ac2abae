package extract

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
)

func detailJSON(text, importance string) gjson.Result {
	b := `{"text":` + quote(text) + `,"importance":` + quote(importance) + `}`
	return gjson.Parse(b)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func TestValidateDetail_ValidPasses(t *testing.T) {
	d, ok := ValidateDetail(detailJSON("Revenue doubled in the second quarter.", "high"))
	if !ok {
		t.Fatal("expected valid detail to pass validation")
	}
	if d.Importance != concept.High {
		t.Errorf("expected importance high, got %q", d.Importance)
	}
}

func TestValidateDetail_NotAnObject(t *testing.T) {
	if _, ok := ValidateDetail(gjson.Parse(`"just a string"`)); ok {
		t.Error("expected a bare string to fail validation")
	}
}

func TestValidateDetail_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   "} {
		if _, ok := ValidateDetail(detailJSON(text, "high")); ok {
			t.Errorf("expected text %q to fail", text)
		}
	}
}

func TestValidateDetail_TextTooLong(t *testing.T) {
	if _, ok := ValidateDetail(detailJSON(strings.Repeat("a", 501), "low")); ok {
		t.Error("expected text > 500 chars to fail")
	}
}

func TestValidateDetail_TextExactlyMaxLength(t *testing.T) {
	if _, ok := ValidateDetail(detailJSON(strings.Repeat("é", 500), "low")); !ok {
		t.Error("expected text of exactly 500 characters to pass")
	}
}

func TestValidateDetail_Importance(t *testing.T) {
	tests := []struct {
		in   string
		want concept.Importance
		ok   bool
	}{
		{"high", concept.High, true},
		{"HIGH", concept.High, true},
		{"Medium", concept.Medium, true},
		{" low ", concept.Low, true},
		{"critical", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			d, ok := ValidateDetail(detailJSON("Some detail text.", tc.in))
			if ok != tc.ok {
				t.Fatalf("expected valid=%v, got %v", tc.ok, ok)
			}
			if d.Importance != tc.want {
				t.Errorf("expected importance %q, got %q", tc.want, d.Importance)
			}
		})
	}
}

func TestValidateDetail_OrdinaryPhrasingPasses(t *testing.T) {
	texts := []string{
		"Congress can override a presidential veto with a two-thirds vote.",
		"Enzymes act as catalysts that lower activation energy.",
		"Children pretend play to rehearse social roles.",
		"The new instructions manual ships with every unit.",
	}
	for _, text := range texts {
		if _, ok := ValidateDetail(detailJSON(text, "medium")); !ok {
			t.Errorf("expected %q to pass validation", text)
		}
	}
}

func TestValidateDetails_KeepsOrder(t *testing.T) {
	arr := gjson.Parse(`[
		{"text": "First", "importance": "low"},
		{"text": "", "importance": "high"},
		{"text": "Second", "importance": "bogus"},
		{"text": "Third", "importance": "MEDIUM"}
	]`)
	got := ValidateDetails(arr)
	if len(got) != 2 {
		t.Fatalf("expected 2 valid details, got %d", len(got))
	}
	if got[0].Text != "First" || got[1].Text != "Third" {
		t.Errorf("unexpected order: %+v", got)
	}
}
