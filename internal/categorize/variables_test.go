package categorize

import (
	"testing"
	"time"

	"github.com/iperka/paporg-sub001/internal/config"
)

func TestEngineExtractAppliesTransformAndFallback(t *testing.T) {
	t.Parallel()
	vendor := "unknown"
	engine, err := NewEngine([]config.Resource[config.VariableSpec]{
		{
			Metadata: config.ObjectMeta{Name: "vendor"},
			Spec:     config.VariableSpec{Pattern: `Vendor: (?P<vendor>[A-Za-z ]+)`, Transform: config.TransformSlugify},
		},
		{
			Metadata: config.ObjectMeta{Name: "amount"},
			Spec:     config.VariableSpec{Pattern: `Amount: (?P<amount>[0-9.]+)`, Default: &vendor},
		},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	got := engine.Extract("Vendor: Acme Corp\nsome other line")
	if got["vendor"] != "acme-corp" {
		t.Errorf("vendor = %q, want %q", got["vendor"], "acme-corp")
	}
	if got["amount"] != "unknown" {
		t.Errorf("amount = %q, want fallback %q", got["amount"], "unknown")
	}
}

func TestEngineExtractOmitsUnmatchedWithoutFallback(t *testing.T) {
	t.Parallel()
	engine, err := NewEngine([]config.Resource[config.VariableSpec]{
		{
			Metadata: config.ObjectMeta{Name: "po"},
			Spec:     config.VariableSpec{Pattern: `PO#(?P<po>\d+)`},
		},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	got := engine.Extract("no purchase order here")
	if _, ok := got["po"]; ok {
		t.Errorf("expected po to be absent, got %q", got["po"])
	}
}

func TestNewEngineRejectsInvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := NewEngine([]config.Resource[config.VariableSpec]{
		{Metadata: config.ObjectMeta{Name: "bad"}, Spec: config.VariableSpec{Pattern: `(unclosed`}},
	})
	if err == nil {
		t.Fatal("expected an error for an invalid regex pattern")
	}
}

func TestBuiltinVariablesFormatsClockFields(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	got := BuiltinVariables("invoice", now)

	want := map[string]string{"original": "invoice", "y": "2026", "m": "03", "d": "04", "h": "05", "mn": "06", "s": "07"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSubstituteReplacesKnownTokensAndLeavesUnknown(t *testing.T) {
	t.Parallel()
	got := Substitute("invoices/$y/$vendor-$original", map[string]string{"y": "2026", "vendor": "acme"})
	want := "invoices/2026/acme-$original"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
