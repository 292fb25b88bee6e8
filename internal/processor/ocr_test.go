package processor

import "testing"

func TestNewOCREngineJoinsLanguages(t *testing.T) {
	e := NewOCREngine([]string{"eng", "deu"}, 300)
	if e.languages != "eng+deu" {
		t.Errorf("languages = %q, want %q", e.languages, "eng+deu")
	}
	if e.DPI() != 300 {
		t.Errorf("DPI() = %d, want 300", e.DPI())
	}
}

func TestNewOCREngineDefaultsToEnglish(t *testing.T) {
	e := NewOCREngine(nil, 300)
	if e.languages != "eng" {
		t.Errorf("languages = %q, want %q", e.languages, "eng")
	}
}

func TestNewOCREngineSingleLanguage(t *testing.T) {
	e := NewOCREngine([]string{"fra"}, 150)
	if e.languages != "fra" {
		t.Errorf("languages = %q, want %q", e.languages, "fra")
	}
	if e.DPI() != 150 {
		t.Errorf("DPI() = %d, want 150", e.DPI())
	}
}

func TestProcessImageBytesRejectsInvalidData(t *testing.T) {
	e := NewOCREngine([]string{"eng"}, 300)
	if _, err := e.ProcessImageBytes([]byte("not valid image data")); err == nil {
		t.Error("expected an error for invalid image data")
	}
}

func TestProcessImageBytesRejectsEmptyData(t *testing.T) {
	e := NewOCREngine([]string{"eng"}, 300)
	if _, err := e.ProcessImageBytes(nil); err == nil {
		t.Error("expected an error for empty image data")
	}
}
