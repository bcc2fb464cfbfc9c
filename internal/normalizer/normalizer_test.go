package normalizer

import (
	"strings"
	"testing"
)

func TestNormalize_Empty(t *testing.T) {
	if got := Normalize(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	text := "Alpha. Beta. Gamma.\r\n\r\n\r\n\r\nDelta.   End.\n\n\nTail line.  \n"
	once := Normalize(text)
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("normalize is not idempotent:\nonce=%q\ntwice=%q", once, twice)
	}
}

func TestNormalize_CollapsesBlankLines(t *testing.T) {
	text := "Alpha. Beta. Gamma.\n\n\n\nDelta."
	got := Normalize(text)
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("expected runs of >=3 newlines collapsed, got %q", got)
	}
	want := "Alpha. Beta. Gamma.\n\nDelta."
	if got != want {
		t.Fatalf("unexpected normalization: got %q want %q", got, want)
	}
}

func TestNormalize_StripsControlAndSpacingRunes(t *testing.T) {
	text := "a\x01b​c　d"
	got := Normalize(text)
	if strings.ContainsRune(got, 0x01) {
		t.Fatalf("control char not stripped: %q", got)
	}
	if got != "ab c d" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestNormalize_CollapsesSpaceRuns(t *testing.T) {
	got := Normalize("a    b")
	if got != "a b" {
		t.Fatalf("expected single space, got %q", got)
	}
}

func TestNormalize_RemovesRepeatedBoilerplateKeepingFirst(t *testing.T) {
	text := strings.Join([]string{
		"Confidential Co. Report",
		"Section one body text.",
		"Confidential Co. Report",
		"Section two body text.",
		"Confidential Co. Report",
	}, "\n")
	got := Normalize(text)
	count := strings.Count(got, "Confidential Co. Report")
	if count != 1 {
		t.Fatalf("expected boilerplate line kept once, found %d times in %q", count, got)
	}
	if !strings.Contains(got, "Section one body text.") || !strings.Contains(got, "Section two body text.") {
		t.Fatalf("body lines unexpectedly removed: %q", got)
	}
}

func TestNormalize_KeepsShortRepeatedLineBelowThreshold(t *testing.T) {
	// Only 2 occurrences: below the >=3 threshold, so both are kept.
	text := "Header\nbody\nHeader\nbody"
	got := Normalize(text)
	if strings.Count(got, "Header") != 2 {
		t.Fatalf("expected line kept at both occurrences below count threshold: %q", got)
	}
}

func TestNormalize_TrimsOuterWhitespace(t *testing.T) {
	got := Normalize("   \n\n  hello  \n\n   ")
	if got != "hello" {
		t.Fatalf("expected trimmed outer whitespace, got %q", got)
	}
}
