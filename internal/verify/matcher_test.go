package verify

import "testing"

func TestFuzzyMatchContainment(t *testing.T) {
	matched, score := FuzzyMatch("Jane Doe", "This certificate was issued to Jane Doe on Coursera.", 0.7)
	if !matched || score != 1.0 {
		t.Errorf("matched = %v score = %v, want containment match at 1.0", matched, score)
	}

	// Punctuation and case differences do not break containment.
	matched, score = FuzzyMatch("JANE DOE", "issued to jane-doe, congratulations", 0.7)
	if !matched || score != 1.0 {
		t.Errorf("matched = %v score = %v after normalization", matched, score)
	}
}

func TestFuzzyMatchNameParts(t *testing.T) {
	// Both significant parts present but separated: not containment, still a
	// strong match.
	matched, score := FuzzyMatch("Jane Doe", "Doe, Jane completed the course", 0.7)
	if !matched || score != 0.95 {
		t.Errorf("matched = %v score = %v, want name-parts match at 0.95", matched, score)
	}

	matched, _ = FuzzyMatch("Jane Doe", "Jane studied here but the surname differs", 0.99)
	if matched {
		t.Error("half a name must not match")
	}
}

func TestFuzzyMatchEmptyInputs(t *testing.T) {
	if matched, score := FuzzyMatch("", "some page", 0.1); matched || score != 0 {
		t.Errorf("empty candidate: matched = %v score = %v", matched, score)
	}
	if matched, score := FuzzyMatch("Jane", "", 0.1); matched || score != 0 {
		t.Errorf("empty page: matched = %v score = %v", matched, score)
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("abcdef", "abcdef"); got != 1.0 {
		t.Errorf("identical strings: %v", got)
	}
	if got := Ratio("abc", "xyz"); got != 0.0 {
		t.Errorf("disjoint strings: %v", got)
	}
	if got, want := Ratio("abcd", "bcde"), 0.75; got != want {
		t.Errorf("Ratio(abcd, bcde) = %v, want %v", got, want)
	}
	if Ratio("", "") != 0 {
		t.Error("empty strings")
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Jane  Doe", "jane doe"},
		{"JANE-DOE!", "jane doe"},
		{"  a  b  ", "a b"},
		{"...", ""},
	}
	for _, tc := range cases {
		if got := normalizeText(tc.in); got != tc.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
