package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/problemmatch/problemmatch/pkg/matcher"
)

func grp(n int) *int { return &n }

// eslint-compact style single-pattern matcher used across tests.
func eslintCompact() *matcher.Matcher {
	return &matcher.Matcher{
		Owner: "eslint-compact",
		Pattern: []matcher.Pattern{{
			Regexp:   `^(.+):\sline\s(\d+),\scol\s(\d+),\s(Error|Warning|Info)\s-\s(.+)\s\((.+)\)$`,
			File:     grp(1),
			Line:     grp(2),
			Column:   grp(3),
			Severity: grp(4),
			Message:  grp(5),
			Code:     grp(6),
		}},
	}
}

func TestMatch_Validation(t *testing.T) {
	valid := eslintCompact()
	cases := []struct {
		name  string
		m     *matcher.Matcher
		input string
		want  error
	}{
		{"nil matcher", nil, "x", ErrNoMatcher},
		{"empty owner", &matcher.Matcher{Pattern: valid.Pattern}, "x", ErrNoOwner},
		{"nil pattern", &matcher.Matcher{Owner: "o"}, "x", ErrNoPattern},
		{"empty pattern", &matcher.Matcher{Owner: "o", Pattern: []matcher.Pattern{}}, "x", ErrEmptyPattern},
		{"empty input", valid, "", ErrNoInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Match(tc.m, tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMatch_UnsupportedConfiguration(t *testing.T) {
	m := &matcher.Matcher{
		Owner: "broken",
		Pattern: []matcher.Pattern{
			{Regexp: `^(.+)$`, File: grp(1)},
			{Regexp: `^(.+)$`, Message: grp(1)}, // last pattern missing loop
		},
	}
	_, err := Match(m, "anything at all")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
	if err.Error() != "Unsupported pattern configuration. We currently support single pattern and multi-line loop pattern configurations" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestMatch_SingleMode_ConcreteScenario(t *testing.T) {
	input := "badFile.js: line 50, col 11, Error - 'myVar' is defined but never used. (no-unused-vars)"
	got, err := Match(eslintCompact(), input)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	want := []matcher.Result{{
		"file":     "badFile.js",
		"line":     "50",
		"column":   "11",
		"severity": "Error",
		"message":  "'myVar' is defined but never used.",
		"code":     "no-unused-vars",
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMatch_SingleMode_SkipsNonMatchingLines(t *testing.T) {
	input := "noise\n" +
		"a.js: line 1, col 2, Error - first. (code-a)\n" +
		"more noise\n" +
		"b.js: line 3, col 4, Warning - second. (code-b)\n"
	got, err := Match(eslintCompact(), input)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(got), got)
	}
	if got[0]["file"] != "a.js" || got[1]["file"] != "b.js" {
		t.Fatalf("records out of input order: %+v", got)
	}
}

func TestMatch_SingleMode_NoMatchesIsNotAnError(t *testing.T) {
	got, err := Match(eslintCompact(), "nothing\nto\nsee\nhere")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %+v", got)
	}
}

func TestMatch_SeverityFallback(t *testing.T) {
	m := &matcher.Matcher{
		Owner:    "fallback",
		Severity: "warning",
		Pattern: []matcher.Pattern{{
			Regexp:  `^MSG:(.+)$`,
			Message: grp(1),
		}},
	}
	got, err := Match(m, "MSG:hello")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got[0]["severity"] != "warning" {
		t.Fatalf("expected matcher severity fallback, got %+v", got[0])
	}

	// Without a matcher severity the field is simply absent.
	m.Severity = ""
	got, err = Match(m, "MSG:hello")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if _, ok := got[0]["severity"]; ok {
		t.Fatalf("expected no severity field, got %+v", got[0])
	}
}

func TestMatch_CapturedSeverityWinsOverFallback(t *testing.T) {
	m := &matcher.Matcher{
		Owner:    "captured",
		Severity: "warning",
		Pattern: []matcher.Pattern{{
			Regexp:   `^(error|info):(.+)$`,
			Severity: grp(1),
			Message:  grp(2),
		}},
	}
	got, err := Match(m, "error:boom")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got[0]["severity"] != "error" {
		t.Fatalf("captured severity should win, got %+v", got[0])
	}
}

func TestMatch_Idempotence(t *testing.T) {
	m := eslintCompact()
	input := "a.js: line 1, col 2, Error - first. (code-a)\nnoise\n" +
		"b.js: line 3, col 4, Warning - second. (code-b)"
	first, err := Match(m, input)
	if err != nil {
		t.Fatalf("first Match: %v", err)
	}
	second, err := Match(m, input)
	if err != nil {
		t.Fatalf("second Match: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("engine is not idempotent:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestMatch_CRLFInput(t *testing.T) {
	input := "a.js: line 1, col 2, Error - first. (code-a)\r\n" +
		"b.js: line 3, col 4, Warning - second. (code-b)\r\n"
	got, err := Match(eslintCompact(), input)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records from CRLF input, got %+v", got)
	}
}
