package extract

import (
	"strings"
	"testing"
)

func TestExtractEmbeddedObject(t *testing.T) {
	obj, err := Extract(`here you go: {"a":1} thanks`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v, ok := obj["a"].(float64); !ok || v != 1 {
		t.Errorf("expected a=1, got %v", obj["a"])
	}
}

func TestExtractPlainObject(t *testing.T) {
	obj, err := Extract(`{"goal": "build rapport", "plan": ["ask questions", "listen"]}`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := String(obj, "goal", ""); got != "build rapport" {
		t.Errorf("goal = %q", got)
	}
	plan := Strings(obj, "plan")
	if len(plan) != 2 || plan[0] != "ask questions" {
		t.Errorf("plan = %v", plan)
	}
}

func TestExtractNoObject(t *testing.T) {
	for _, in := range []string{"", "no json here", "} backwards {", "{"} {
		if _, err := Extract(in); err == nil {
			t.Errorf("expected failure for %q", in)
		}
	}
}

func TestExtractTrailingComma(t *testing.T) {
	obj, err := Extract(`{"a": 1, "b": "two", }`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if String(obj, "b", "") != "two" {
		t.Errorf("b = %v", obj["b"])
	}
}

func TestExtractTruncatedString(t *testing.T) {
	// Must return a valid partial object or an error — never panic.
	obj, err := Extract(`{"a": 1, "b": "unterminat`)
	if err == nil {
		if _, ok := obj["a"]; !ok {
			t.Errorf("partial object lost key a: %v", obj)
		}
	}
}

func TestExtractTruncatedAfterValue(t *testing.T) {
	obj, err := Extract(`{"a": 1, "b": "done", "c": "unterminat}`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if String(obj, "b", "") != "done" {
		t.Errorf("b = %v", obj["b"])
	}
	if _, ok := obj["c"]; ok {
		t.Errorf("fabricated value for truncated key: %v", obj["c"])
	}
}

func TestExtractNestedObjectTruncation(t *testing.T) {
	obj, err := Extract(`{"plan": {"goal": "connect"}, "extra": "cut off her`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	inner, ok := obj["plan"].(map[string]any)
	if !ok || inner["goal"] != "connect" {
		t.Errorf("nested object lost: %v", obj)
	}
}

func TestExtractNeverPanics(t *testing.T) {
	inputs := []string{
		`{"a": "\"}`,
		`{{{{`,
		`{"a": [1, 2,`,
		strings.Repeat(`{"x":`, 50),
		`{"a": "\\\"nested\\\" quotes", "b":`,
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("panic on %q: %v", in, r)
				}
			}()
			Extract(in)
		}()
	}
}

func TestNumberTolerance(t *testing.T) {
	obj := map[string]any{"n": float64(7), "s": "12", "bad": "seven"}
	if n, ok := Number(obj, "n"); !ok || n != 7 {
		t.Errorf("n = %v %v", n, ok)
	}
	if n, ok := Number(obj, "s"); !ok || n != 12 {
		t.Errorf("s = %v %v", n, ok)
	}
	if _, ok := Number(obj, "bad"); ok {
		t.Error("parsed non-numeric string")
	}
	if _, ok := Number(obj, "missing"); ok {
		t.Error("parsed missing key")
	}
}

func TestStringFallback(t *testing.T) {
	obj := map[string]any{"k": "", "n": float64(3)}
	if got := String(obj, "k", "fb"); got != "fb" {
		t.Errorf("empty string should fall back, got %q", got)
	}
	if got := String(obj, "n", "fb"); got != "fb" {
		t.Errorf("non-string should fall back, got %q", got)
	}
}
