package tools

import (
	"strings"
	"testing"
)

func TestGoParser_Valid(t *testing.T) {
	p := NewGoParser()
	v := p.Validate("package main\n\nfunc main() {}\n")
	if !v.Valid {
		t.Fatalf("Validate: %+v", v)
	}
	if len(v.Errors) != 0 {
		t.Fatalf("Errors=%v", v.Errors)
	}
}

func TestGoParser_Invalid(t *testing.T) {
	p := NewGoParser()
	v := p.Validate("package main\n\nfunc main() {\n")
	if v.Valid {
		t.Fatal("expected invalid source")
	}
	if len(v.Errors) == 0 {
		t.Fatal("expected at least one error")
	}
}

func TestGoParser_EmptySource(t *testing.T) {
	p := NewGoParser()
	v := p.Validate("")
	if v.Valid {
		t.Fatal("expected empty source to be invalid")
	}
}

func TestGoParser_ErrorMentionsPosition(t *testing.T) {
	p := NewGoParser()
	v := p.Validate("package main\nfunc (")
	if v.Valid {
		t.Fatal("expected invalid source")
	}
	found := false
	for _, e := range v.Errors {
		if strings.Contains(e, ":") {
			found = true
		}
	}
	if !found {
		t.Fatalf("Errors=%v, want position info", v.Errors)
	}
}
