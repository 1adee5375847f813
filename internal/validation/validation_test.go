package validation

import (
	"testing"
)

func TestResearchRequest_ValidPerMode(t *testing.T) {
	v := New()

	cases := []ResearchRequest{
		{Mode: "search", Query: "bitcoin"},
		{Mode: "topic", Query: "remote work", Side1: "for", Side2: "against"},
		{Mode: "account", Handle: "jack", Topics: "bitcoin,ai"},
		{Mode: "ask", Handle: "jack", Question: "wen moon"},
	}
	for _, req := range cases {
		if err := v.Struct(req); err != nil {
			t.Errorf("expected %s request valid, got: %v", req.Mode, err)
		}
	}
}

func TestResearchRequest_MissingModeFields(t *testing.T) {
	v := New()

	cases := []ResearchRequest{
		{Mode: "search"},
		{Mode: "topic", Query: "remote work", Side1: "for"},
		{Mode: "account", Handle: "jack"},
		{Mode: "account", Topics: "bitcoin"},
		{Mode: "ask", Handle: "jack"},
	}
	for _, req := range cases {
		if err := v.Struct(req); err == nil {
			t.Errorf("expected validation error for %+v, got nil", req)
		}
	}
}

func TestResearchRequest_ModeRequired(t *testing.T) {
	v := New()

	if err := v.Struct(ResearchRequest{Query: "bitcoin"}); err == nil {
		t.Fatal("expected validation error for missing mode, got nil")
	}
	if err := v.Struct(ResearchRequest{Mode: "dance", Query: "x"}); err == nil {
		t.Fatal("expected validation error for unknown mode, got nil")
	}
}
