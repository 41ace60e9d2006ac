package simulator

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
)

func chatPayload(msg string) domain.WebhookPayload {
	return domain.WebhookPayload{
		Source:          domain.SourceChat,
		Action:          domain.ActionMessageCreated,
		TenantID:        "t1",
		ConversationID:  "c1",
		MessageID:       "m1",
		CustomerMessage: msg,
	}
}

func kinds(parts []domain.MessagePart) []domain.PartKind {
	out := make([]domain.PartKind, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.Kind)
	}
	return out
}

func TestGenerateReturnsNilForNonChatEvents(t *testing.T) {
	g := NewGenerator(ScenarioSuccess, 100)
	p := chatPayload("hello")
	p.Source = domain.SourceDocuments
	p.Action = domain.ActionDocumentUploaded
	if parts := g.Generate(p); parts != nil {
		t.Fatalf("expected nil for non-chat source, got %d parts", len(parts))
	}
}

func TestTriggerDispatchOrdering(t *testing.T) {
	g := NewGenerator(ScenarioSuccess, 100)

	cases := []struct {
		name      string
		msg       string
		wantKinds []domain.PartKind
	}{
		{
			name:      "test1_text_only",
			msg:       "test1 hello",
			wantKinds: []domain.PartKind{domain.PartText},
		},
		{
			name:      "test2_reasoning_then_text",
			msg:       "test2",
			wantKinds: []domain.PartKind{domain.PartReasoning, domain.PartText},
		},
		{
			name:      "test3_text_then_sources",
			msg:       "test3 where is the vpn guide",
			wantKinds: []domain.PartKind{domain.PartText, domain.PartSources},
		},
		{
			name:      "test4_text_then_tasks",
			msg:       "test4",
			wantKinds: []domain.PartKind{domain.PartText, domain.PartTasks},
		},
		{
			name:      "test5_full_combo",
			msg:       "test5",
			wantKinds: []domain.PartKind{domain.PartReasoning, domain.PartText, domain.PartSources, domain.PartTasks},
		},
		{
			name:      "case_insensitive_prefix",
			msg:       "TEST1 Hello",
			wantKinds: []domain.PartKind{domain.PartText},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parts := g.Generate(chatPayload(tc.msg))
			if got := kinds(parts); !reflect.DeepEqual(got, tc.wantKinds) {
				t.Fatalf("kinds = %v, want %v", got, tc.wantKinds)
			}
		})
	}
}

func TestTriggerIsDeterministic(t *testing.T) {
	g := NewGenerator(ScenarioRandom, 50)
	first := g.Generate(chatPayload("test5 repeat me"))
	for i := 0; i < 10; i++ {
		again := g.Generate(chatPayload("test5 repeat me"))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("trigger output varied on call %d", i)
		}
	}
}

func TestSimpleTextResponseContent(t *testing.T) {
	g := NewGenerator(ScenarioSuccess, 100)
	parts := g.Generate(chatPayload("test1 hello"))
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if !strings.Contains(parts[0].Text, "Simple Text Response") {
		t.Fatalf("text %q missing marker", parts[0].Text)
	}
}

func TestForcedFailurePhrases(t *testing.T) {
	g := NewGenerator(ScenarioSuccess, 100)
	for _, msg := range []string{"please trigger failure now", "just fail me"} {
		parts := g.Generate(chatPayload(msg))
		if len(parts) != 1 || !strings.Contains(parts[0].Text, "wasn't able") {
			t.Fatalf("%q should force the failure reply, got %+v", msg, parts)
		}
	}
}

func TestCitationVariantSelection(t *testing.T) {
	g := NewGenerator(ScenarioSuccess, 100)

	cases := []struct {
		msg  string
		want string
	}{
		{"show citations", domain.CitationHoverCard},
		{"show citations modal", domain.CitationModal},
		{"show citations right-panel", domain.CitationRightPanel},
		{"show citations inline please", domain.CitationInline},
	}
	for _, tc := range cases {
		parts := g.Generate(chatPayload(tc.msg))
		if len(parts) != 2 || parts[1].Kind != domain.PartSources {
			t.Fatalf("%q: unexpected parts %v", tc.msg, kinds(parts))
		}
		if parts[1].CitationVariant != tc.want {
			t.Fatalf("%q: variant = %q, want %q", tc.msg, parts[1].CitationVariant, tc.want)
		}
	}
}

func TestDefaultScenarioSelection(t *testing.T) {
	cases := []struct {
		name     string
		scenario string
		wantText string
	}{
		{"failure", ScenarioFailure, "wasn't able"},
		{"processing", ScenarioProcessing, "still working"},
		{"success", ScenarioSuccess, "successfully"},
		{"unknown_falls_back_to_success", "bogus", "successfully"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGenerator(tc.scenario, 100)
			parts := g.Generate(chatPayload("no trigger here"))
			if len(parts) != 1 || parts[0].Kind != domain.PartText {
				t.Fatalf("unexpected parts %v", kinds(parts))
			}
			if !strings.Contains(parts[0].Text, tc.wantText) {
				t.Fatalf("text %q missing %q", parts[0].Text, tc.wantText)
			}
		})
	}
}

func TestPayloadScenarioOverridesDefault(t *testing.T) {
	g := NewGenerator(ScenarioSuccess, 100)
	p := chatPayload("no trigger here")
	p.Scenario = ScenarioFailure
	parts := g.Generate(p)
	if !strings.Contains(parts[0].Text, "wasn't able") {
		t.Fatalf("payload scenario did not override default: %q", parts[0].Text)
	}
}

func TestRandomScenarioRespectsSuccessRate(t *testing.T) {
	always := NewGenerator(ScenarioRandom, 100)
	never := NewGenerator(ScenarioRandom, 0)

	for i := 0; i < 200; i++ {
		if parts := always.Generate(chatPayload("anything")); !strings.Contains(parts[0].Text, "successfully") {
			t.Fatalf("successRate=100 produced failure on trial %d", i)
		}
		if parts := never.Generate(chatPayload("anything")); !strings.Contains(parts[0].Text, "wasn't able") {
			t.Fatalf("successRate=0 produced success on trial %d", i)
		}
	}
}

func TestSuccessCountsRealDocuments(t *testing.T) {
	g := NewGenerator(ScenarioSuccess, 100)
	p := chatPayload("no trigger")
	p.DocumentIDs = []string{"d1", "d2", "d3"}
	parts := g.Generate(p)
	if !strings.Contains(parts[0].Text, "3 document(s)") {
		t.Fatalf("document count not reflected: %q", parts[0].Text)
	}
}
