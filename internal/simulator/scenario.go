package simulator

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
)

// Default scenario names selectable via configuration or the payload's
// scenario field.
const (
	ScenarioSuccess    = "success"
	ScenarioFailure    = "failure"
	ScenarioProcessing = "processing"
	ScenarioRandom     = "random"
)

// Scenarios lists the supported default scenario names, in the order the
// /config endpoint reports them.
func Scenarios() []string {
	return []string{ScenarioSuccess, ScenarioFailure, ScenarioProcessing, ScenarioRandom}
}

// Generator maps an inbound chat-message event to an ordered list of reply
// parts. It is pure apart from the injected random draw used by the random
// scenario.
type Generator struct {
	DefaultScenario string
	SuccessRate     int

	randInt func(n int) int
}

func NewGenerator(defaultScenario string, successRate int) *Generator {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 100 {
		successRate = 100
	}
	return &Generator{
		DefaultScenario: defaultScenario,
		SuccessRate:     successRate,
		randInt:         rand.Intn,
	}
}

// trigger is one entry of the content-dispatch table. Triggers are evaluated
// in order; the first match wins and the rest are never consulted.
type trigger struct {
	name  string
	match func(msg string) bool
	build func(g *Generator, p domain.WebhookPayload) []domain.MessagePart
}

func prefix(p string) func(string) bool {
	return func(msg string) bool { return strings.HasPrefix(msg, p) }
}

func phrase(p string) func(string) bool {
	return func(msg string) bool { return strings.Contains(msg, p) }
}

func anyPhrase(ps ...string) func(string) bool {
	return func(msg string) bool {
		for _, p := range ps {
			if strings.Contains(msg, p) {
				return true
			}
		}
		return false
	}
}

var triggers = []trigger{
	{
		name:  "text_only",
		match: prefix("test1"),
		build: func(g *Generator, p domain.WebhookPayload) []domain.MessagePart {
			return []domain.MessagePart{domain.TextPart(
				"## Simple Text Response\n\n" +
					"This is a plain markdown reply with **bold text**, a bullet list:\n\n" +
					"- first item\n- second item\n\nand an inline `code span`.",
			)}
		},
	},
	{
		name:  "reasoning_and_text",
		match: prefix("test2"),
		build: func(g *Generator, p domain.WebhookPayload) []domain.MessagePart {
			return []domain.MessagePart{
				domain.ReasoningPart("Research & Analysis",
					"1. Parsed the customer question.\n"+
						"2. Searched the knowledge base for matching articles.\n"+
						"3. Ranked candidates and drafted a reply.",
					domain.ReasoningDone),
				domain.TextPart("Based on the analysis above, here is the recommended resolution for your request."),
			}
		},
	},
	{
		name:  "text_with_sources",
		match: prefix("test3"),
		build: func(g *Generator, p domain.WebhookPayload) []domain.MessagePart {
			body := "The answer is covered by the cited documentation below."
			if n := len(p.DocumentIDs); n > 0 {
				body = fmt.Sprintf("Analyzed %d document(s) from this conversation. %s", n, body)
			}
			return []domain.MessagePart{
				domain.TextPart(body),
				domain.SourcesPart(
					domain.Source{Title: "VPN Setup Guide", URL: "https://kb.example.com/articles/vpn-setup", Snippet: "Step-by-step instructions for configuring the corporate VPN client."},
					domain.Source{Title: "Remote Access Policy", BlobID: "blob-remote-access-policy", Snippet: "Policy governing remote connections to internal systems."},
				),
			}
		},
	},
	{
		name:  "text_with_tasks",
		match: prefix("test4"),
		build: func(g *Generator, p domain.WebhookPayload) []domain.MessagePart {
			return []domain.MessagePart{
				domain.TextPart("I've broken the work down into the checklists below."),
				domain.TasksPart(
					domain.Task{Title: "Setup", Items: []string{"Install dependencies", "Configure environment", "Verify connectivity"}, DefaultOpen: true},
					domain.Task{Title: "Validation", Items: []string{"Run smoke tests", "Confirm with requester"}},
				),
			}
		},
	},
	{
		name:  "full_combo",
		match: prefix("test5"),
		build: func(g *Generator, p domain.WebhookPayload) []domain.MessagePart {
			return []domain.MessagePart{
				domain.ReasoningPart("Planning",
					"Reviewed the request, identified the affected systems and drafted a remediation plan.",
					domain.ReasoningDone),
				domain.TextPart("Here is the full plan with supporting references and action items."),
				domain.SourcesPart(
					domain.Source{Title: "Incident Runbook", URL: "https://kb.example.com/runbooks/incident", Snippet: "Standard remediation steps for service incidents."},
				),
				domain.TasksPart(
					domain.Task{Title: "Remediation", Items: []string{"Apply configuration fix", "Monitor for recurrence"}, DefaultOpen: true},
				),
			}
		},
	},
	{
		name:  "citation_variants",
		match: phrase("show citations"),
		build: func(g *Generator, p domain.WebhookPayload) []domain.MessagePart {
			variant := citationVariantFor(p.CustomerMessage)
			parts := []domain.MessagePart{
				domain.TextPart(fmt.Sprintf("Citation rendering demo using the `%s` variant.", variant)),
				domain.SourcesPart(
					domain.Source{Title: "Onboarding Guide", BlobID: "blob-onboarding-guide", Snippet: "Everything a new hire needs for the first week."},
					domain.Source{Title: "Password Reset FAQ", URL: "https://kb.example.com/articles/password-reset", Snippet: "Common questions about self-service password resets."},
				),
			}
			parts[1].CitationVariant = variant
			return parts
		},
	},
	{
		name:  "forced_failure",
		match: anyPhrase("trigger failure", "fail me"),
		build: func(g *Generator, p domain.WebhookPayload) []domain.MessagePart {
			return g.failureParts()
		},
	},
	{
		name:  "forced_processing",
		match: phrase("still processing"),
		build: func(g *Generator, p domain.WebhookPayload) []domain.MessagePart {
			return g.processingParts()
		},
	},
}

// citationVariantFor picks a variant deterministically from the message so
// repeated calls with the same input render the same demo.
func citationVariantFor(msg string) string {
	msg = strings.ToLower(msg)
	for _, v := range []string{
		domain.CitationModal,
		domain.CitationRightPanel,
		domain.CitationCollapsibleList,
		domain.CitationInline,
	} {
		if strings.Contains(msg, v) {
			return v
		}
	}
	return domain.CitationHoverCard
}

// Generate returns the ordered reply parts for a chat-message event, or nil
// for any other event source.
func (g *Generator) Generate(p domain.WebhookPayload) []domain.MessagePart {
	if p.Source != domain.SourceChat || p.Action != domain.ActionMessageCreated {
		return nil
	}

	msg := strings.ToLower(strings.TrimSpace(p.CustomerMessage))
	for _, t := range triggers {
		if t.match(msg) {
			return t.build(g, p)
		}
	}

	scenario := strings.TrimSpace(strings.ToLower(p.Scenario))
	if scenario == "" {
		scenario = strings.TrimSpace(strings.ToLower(g.DefaultScenario))
	}
	switch scenario {
	case ScenarioFailure:
		return g.failureParts()
	case ScenarioProcessing:
		return g.processingParts()
	case ScenarioRandom:
		if g.randInt(100) < g.SuccessRate {
			return g.successParts(p)
		}
		return g.failureParts()
	default:
		return g.successParts(p)
	}
}

// FailureReply builds the synthetic failure reply published when processing
// or delivery of the primary reply breaks. The consumer must never be left
// waiting silently.
func (g *Generator) FailureReply() []domain.MessagePart {
	return g.failureParts()
}

func (g *Generator) successParts(p domain.WebhookPayload) []domain.MessagePart {
	body := "I've completed the requested automation successfully."
	if n := len(p.DocumentIDs); n > 0 {
		body = fmt.Sprintf("I've completed the requested automation successfully and processed %d document(s).", n)
	}
	return []domain.MessagePart{domain.TextPart(body)}
}

func (g *Generator) failureParts() []domain.MessagePart {
	return []domain.MessagePart{domain.TextPart(
		"I wasn't able to complete that request. The automation backend reported an error; please try again or contact support if the problem persists.",
	)}
}

func (g *Generator) processingParts() []domain.MessagePart {
	return []domain.MessagePart{domain.TextPart(
		"I'm still working on your request. This can take a little while; I'll follow up here as soon as it finishes.",
	)}
}
