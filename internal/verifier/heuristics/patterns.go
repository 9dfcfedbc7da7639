package heuristics

import (
	"regexp"

	"github.com/stoik/trustlayer/internal/models"
)

// Pattern is one row of the scam-language table. Regexes run against
// lower-cased text.
type Pattern struct {
	ID          string
	Name        string
	Regex       *regexp.Regexp
	Severity    models.Severity
	Points      int
	Description string
	Remediation string
}

// Patterns is the fixed detection table, evaluated in order.
var Patterns = []Pattern{
	{
		ID:       "pay_to_pitch",
		Name:     "Pay-to-pitch request",
		Regex:    regexp.MustCompile(`\b(?:pay|paid|fee|fees|charge|charges|cost)\b.{0,60}\b(?:investors?|diligence|pitch(?:ing)?|demo day|showcase)\b|\b(?:investors?|diligence|pitch(?:ing)?|demo day|showcase)\b.{0,60}\b(?:pay|paid|fee|fees|charge|charges|cost)\b`),
		Severity: models.SeverityHigh,
		Points:   -35,
		Description: "The sender asks for payment in exchange for investor access, " +
			"diligence or a pitch slot.",
		Remediation: "Legitimate investors do not charge founders to pitch. Do not pay.",
	},
	{
		ID:          "suspicious_payment",
		Name:        "Untraceable payment method",
		Regex:       regexp.MustCompile(`\b(?:wire transfer|bitcoin|btc|crypto(?:currency)?|gift ?cards?|western union|moneygram)\b`),
		Severity:    models.SeverityHigh,
		Points:      -30,
		Description: "The message requests payment through a hard-to-reverse channel.",
		Remediation: "Never send wires, crypto or gift cards on an email request without confirming by phone.",
	},
	{
		ID:          "roi_promises",
		Name:        "Promised returns",
		Regex:       regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:%|x\b|percent\b)\s*(?:\w+\s+){0,3}(?:returns?|roi|profits?|growth|revenue)\b|\b(?:returns?|roi|profits?|growth|revenue)\s+(?:\w+\s+){0,3}\d+(?:\.\d+)?\s*(?:%|x\b|percent\b)`),
		Severity:    models.SeverityHigh,
		Points:      -25,
		Description: "The message promises a specific percentage or multiple of return.",
		Remediation: "Specific return promises are a hallmark of investment fraud.",
	},
	{
		ID:          "urgency_pressure",
		Name:        "Urgency pressure",
		Regex:       regexp.MustCompile(`\b(?:urgent(?:ly)?|immediately|asap|final notice|expires?|expiring|act now|limited time|right away|last chance|within 24 hours)\b`),
		Severity:    models.SeverityMedium,
		Points:      -15,
		Description: "The message pushes for an immediate decision.",
		Remediation: "Take your time; pressure to act quickly is a manipulation tactic.",
	},
	{
		ID:          "vague_opportunity",
		Name:        "Vague opportunity",
		Regex:       regexp.MustCompile(`\b(?:incredible|amazing|unique|once[- ]in[- ]a[- ]lifetime) (?:investment )?opportunity\b|\bexclusive (?:offer|deal|invitation)\b|\bguaranteed (?:returns?|profits?|income)\b|\brisk[- ]free\b`),
		Severity:    models.SeverityMedium,
		Points:      -12,
		Description: "The message describes an opportunity in hyped but non-specific terms.",
		Remediation: "Ask for concrete, verifiable details before engaging.",
	},
	{
		ID:          "budget_anchoring",
		Name:        "Budget anchoring",
		Regex:       regexp.MustCompile(`\bwhat(?:'|’)?s your budget\b|\bwhat is your budget\b`),
		Severity:    models.SeverityLow,
		Points:      -10,
		Description: "The sender asks for your budget before describing a service.",
		Remediation: "Do not disclose budget to unsolicited vendors.",
	},
	{
		ID:          "authority_garnish",
		Name:        "Borrowed authority",
		Regex:       regexp.MustCompile(`\b(?:featured|recognized|recognised|seen|as seen) (?:in|by|on) (?:forbes|inc\.?|entrepreneur|techcrunch|bloomberg)\b|\b(?:forbes|inc|entrepreneur|techcrunch)\b.{0,40}\b(?:featured|recognized|recognised)\b`),
		Severity:    models.SeverityLow,
		Points:      -10,
		Description: "The sender leans on press mentions to establish credibility.",
		Remediation: "Press mentions are easy to fabricate; verify them independently.",
	},
	{
		ID:          "credential_pressure",
		Name:        "Credential name-dropping",
		Regex:       regexp.MustCompile(`\b(?:harvard|stanford|mit|wharton|yale|oxford|y ?combinator|yc|techstars|500 startups)\b.{0,30}\b(?:alum(?:ni|nus|na)?|graduates?|backed|founders?)\b`),
		Severity:    models.SeverityLow,
		Points:      -5,
		Description: "The sender name-drops elite schools or accelerators.",
		Remediation: "Credentials in a cold email are not verification; check them.",
	},
	{
		ID:          "spelling_errors",
		Name:        "Common misspellings",
		Regex:       regexp.MustCompile(`\b(?:recieve|recieved|untill|occured|seperate|definately|accross|adress|beleive|wich|buisness|gaurantee|payed|tommorow|comission)\b`),
		Severity:    models.SeverityLow,
		Points:      -8,
		Description: "The message contains misspellings common in mass scam campaigns.",
		Remediation: "Professional correspondence rarely contains these errors; be cautious.",
	},
}
