package service

import (
	"regexp"
	"strings"

	"support-agent/model"
)

var (
	humanRequestPattern  = regexp.MustCompile(`(?i)\b(?:speak|talk|chat)\s+(?:to|with)\s+(?:a\s+|an\s+|the\s+|your\s+|some\s+)?(?:real\s+|live\s+)?(?:human|person|someone|somebody|agent|representative|rep|supervisor|manager)\b|\breal person\b|\bhuman agent\b|\blive agent\b`)
	caseReferencePattern = regexp.MustCompile(`(?i)\b(?:case|ticket|reference|ref|escalation|follow[- ]?up|status)\b|#\s*\d+`)
	greetingPattern      = regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|howdy|greetings|hiya|good\s+(?:morning|afternoon|evening))\b`)
	complaintPattern     = regexp.MustCompile(`(?i)\b(?:problem|problems|issue|issues|broken|disappointed|disappointing|complain|complaint|wrong|not working|doesn't work|terrible|awful|damaged|defective|unhappy|poor|faulty)\b`)
	pricingPattern       = regexp.MustCompile(`(?i)\b(?:price|prices|pricing|cost|costs|fee|fees|charge|charges|how much|quote|rate|rates|expensive|cheap|discount|afford)\b`)
)

const (
	ruleConfidence    = 0.9
	defaultConfidence = 0.5
)

type IntentResult struct {
	Intent     model.Intent
	Confidence float64
	Rule       string
}

type intentSignals struct {
	human    bool
	caseRef  bool
	greeting bool
	text     string
}

// intentRule is evaluated in order; the first match wins.
type intentRule struct {
	name   string
	intent model.Intent
	match  func(s intentSignals) bool
}

var intentRules = []intentRule{
	{"returning_customer", model.IntentEscalationRequest, func(s intentSignals) bool { return s.human && s.caseRef }},
	{"case_reference", model.IntentCaseFollowup, func(s intentSignals) bool { return s.caseRef && !s.human }},
	{"greeting", model.IntentGreeting, func(s intentSignals) bool { return s.greeting }},
	{"human_request", model.IntentEscalationRequest, func(s intentSignals) bool { return s.human }},
	{"complaint", model.IntentComplaint, func(s intentSignals) bool { return complaintPattern.MatchString(s.text) }},
	{"pricing", model.IntentPricingInquiry, func(s intentSignals) bool { return pricingPattern.MatchString(s.text) }},
}

type IntentClassifier struct {
	rules []intentRule
}

func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{rules: intentRules}
}

// Classify categorizes one customer utterance. history is accepted for parity with the scorer
// but does not influence the result.
func (c *IntentClassifier) Classify(message string, _ []model.ConversationTurn) IntentResult {
	text := strings.TrimSpace(message)
	signals := intentSignals{
		human:    humanRequestPattern.MatchString(text),
		caseRef:  caseReferencePattern.MatchString(text),
		greeting: greetingPattern.MatchString(text),
		text:     text,
	}

	for _, r := range c.rules {
		if r.match(signals) {
			return IntentResult{Intent: r.intent, Confidence: ruleConfidence, Rule: r.name}
		}
	}
	return IntentResult{Intent: model.IntentInformationRequest, Confidence: defaultConfidence, Rule: "default"}
}

