package service

import (
	"regexp"
	"strings"

	"support-agent/model"
	"support-agent/utils"
)

const maxEscalationScore = 100

// Tier thresholds, checked from the top down.
const (
	immediateThreshold = 100
	offerThreshold     = 75
	suggestThreshold   = 50
	gracefulThreshold  = 25
)

// TierFor maps a clamped score to its tier. The highest applicable tier wins.
func TierFor(score int) model.Tier {
	switch {
	case score >= immediateThreshold:
		return model.TierImmediate
	case score >= offerThreshold:
		return model.TierOfferEscalation
	case score >= suggestThreshold:
		return model.TierSuggestAlternatives
	case score >= gracefulThreshold:
		return model.TierHandleGracefully
	default:
		return model.TierBaseline
	}
}

// phraseSet matches any of its phrases on word boundaries.
// Single words also accept the usual plural and verb suffixes.
type phraseSet struct {
	patterns []*regexp.Regexp
}

func newPhraseSet(phrases ...string) phraseSet {
	ps := phraseSet{patterns: make([]*regexp.Regexp, 0, len(phrases))}
	for _, p := range phrases {
		var pattern string
		if strings.ContainsAny(p, " '") {
			pattern = `(?i)\b` + regexp.QuoteMeta(p) + `\b`
		} else {
			pattern = `(?i)\b` + regexp.QuoteMeta(p) + `(?:es|s|ed|ing)?\b`
		}
		ps.patterns = append(ps.patterns, regexp.MustCompile(pattern))
	}
	return ps
}

func (ps phraseSet) Match(text string) bool {
	for _, re := range ps.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// keywordBucket awards points once when any of its phrases appears in the message.
type keywordBucket struct {
	name    string
	points  int
	phrases phraseSet
}

var explicitEscalation = keywordBucket{
	name:   "explicit_request",
	points: 100,
	phrases: newPhraseSet(
		"speak to human", "speak to a human", "talk to human", "talk to a human",
		"speak to someone", "talk to someone", "speak with someone", "talk with someone",
		"speak to a person", "talk to a person", "human agent", "real person", "live agent",
		"supervisor", "manager", "representative", "customer service", "escalate",
	),
}

var frustrationBuckets = []keywordBucket{
	{name: "frustration_disappointed", points: 30, phrases: newPhraseSet(
		"disappointed", "disappointing", "unhappy", "not happy", "dissatisfied", "let down")},
	{name: "frustration_annoyed", points: 45, phrases: newPhraseSet(
		"annoyed", "annoying", "frustrated", "frustrating", "irritated", "fed up")},
	{name: "frustration_angry", points: 60, phrases: newPhraseSet(
		"angry", "furious", "outraged", "livid", "mad at", "so mad")},
	{name: "frustration_terrible", points: 50, phrases: newPhraseSet(
		"terrible", "awful", "horrible", "worst")},
	{name: "frustration_useless", points: 55, phrases: newPhraseSet(
		"useless", "waste of time", "pointless", "ridiculous")},
}

var urgencyBuckets = []keywordBucket{
	{name: "urgency_urgent", points: 40, phrases: newPhraseSet(
		"urgent", "urgently", "emergency", "asap", "immediately", "right away")},
	{name: "urgency_important", points: 25, phrases: newPhraseSet(
		"important", "critical", "serious", "seriously")},
	{name: "urgency_complex", points: 15, phrases: newPhraseSet(
		"complex", "complicated", "difficult", "confusing", "confused")},
}

var criticalInfo = keywordBucket{
	name:   "critical_info",
	points: 10,
	phrases: newPhraseSet(
		"price", "pricing", "cost", "booking", "book", "appointment", "delivery", "shipping",
		"contact", "availability", "available", "schedule", "payment",
	),
}

var complexTopicBuckets = []keywordBucket{
	{name: "topic_returns", points: 60, phrases: newPhraseSet(
		"return", "refund", "money back", "exchange")},
	{name: "topic_order_problem", points: 55, phrases: newPhraseSet(
		"wrong order", "wrong item", "missing item", "damaged", "order problem", "order issue",
		"problem with my order", "issue with my order", "cancel my order", "cancel order")},
	{name: "topic_billing", points: 60, phrases: newPhraseSet(
		"charged twice", "double charged", "overcharged", "billing", "invoice", "dispute",
		"unauthorized charge", "chargeback")},
	{name: "topic_complaint", points: 50, phrases: newPhraseSet(
		"complaint", "complain", "file a complaint")},
	{name: "topic_account_access", points: 45, phrases: newPhraseSet(
		"can't log in", "cannot log in", "can't login", "cannot login", "locked out",
		"reset my password", "password reset", "account access", "hacked")},
	{name: "topic_technical", points: 40, phrases: newPhraseSet(
		"not working", "doesn't work", "does not work", "broken", "error", "bug", "crash", "glitch")},
	{name: "topic_legal", points: 70, phrases: newPhraseSet(
		"lawyer", "legal", "lawsuit", "sue", "attorney", "court")},
	{name: "topic_warranty", points: 55, phrases: newPhraseSet(
		"warranty", "guarantee", "defective")},
	{name: "topic_custom_order", points: 45, phrases: newPhraseSet(
		"custom order", "bulk order", "wholesale", "large order", "customized", "bulk")},
	{name: "topic_shipping", points: 50, phrases: newPhraseSet(
		"delivery", "shipping", "lost package", "tracking", "not delivered", "never arrived",
		"where is my order", "where's my order")},
}

var unhelpfulReplies = newPhraseSet(
	"don't have", "do not have", "unfortunately", "can't help", "cannot help", "unable to",
	"not sure", "no information", "i don't know",
)

// ScoreInput is everything the scorer reads for one customer turn.
type ScoreInput struct {
	Message  string
	History  []model.ConversationTurn
	Attempts int
}

// scoringRule is one independent contribution to the escalation score.
type scoringRule struct {
	name  string
	apply func(in ScoreInput, text string) []model.ScoreFactor
}

func bucketRule(b keywordBucket) scoringRule {
	return scoringRule{
		name: b.name,
		apply: func(_ ScoreInput, text string) []model.ScoreFactor {
			if !b.phrases.Match(text) {
				return nil
			}
			return []model.ScoreFactor{{Name: b.name, Points: b.points}}
		},
	}
}

func attemptsRule() scoringRule {
	return scoringRule{
		name: "prior_attempts",
		apply: func(in ScoreInput, _ string) []model.ScoreFactor {
			if in.Attempts <= 0 {
				return nil
			}
			return []model.ScoreFactor{{Name: "prior_attempts", Points: 20 * in.Attempts}}
		},
	}
}

func historyRule() scoringRule {
	return scoringRule{
		name: "history",
		apply: func(in ScoreInput, _ string) []model.ScoreFactor {
			var customerTurns, unhelpful int
			for _, turn := range in.History {
				switch turn.Role {
				case model.RoleCustomer:
					customerTurns++
				case model.RoleAssistant:
					if unhelpfulReplies.Match(turn.Text) {
						unhelpful++
					}
				}
			}

			var factors []model.ScoreFactor
			if customerTurns > 2 {
				factors = append(factors, model.ScoreFactor{Name: "long_conversation", Points: 15})
			}
			switch {
			case unhelpful >= 3:
				factors = append(factors, model.ScoreFactor{Name: "unhelpful_replies", Points: 50})
			case unhelpful == 2:
				factors = append(factors, model.ScoreFactor{Name: "unhelpful_replies", Points: 35})
			case unhelpful == 1:
				factors = append(factors, model.ScoreFactor{Name: "unhelpful_replies", Points: 15})
			}
			if customerTurns >= 5 && unhelpful >= 2 {
				factors = append(factors, model.ScoreFactor{Name: "repeated_failure", Points: 20})
			}
			return factors
		},
	}
}

// EscalationScorer sums independent rules and clamps the total to [0, 100].
type EscalationScorer struct {
	rules []scoringRule
}

func NewEscalationScorer() *EscalationScorer {
	rules := []scoringRule{bucketRule(explicitEscalation)}
	for _, b := range frustrationBuckets {
		rules = append(rules, bucketRule(b))
	}
	rules = append(rules, attemptsRule())
	for _, b := range urgencyBuckets {
		rules = append(rules, bucketRule(b))
	}
	rules = append(rules, historyRule(), bucketRule(criticalInfo))
	for _, b := range complexTopicBuckets {
		rules = append(rules, bucketRule(b))
	}
	return &EscalationScorer{rules: rules}
}

func (s *EscalationScorer) Score(in ScoreInput) model.EscalationScore {
	text := utils.NormalizeText(in.Message)

	var total int
	var factors []model.ScoreFactor
	for _, rule := range s.rules {
		for _, f := range rule.apply(in, text) {
			total += f.Points
			factors = append(factors, f)
		}
	}

	if total > maxEscalationScore {
		total = maxEscalationScore
	}
	if total < 0 {
		total = 0
	}
	return model.EscalationScore{Score: total, Tier: TierFor(total), Factors: factors}
}
