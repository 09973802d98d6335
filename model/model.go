package model

import "time"

type Intent string

const (
	IntentCaseFollowup       Intent = "case_followup"
	IntentEscalationRequest  Intent = "escalation_request"
	IntentGreeting           Intent = "greeting"
	IntentComplaint          Intent = "complaint"
	IntentPricingInquiry     Intent = "pricing_inquiry"
	IntentInformationRequest Intent = "information_request"
)

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

// Tier is the discretized urgency bucket derived from an escalation score.
// Higher values are more urgent; comparisons between tiers are meaningful.
type Tier int

const (
	TierBaseline Tier = iota
	TierHandleGracefully
	TierSuggestAlternatives
	TierOfferEscalation
	TierImmediate
)

var tierNames = map[Tier]string{
	TierBaseline:            "tier_1",
	TierHandleGracefully:    "handle_gracefully",
	TierSuggestAlternatives: "suggest_alternatives",
	TierOfferEscalation:     "offer_escalation",
	TierImmediate:           "immediate_escalation",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

type EscalationStatus string

const (
	EscalationEscalated EscalationStatus = "escalated"
	EscalationPending   EscalationStatus = "pending"
	EscalationResolved  EscalationStatus = "resolved"
)

func (s EscalationStatus) Valid() bool {
	switch s {
	case EscalationEscalated, EscalationPending, EscalationResolved:
		return true
	}
	return false
}

type QueueStatus string

const (
	QueueWaiting   QueueStatus = "waiting"
	QueueAssigned  QueueStatus = "assigned"
	QueueCompleted QueueStatus = "completed"
	QueueCancelled QueueStatus = "cancelled"
)

func (s QueueStatus) Terminal() bool {
	return s == QueueCompleted || s == QueueCancelled
}

type AgentStatus string

const (
	AgentOffline   AgentStatus = "offline"
	AgentOnline    AgentStatus = "online"
	AgentAvailable AgentStatus = "available"
	AgentAway      AgentStatus = "away"
	AgentInChat    AgentStatus = "in_chat"
)

func (s AgentStatus) Valid() bool {
	switch s {
	case AgentOffline, AgentOnline, AgentAvailable, AgentAway, AgentInChat:
		return true
	}
	return false
}

type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAI       SenderType = "ai"
	SenderAgent    SenderType = "agent"
	SenderSystem   SenderType = "system"
)

func (s SenderType) Valid() bool {
	switch s {
	case SenderCustomer, SenderAI, SenderAgent, SenderSystem:
		return true
	}
	return false
}

// Feedback is the three-state rating of an AI message; the zero value means unset.
type Feedback string

const (
	FeedbackUnset Feedback = ""
	FeedbackGood  Feedback = "good"
	FeedbackBad   Feedback = "bad"
)

type KnowledgeType string

const (
	KnowledgeFAQ     KnowledgeType = "faq"
	KnowledgeProduct KnowledgeType = "product"
	KnowledgeService KnowledgeType = "service"
	KnowledgePolicy  KnowledgeType = "policy"
)

// KnowledgeTypes is the fixed iteration order used when merging per-type results.
var KnowledgeTypes = []KnowledgeType{KnowledgeFAQ, KnowledgeProduct, KnowledgeService, KnowledgePolicy}

type ActivityType string

const (
	ActivityCreated       ActivityType = "created"
	ActivityStatusChanged ActivityType = "status_changed"
	ActivityOwnerChanged  ActivityType = "case_owner_changed"
	ActivityNoteAdded     ActivityType = "note_added"
	ActivityRated         ActivityType = "rated"
	ActivityQueueAssigned ActivityType = "queue_assigned"
)

// ConversationTurn is one immutable exchange unit of a session's history.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type ScoreFactor struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// EscalationScore is derived per customer turn and never persisted.
type EscalationScore struct {
	Score   int           `json:"score"`
	Tier    Tier          `json:"tier"`
	Factors []ScoreFactor `json:"factors,omitempty"`
}

type ActionType string

const (
	ActionNewEscalation ActionType = "new_escalation"
	ActionTicketForm    ActionType = "ticket_form"
	ActionContinueCase  ActionType = "continue_case"
	ActionUpdateCase    ActionType = "update_case"
	ActionOffer         ActionType = "offer_escalation"
)

type Action struct {
	Type  ActionType `json:"type"`
	Link  string     `json:"link"`
	Label string     `json:"label"`
}

type ChatRequest struct {
	BusinessSlug  string `json:"-"`
	SessionID     string `json:"sessionId"`
	Message       string `json:"message"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
}

// Outcome classifies how a chat turn ended so the HTTP layer can choose a status code.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeError       Outcome = "error"
)

type ChatContext struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Score      int     `json:"score"`
	Tier       Tier    `json:"tier"`
	CaseNumber string  `json:"caseNumber,omitempty"`
	Knowledge  int     `json:"knowledgeCount"`
	Listing    bool    `json:"isListingQuery,omitempty"`
	Action     *Action `json:"action,omitempty"`
}

type ChatResponse struct {
	Answer              string      `json:"answer"`
	SessionID           string      `json:"sessionId"`
	EscalationSuggested bool        `json:"escalationSuggested"`
	Context             ChatContext `json:"context"`
	Outcome             Outcome     `json:"-"`
}

type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// AgentConnection records which process holds an agent's live connection.
type AgentConnection struct {
	BusinessID  string    `json:"businessId"`
	AgentID     string    `json:"agentId"`
	ConnID      string    `json:"connId"`
	NodeID      string    `json:"nodeId"`
	ConnectedAt time.Time `json:"connectedAt"`
}
