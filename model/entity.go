package model

import (
	"fmt"
	"strings"
	"time"
)

type Business struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Slug            string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"slug"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	Email           string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	LiveChatEnabled bool      `gorm:"not null;default:false" json:"liveChatEnabled"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Session struct {
	ID                 string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID         string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	CustomerName       string    `gorm:"type:varchar(255)" json:"customerName,omitempty"`
	CustomerEmail      string    `gorm:"type:varchar(255)" json:"customerEmail,omitempty"`
	CustomerPhone      string    `gorm:"type:varchar(64)" json:"customerPhone,omitempty"`
	EscalationAttempts int       `gorm:"not null;default:0" json:"escalationAttempts"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// SearchField is one free-text field of a knowledge item with its ranking weight.
type SearchField struct {
	Text   string
	Weight float64
}

// Knowledge is implemented by every retrievable knowledge variant.
type Knowledge interface {
	KnowledgeType() KnowledgeType
	KnowledgeID() string
	Heading() string
	SearchFields() []SearchField
	Summary() string
	Created() time.Time
}

type FAQ struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:text;not null" json:"answer"`
	Category   string    `gorm:"type:varchar(128)" json:"category,omitempty"`
	IsActive   bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (f *FAQ) KnowledgeType() KnowledgeType { return KnowledgeFAQ }
func (f *FAQ) KnowledgeID() string          { return f.ID }
func (f *FAQ) Heading() string              { return f.Question }
func (f *FAQ) Created() time.Time           { return f.CreatedAt }

func (f *FAQ) SearchFields() []SearchField {
	return []SearchField{
		{Text: f.Question, Weight: 3},
		{Text: f.Answer, Weight: 2},
		{Text: f.Category, Weight: 1},
	}
}

func (f *FAQ) Summary() string {
	return fmt.Sprintf("Q: %s\nA: %s", f.Question, f.Answer)
}

type Product struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID    string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description,omitempty"`
	Category      string    `gorm:"type:varchar(128)" json:"category,omitempty"`
	PriceAmount   float64   `json:"priceAmount"`
	PriceCurrency string    `gorm:"type:varchar(8)" json:"priceCurrency,omitempty"`
	SKU           string    `gorm:"type:varchar(64)" json:"sku,omitempty"`
	Quantity      int       `json:"quantity"`
	IsActive      bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Product) KnowledgeType() KnowledgeType { return KnowledgeProduct }
func (p *Product) KnowledgeID() string          { return p.ID }
func (p *Product) Heading() string              { return p.Name }
func (p *Product) Created() time.Time           { return p.CreatedAt }

func (p *Product) SearchFields() []SearchField {
	return []SearchField{
		{Text: p.Name, Weight: 3},
		{Text: p.Description, Weight: 2},
		{Text: p.Category, Weight: 1},
	}
}

func (p *Product) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s", p.Name)
	if p.PriceAmount > 0 {
		fmt.Fprintf(&b, " (%.2f %s)", p.PriceAmount, p.PriceCurrency)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s", p.Description)
	}
	if p.SKU != "" {
		fmt.Fprintf(&b, "\nSKU: %s, in stock: %d", p.SKU, p.Quantity)
	}
	return b.String()
}

type Service struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID      string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	Category        string    `gorm:"type:varchar(128)" json:"category,omitempty"`
	PricingType     string    `gorm:"type:varchar(32)" json:"pricingType,omitempty"`
	PricingAmount   float64   `json:"pricingAmount"`
	PricingCurrency string    `gorm:"type:varchar(8)" json:"pricingCurrency,omitempty"`
	Duration        string    `gorm:"type:varchar(64)" json:"duration,omitempty"`
	IsActive        bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (s *Service) KnowledgeType() KnowledgeType { return KnowledgeService }
func (s *Service) KnowledgeID() string          { return s.ID }
func (s *Service) Heading() string              { return s.Name }
func (s *Service) Created() time.Time           { return s.CreatedAt }

func (s *Service) SearchFields() []SearchField {
	return []SearchField{
		{Text: s.Name, Weight: 3},
		{Text: s.Description, Weight: 2},
		{Text: s.Category, Weight: 1},
	}
}

func (s *Service) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service: %s", s.Name)
	if s.PricingAmount > 0 {
		fmt.Fprintf(&b, " (%s %.2f %s)", s.PricingType, s.PricingAmount, s.PricingCurrency)
	}
	if s.Duration != "" {
		fmt.Fprintf(&b, ", duration %s", s.Duration)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "\n%s", s.Description)
	}
	return b.String()
}

type Policy struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Type       string    `gorm:"type:varchar(64)" json:"type,omitempty"`
	IsActive   bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (p *Policy) KnowledgeType() KnowledgeType { return KnowledgePolicy }
func (p *Policy) KnowledgeID() string          { return p.ID }
func (p *Policy) Heading() string              { return p.Title }
func (p *Policy) Created() time.Time           { return p.CreatedAt }

func (p *Policy) SearchFields() []SearchField {
	return []SearchField{
		{Text: p.Title, Weight: 3},
		{Text: p.Content, Weight: 1},
		{Text: p.Type, Weight: 1},
	}
}

func (p *Policy) Summary() string {
	return fmt.Sprintf("Policy: %s\n%s", p.Title, p.Content)
}

type Escalation struct {
	ID            string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CaseNumber    string           `gorm:"type:varchar(16);uniqueIndex;not null" json:"caseNumber"`
	BusinessID    string           `gorm:"type:varchar(36);index;not null" json:"businessId"`
	SessionID     string           `gorm:"type:varchar(36);index" json:"sessionId"`
	CustomerName  string           `gorm:"type:varchar(255);not null" json:"customerName"`
	CustomerEmail string           `gorm:"type:varchar(255);not null" json:"customerEmail"`
	CustomerPhone string           `gorm:"type:varchar(64)" json:"customerPhone,omitempty"`
	Concern       string           `gorm:"type:varchar(255)" json:"concern,omitempty"`
	Description   string           `gorm:"type:text" json:"description,omitempty"`
	Status        EscalationStatus `gorm:"type:varchar(16);index;not null;default:escalated" json:"status"`
	CaseOwnerID   string           `gorm:"type:varchar(64);index" json:"caseOwnerId,omitempty"`
	EmailThreadID string           `gorm:"type:varchar(255)" json:"emailThreadId,omitempty"`
	Rating        int              `json:"rating,omitempty"`
	RatingComment string           `gorm:"type:text" json:"ratingComment,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type QueueEntry struct {
	ID              string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID      string      `gorm:"type:varchar(36);index;not null" json:"businessId"`
	EscalationID    string      `gorm:"type:varchar(36);index;not null" json:"escalationId"`
	Status          QueueStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	RequestedAt     time.Time   `gorm:"index;not null" json:"requestedAt"`
	AssignedAgentID string      `gorm:"type:varchar(64)" json:"assignedAgentId,omitempty"`
	AssignedAt      *time.Time  `json:"assignedAt,omitempty"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
}

type AgentPresence struct {
	ID           string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AgentID      string      `gorm:"type:varchar(64);uniqueIndex:idx_agent_business;not null" json:"agentId"`
	BusinessID   string      `gorm:"type:varchar(36);uniqueIndex:idx_agent_business;not null" json:"businessId"`
	Status       AgentStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	LastActiveAt time.Time   `gorm:"index" json:"lastActiveAt"`
}

type ChatMessage struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID   string       `gorm:"type:varchar(36);index;not null" json:"businessId"`
	SessionID    string       `gorm:"type:varchar(36);index;not null" json:"sessionId"`
	EscalationID string       `gorm:"type:varchar(36);index" json:"escalationId,omitempty"`
	SenderType   SenderType   `gorm:"type:varchar(16);not null" json:"senderType"`
	SenderID     string       `gorm:"type:varchar(64)" json:"senderId,omitempty"`
	Message      string       `gorm:"type:text;not null" json:"message"`
	Attachments  []Attachment `gorm:"serializer:json;type:text" json:"attachments,omitempty"`
	Feedback     Feedback     `gorm:"type:varchar(8)" json:"feedback,omitempty"`
	CreatedAt    time.Time    `gorm:"index" json:"createdAt"`
}

type EscalationActivity struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EscalationID string       `gorm:"type:varchar(36);index;not null" json:"escalationId"`
	BusinessID   string       `gorm:"type:varchar(36);index;not null" json:"businessId"`
	ActorID      string       `gorm:"type:varchar(64)" json:"actorId,omitempty"`
	Type         ActivityType `gorm:"type:varchar(32);not null" json:"type"`
	FromValue    string       `gorm:"type:varchar(255)" json:"from,omitempty"`
	ToValue      string       `gorm:"type:varchar(255)" json:"to,omitempty"`
	Note         string       `gorm:"type:text" json:"note,omitempty"`
	CreatedAt    time.Time    `gorm:"index" json:"createdAt"`
}

// QueueItem is a waiting queue entry joined with its escalation.
type QueueItem struct {
	QueueEntry
	CaseNumber    string `json:"caseNumber"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	Concern       string `json:"concern,omitempty"`
	SessionID     string `json:"sessionId"`
}

// CaseStatus is the minimal projection used for status-check replies.
type CaseStatus struct {
	CaseNumber string           `json:"caseNumber"`
	Status     EscalationStatus `json:"status"`
}

// CaseDetails is the projection used for live-chat reconnection.
type CaseDetails struct {
	EscalationID  string           `json:"escalationId"`
	CaseNumber    string           `json:"caseNumber"`
	SessionID     string           `json:"sessionId"`
	Status        EscalationStatus `json:"status"`
	CustomerName  string           `json:"customerName"`
	CustomerEmail string           `json:"customerEmail"`
}
