package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func (b *Business) BeforeCreate(*gorm.DB) error           { newID(&b.ID); return nil }
func (s *Session) BeforeCreate(*gorm.DB) error            { newID(&s.ID); return nil }
func (f *FAQ) BeforeCreate(*gorm.DB) error                { newID(&f.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error            { newID(&p.ID); return nil }
func (s *Service) BeforeCreate(*gorm.DB) error            { newID(&s.ID); return nil }
func (p *Policy) BeforeCreate(*gorm.DB) error             { newID(&p.ID); return nil }
func (e *Escalation) BeforeCreate(*gorm.DB) error         { newID(&e.ID); return nil }
func (q *QueueEntry) BeforeCreate(*gorm.DB) error         { newID(&q.ID); return nil }
func (a *AgentPresence) BeforeCreate(*gorm.DB) error      { newID(&a.ID); return nil }
func (m *ChatMessage) BeforeCreate(*gorm.DB) error        { newID(&m.ID); return nil }
func (a *EscalationActivity) BeforeCreate(*gorm.DB) error { newID(&a.ID); return nil }
