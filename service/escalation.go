package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math/rand/v2"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"support-agent/dao"
	"support-agent/internal/events"
	"support-agent/internal/mailer"
	"support-agent/model"
	"support-agent/realtime"
)

const (
	maxCaseNumberAttempts = 10
	confirmationTimeout   = 30 * time.Second
)

type CreateEscalationInput struct {
	BusinessID    string `json:"businessId"`
	SessionID     string `json:"sessionId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
	Concern       string `json:"concern"`
	Description   string `json:"description"`
}

// CreateEscalationResult is returned to the customer, so only the case number identifies
// the case on the wire.
type CreateEscalationResult struct {
	CaseNumber      string                 `json:"caseNumber"`
	Status          model.EscalationStatus `json:"status"`
	LiveChatEnabled bool                   `json:"liveChatEnabled"`
	QueueStatus     model.QueueStatus      `json:"queueStatus,omitempty"`

	Escalation *model.Escalation `json:"-"`
	Queue      *model.QueueEntry `json:"-"`
}

// EscalationService owns the case lifecycle. Status and case owner change only through
// explicit calls, and every change is recorded as activity.
type EscalationService struct {
	businesses  *dao.BusinessStore
	sessions    *dao.SessionStore
	escalations *dao.EscalationStore
	lookup      *CaseLookup
	queue       *QueueService
	rt          Broadcaster
	events      EventPublisher
	mail        Mailer
	caseNumber  func() string
	log         zerolog.Logger
}

type EscalationDeps struct {
	Businesses  *dao.BusinessStore
	Sessions    *dao.SessionStore
	Escalations *dao.EscalationStore
	Queue       *QueueService
	Broadcaster Broadcaster
	Events      EventPublisher
	Mailer      Mailer
}

func NewEscalationService(deps EscalationDeps, log zerolog.Logger) *EscalationService {
	s := &EscalationService{
		businesses:  deps.Businesses,
		sessions:    deps.Sessions,
		escalations: deps.Escalations,
		lookup:      NewCaseLookup(deps.Escalations),
		queue:       deps.Queue,
		rt:          deps.Broadcaster,
		events:      deps.Events,
		mail:        deps.Mailer,
		caseNumber:  randomCaseNumber,
		log:         log.With().Str("component", "EscalationService").Logger(),
	}
	if s.rt == nil {
		s.rt = nopBroadcaster{}
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	return s
}

// randomCaseNumber returns a 6-digit number without a leading zero.
func randomCaseNumber() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

func (in *CreateEscalationInput) normalize() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.Concern = strings.TrimSpace(in.Concern)
	in.Description = strings.TrimSpace(in.Description)

	var problems []string
	if in.BusinessID == "" {
		problems = append(problems, "businessId is required")
	}
	if in.CustomerName == "" {
		problems = append(problems, "customerName is required")
	}
	if in.CustomerEmail == "" {
		problems = append(problems, "customerEmail is required")
	} else if _, err := mail.ParseAddress(in.CustomerEmail); err != nil {
		problems = append(problems, "customerEmail is not a valid address")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", model.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// CreateEscalation opens a case with status escalated. With live chat enabled it is also
// queued and an assignment is attempted right away.
func (s *EscalationService) CreateEscalation(ctx context.Context, in CreateEscalationInput) (*CreateEscalationResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	biz, err := s.businesses.ByID(ctx, in.BusinessID)
	if err != nil {
		return nil, err
	}
	if in.SessionID != "" {
		if _, err := s.sessions.Get(ctx, biz.ID, in.SessionID); err != nil {
			return nil, err
		}
	}

	e := &model.Escalation{
		BusinessID:    biz.ID,
		SessionID:     in.SessionID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		Concern:       in.Concern,
		Description:   in.Description,
		Status:        model.EscalationEscalated,
	}
	if err := s.insertWithCaseNumber(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info().Str("business", biz.ID).Str("case", e.CaseNumber).Bool("live_chat", biz.LiveChatEnabled).Msg("escalation created")

	if in.SessionID != "" {
		contact := model.Session{CustomerName: in.CustomerName, CustomerEmail: in.CustomerEmail, CustomerPhone: in.CustomerPhone}
		if err := s.sessions.UpdateContact(ctx, biz.ID, in.SessionID, contact); err != nil {
			s.log.Warn().Err(err).Str("session", in.SessionID).Msg("update session contact")
		}
	}
	s.recordActivity(ctx, e, "", model.ActivityCreated, "", string(e.Status), "")

	res := &CreateEscalationResult{
		CaseNumber:      e.CaseNumber,
		Status:          e.Status,
		LiveChatEnabled: biz.LiveChatEnabled,
		Escalation:      e,
	}
	// The case is committed; a queue failure is logged and the case is returned unqueued.
	if biz.LiveChatEnabled && s.queue != nil {
		entry, err := s.queue.Enqueue(ctx, e)
		if err != nil {
			s.log.Error().Err(err).Str("case", e.CaseNumber).Msg("enqueue escalation")
		} else {
			res.Queue = entry
			if assigned, err := s.queue.TryAssign(ctx, biz.ID); err != nil {
				s.log.Error().Err(err).Str("business", biz.ID).Msg("assignment after enqueue")
			} else if assigned != nil && assigned.EscalationID == e.ID {
				res.Queue = assigned
			}
			res.QueueStatus = res.Queue.Status
		}
	}

	s.events.Publish(ctx, events.EscalationCreated, e.ID, map[string]any{
		"businessId":   e.BusinessID,
		"escalationId": e.ID,
		"caseNumber":   e.CaseNumber,
		"liveChat":     biz.LiveChatEnabled,
	})
	s.rt.Notify(ctx, biz.ID, realtime.EventNewEscalation, e)
	s.sendConfirmation(ctx, biz, e)
	return res, nil
}

// insertWithCaseNumber assigns a fresh case number and inserts e. The pre-check keeps
// collisions rare; the unique index is what guarantees them away, so a conflict on insert
// regenerates.
func (s *EscalationService) insertWithCaseNumber(ctx context.Context, e *model.Escalation) error {
	for attempt := 0; attempt < maxCaseNumberAttempts; attempt++ {
		n := s.caseNumber()
		exists, err := s.escalations.CaseNumberExists(ctx, n)
		if err != nil {
			return fmt.Errorf("check case number: %w", err)
		}
		if exists {
			continue
		}
		e.CaseNumber = n
		err = s.escalations.Create(ctx, e)
		if errors.Is(err, model.ErrConflict) {
			s.log.Warn().Str("case", n).Msg("case number taken between check and insert")
			e.ID = ""
			continue
		}
		if err != nil {
			return fmt.Errorf("create escalation: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: could not allocate a case number after %d attempts", model.ErrConflict, maxCaseNumberAttempts)
}

func (s *EscalationService) sendConfirmation(ctx context.Context, biz *model.Business, e *model.Escalation) {
	if s.mail == nil {
		return
	}
	msg := mailer.Message{
		To:      e.CustomerEmail,
		Subject: fmt.Sprintf("[%s] Your case %s", biz.Name, e.CaseNumber),
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>We received your request and opened case <strong>%s</strong>. "+
			"Our team will be in touch soon.</p><p>%s</p>",
			html.EscapeString(firstName(e.CustomerName)), e.CaseNumber, html.EscapeString(biz.Name)),
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), confirmationTimeout)
	go func() {
		defer cancel()
		if err := s.mail.Send(sendCtx, msg); err != nil {
			s.log.Error().Err(err).Str("case", e.CaseNumber).Msg("send confirmation email")
		}
	}()
}

// scoped loads an escalation and checks it belongs to the actor's business.
func (s *EscalationService) scoped(ctx context.Context, actor Actor, id string) (*model.Escalation, error) {
	e, err := s.escalations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.BusinessID != actor.BusinessID {
		return nil, fmt.Errorf("%w: escalation %s belongs to another business", model.ErrForbidden, id)
	}
	return e, nil
}

// UpdateStatus moves a case to status. Resolving also closes its queue entry.
func (s *EscalationService) UpdateStatus(ctx context.Context, actor Actor, id string, status model.EscalationStatus) (*model.Escalation, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrValidation, status)
	}
	e, err := s.scoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if e.Status == status {
		return e, nil
	}

	from := e.Status
	if err := s.escalations.Update(ctx, e.ID, map[string]any{"status": status}); err != nil {
		return nil, err
	}
	e.Status = status
	s.recordActivity(ctx, e, actor.AgentID, model.ActivityStatusChanged, string(from), string(status), "")
	s.events.Publish(ctx, events.EscalationStatusChanged, e.ID, map[string]any{
		"businessId":   e.BusinessID,
		"escalationId": e.ID,
		"caseNumber":   e.CaseNumber,
		"from":         from,
		"to":           status,
	})
	s.rt.EmitToEscalation(ctx, e.ID, realtime.EventEscalationUpdated, &model.CaseStatus{CaseNumber: e.CaseNumber, Status: e.Status})
	s.rt.Notify(ctx, e.BusinessID, realtime.EventEscalationUpdated, e)

	if status == model.EscalationResolved && s.queue != nil {
		if _, err := s.queue.Complete(ctx, e.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			s.log.Error().Err(err).Str("escalation", e.ID).Msg("close queue entry")
		}
	}
	return e, nil
}

// AssignCaseOwner sets the follow-up owner. An empty ownerID unassigns.
func (s *EscalationService) AssignCaseOwner(ctx context.Context, actor Actor, id, ownerID string) (*model.Escalation, error) {
	e, err := s.scoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	ownerID = strings.TrimSpace(ownerID)
	if e.CaseOwnerID == ownerID {
		return e, nil
	}

	from := e.CaseOwnerID
	if err := s.escalations.Update(ctx, e.ID, map[string]any{"case_owner_id": ownerID}); err != nil {
		return nil, err
	}
	e.CaseOwnerID = ownerID
	s.recordActivity(ctx, e, actor.AgentID, model.ActivityOwnerChanged, from, ownerID, "")
	s.events.Publish(ctx, events.EscalationOwnerChanged, e.ID, map[string]any{
		"businessId":   e.BusinessID,
		"escalationId": e.ID,
		"from":         from,
		"to":           ownerID,
	})
	s.rt.Notify(ctx, e.BusinessID, realtime.EventEscalationUpdated, e)
	return e, nil
}

func (s *EscalationService) AddNote(ctx context.Context, actor Actor, id, note string) (*model.EscalationActivity, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("%w: note is required", model.ErrValidation)
	}
	e, err := s.scoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	a := &model.EscalationActivity{
		EscalationID: e.ID,
		BusinessID:   e.BusinessID,
		ActorID:      actor.AgentID,
		Type:         model.ActivityNoteAdded,
		Note:         note,
	}
	if err := s.escalations.AddActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	return a, nil
}

// Rate stores the customer's 1 to 5 rating for the case with the given number. A case can
// be rated once.
func (s *EscalationService) Rate(ctx context.Context, businessID, caseNumber string, rating int, comment string) (*model.Escalation, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", model.ErrValidation)
	}
	caseNumber = strings.ToUpper(strings.TrimSpace(caseNumber))
	if caseNumber == "" {
		return nil, fmt.Errorf("%w: case number is required", model.ErrValidation)
	}
	e, err := s.escalations.ByCaseNumber(ctx, businessID, caseNumber)
	if err != nil {
		return nil, err
	}
	if e.Rating != 0 {
		return nil, fmt.Errorf("%w: case %s is already rated", model.ErrConflict, e.CaseNumber)
	}
	comment = strings.TrimSpace(comment)
	if err := s.escalations.Update(ctx, e.ID, map[string]any{"rating": rating, "rating_comment": comment}); err != nil {
		return nil, err
	}
	e.Rating, e.RatingComment = rating, comment
	s.recordActivity(ctx, e, "", model.ActivityRated, "", fmt.Sprint(rating), comment)
	s.rt.Notify(ctx, e.BusinessID, realtime.EventEscalationUpdated, e)
	return e, nil
}

func (s *EscalationService) Activity(ctx context.Context, actor Actor, id string) ([]model.EscalationActivity, error) {
	e, err := s.scoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.escalations.Activity(ctx, e.ID)
}

// CaseStatus looks a case up by its customer-facing number.
func (s *EscalationService) CaseStatus(ctx context.Context, businessID, caseNumber string) (*model.CaseStatus, error) {
	caseNumber = strings.ToUpper(strings.TrimSpace(caseNumber))
	if caseNumber == "" {
		return nil, fmt.Errorf("%w: case number is required", model.ErrValidation)
	}
	return s.lookup.Status(ctx, businessID, caseNumber)
}

func (s *EscalationService) recordActivity(ctx context.Context, e *model.Escalation, actorID string, typ model.ActivityType, from, to, note string) {
	a := &model.EscalationActivity{
		EscalationID: e.ID,
		BusinessID:   e.BusinessID,
		ActorID:      actorID,
		Type:         typ,
		FromValue:    from,
		ToValue:      to,
		Note:         note,
	}
	if err := s.escalations.AddActivity(ctx, a); err != nil {
		s.log.Error().Err(err).Str("escalation", e.ID).Str("type", string(typ)).Msg("record activity")
	}
}
