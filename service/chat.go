package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"support-agent/dao"
	"support-agent/internal/aiclient"
	"support-agent/model"
	"support-agent/utils"
)

type ChatOptions struct {
	MaxMessageLength int
	HistoryLimit     int
	ReplyTimeout     time.Duration
	Temperature      float64
	MaxTokens        int
}

func DefaultChatOptions() ChatOptions {
	return ChatOptions{
		MaxMessageLength: 1000,
		HistoryLimit:     20,
		ReplyTimeout:     8 * time.Second,
		Temperature:      0.3,
		MaxTokens:        400,
	}
}

type ChatDeps struct {
	Businesses  *dao.BusinessStore
	Sessions    *dao.SessionStore
	Messages    *dao.MessageStore
	Knowledge   *dao.KnowledgeStore
	Escalations *dao.EscalationStore
	Generator   Generator
}

// ChatService runs one customer turn end to end. Past input validation it never returns an
// error: failures become a reply that still carries a way to reach the team.
type ChatService struct {
	businesses *dao.BusinessStore
	sessions   *dao.SessionStore
	messages   *dao.MessageStore
	decider    *DecisionLayer
	ai         Generator
	opts       ChatOptions
	log        zerolog.Logger
}

func NewChatService(deps ChatDeps, opts ChatOptions, log zerolog.Logger) *ChatService {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultChatOptions().MaxMessageLength
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultChatOptions().HistoryLimit
	}
	return &ChatService{
		businesses: deps.Businesses,
		sessions:   deps.Sessions,
		messages:   deps.Messages,
		decider:    NewDecisionLayer(deps.Knowledge, NewCaseLookup(deps.Escalations), log),
		ai:         deps.Generator,
		opts:       opts,
		log:        log.With().Str("component", "ChatService").Logger(),
	}
}

func (s *ChatService) validate(req *model.ChatRequest) error {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return fmt.Errorf("%w: message is required", model.ErrValidation)
	}
	if n := utils.RuneLen(req.Message); n > s.opts.MaxMessageLength {
		return fmt.Errorf("%w: message is %d characters, the limit is %d", model.ErrValidation, n, s.opts.MaxMessageLength)
	}
	return nil
}

// HandleMessage answers one customer message for the business named by req.BusinessSlug.
// Only validation failures and an unknown business are returned as errors.
func (s *ChatService) HandleMessage(ctx context.Context, req model.ChatRequest) (resp *model.ChatResponse, err error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	biz, err := s.businesses.BySlug(ctx, req.BusinessSlug)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("business", biz.ID).Msg("chat turn panicked")
			resp = s.troubleResponse(req.SessionID, biz.LiveChatEnabled, model.OutcomeError)
			err = nil
		}
	}()

	sess, err := s.resolveSession(ctx, biz, req)
	if err != nil {
		s.log.Error().Err(err).Str("business", biz.ID).Msg("resolve session")
		return s.troubleResponse(req.SessionID, biz.LiveChatEnabled, model.OutcomeError), nil
	}
	history := s.history(ctx, sess.ID)

	dec, err := s.decider.Decide(ctx, Turn{Business: biz, Session: sess, Message: req.Message, History: history})
	if err != nil {
		s.log.Error().Err(err).Str("session", sess.ID).Msg("decide")
		resp = s.troubleResponse(sess.ID, biz.LiveChatEnabled, model.OutcomeError)
		s.persist(ctx, biz.ID, sess.ID, req.Message, resp.Answer)
		return resp, nil
	}

	resp = s.respond(ctx, biz, sess, req.Message, history, dec)
	if dec.Immediate() {
		if err := s.sessions.IncrementAttempts(ctx, sess.ID); err != nil {
			s.log.Warn().Err(err).Str("session", sess.ID).Msg("count escalation attempt")
		}
	}
	s.persist(ctx, biz.ID, sess.ID, req.Message, resp.Answer)
	return resp, nil
}

// resolveSession returns the caller's session, or a new one when none was supplied or the
// supplied id is unknown to this business.
func (s *ChatService) resolveSession(ctx context.Context, biz *model.Business, req model.ChatRequest) (*model.Session, error) {
	contact := model.Session{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
	}

	if req.SessionID != "" {
		sess, err := s.sessions.Get(ctx, biz.ID, req.SessionID)
		switch {
		case err == nil:
			if contact != (model.Session{}) {
				if err := s.sessions.UpdateContact(ctx, biz.ID, sess.ID, contact); err != nil {
					s.log.Warn().Err(err).Str("session", sess.ID).Msg("update contact")
				}
			}
			return sess, nil
		case !errors.Is(err, model.ErrNotFound):
			return nil, err
		}
		s.log.Info().Str("business", biz.ID).Str("session", req.SessionID).Msg("unknown session, starting a new one")
	}

	sess := &model.Session{
		BusinessID:    biz.ID,
		CustomerName:  contact.CustomerName,
		CustomerEmail: contact.CustomerEmail,
		CustomerPhone: contact.CustomerPhone,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// history returns the customer and AI turns of a session. Agent and system messages are
// left out so a human reply never counts as an unhelpful AI answer.
func (s *ChatService) history(ctx context.Context, sessionID string) []model.ConversationTurn {
	msgs, err := s.messages.Recent(ctx, sessionID, s.opts.HistoryLimit)
	if err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("load history")
		return nil
	}
	turns := make([]model.ConversationTurn, 0, len(msgs))
	for _, m := range msgs {
		var role model.Role
		switch m.SenderType {
		case model.SenderCustomer:
			role = model.RoleCustomer
		case model.SenderAI:
			role = model.RoleAssistant
		default:
			continue
		}
		turns = append(turns, model.ConversationTurn{Role: role, Text: m.Message, Timestamp: m.CreatedAt})
	}
	return turns
}

func (s *ChatService) respond(ctx context.Context, biz *model.Business, sess *model.Session, message string,
	history []model.ConversationTurn, dec *Decision) *model.ChatResponse {
	live := biz.LiveChatEnabled
	resp := &model.ChatResponse{
		SessionID: sess.ID,
		Outcome:   model.OutcomeOK,
		Context: model.ChatContext{
			Intent:     dec.Intent.Intent,
			Confidence: dec.Intent.Confidence,
			Score:      dec.Score.Score,
			Tier:       dec.Score.Tier,
			CaseNumber: dec.CaseNumber,
			Knowledge:  len(dec.Knowledge.Items),
			Listing:    dec.Knowledge.IsListingQuery,
		},
	}

	switch dec.Kind {
	case DecisionAskCaseNumber:
		resp.Answer = askCaseNumberReply()
	case DecisionCaseNotFound:
		resp.Answer = caseNotFoundReply(dec.CaseNumber)
	case DecisionStatusReply:
		resp.Answer = caseStatusReply(dec.CaseStatus)
	case DecisionContinueCase:
		resp.Answer = continueCaseReply(dec.CaseDetails, live)
		resp.Context.Action = continueCaseAction(dec.CaseDetails.CaseNumber, live)
	case DecisionCaseMissing:
		resp.Answer = caseMissingEscalationReply(dec.CaseNumber)
		resp.Context.Action = newEscalationAction(live)
	case DecisionNewEscalation:
		resp.Answer = newEscalationReply(live)
		resp.Context.Action = newEscalationAction(live)
	case DecisionAnswer:
		text, outcome := s.generate(ctx, biz, message, history, dec)
		if outcome != model.OutcomeOK {
			return s.failedGeneration(sess.ID, live, outcome, resp.Context)
		}
		resp.Answer = text
	default:
		resp.Answer = naturalFallback(dec.Intent.Intent, biz.Name)
	}

	if dec.Offer {
		resp.Answer += "\n\n" + escalationOfferSuffix()
		resp.Context.Action = offerAction(live)
	}
	resp.EscalationSuggested = dec.Escalation
	return resp
}

// generate asks the text-generation collaborator for a knowledge-grounded answer. A timeout
// or an empty reply falls back to the template for the intent.
func (s *ChatService) generate(ctx context.Context, biz *model.Business, message string,
	history []model.ConversationTurn, dec *Decision) (string, model.Outcome) {
	if s.ai == nil {
		return naturalFallback(dec.Intent.Intent, biz.Name), model.OutcomeOK
	}

	genCtx := ctx
	if s.opts.ReplyTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.opts.ReplyTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.ai.Generate(genCtx, aiclient.GenerateRequest{
		Prompt:      buildAnswerPrompt(biz, message, history, dec),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	switch {
	case err == nil:
		if text = strings.TrimSpace(text); text != "" {
			s.log.Debug().Dur("took", time.Since(start)).Msg("answer generated")
			return text, model.OutcomeOK
		}
		s.log.Warn().Msg("empty generation, using template")
	case errors.Is(err, aiclient.ErrQuota):
		s.log.Warn().Err(err).Msg("generation unavailable")
		return "", model.OutcomeUnavailable
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded):
		s.log.Warn().Dur("timeout", s.opts.ReplyTimeout).Msg("generation timed out, using template")
	default:
		s.log.Error().Err(err).Msg("generation failed")
		return "", model.OutcomeError
	}
	return naturalFallback(dec.Intent.Intent, biz.Name), model.OutcomeOK
}

func (s *ChatService) failedGeneration(sessionID string, live bool, outcome model.Outcome, cc model.ChatContext) *model.ChatResponse {
	resp := s.troubleResponse(sessionID, live, outcome)
	action := resp.Context.Action
	resp.Context = cc
	resp.Context.Action = action
	return resp
}

// troubleResponse is the apology that still leaves the customer a way forward.
func (s *ChatService) troubleResponse(sessionID string, live bool, outcome model.Outcome) *model.ChatResponse {
	answer := troubleReply()
	if outcome == model.OutcomeUnavailable {
		answer = unavailableReply()
	}
	return &model.ChatResponse{
		Answer:              answer,
		SessionID:           sessionID,
		EscalationSuggested: true,
		Outcome:             outcome,
		Context:             model.ChatContext{Action: newEscalationAction(live)},
	}
}

// persist stores the customer turn, then the reply. Failures are logged only.
func (s *ChatService) persist(ctx context.Context, businessID, sessionID, message, answer string) {
	if sessionID == "" {
		return
	}
	customer := &model.ChatMessage{BusinessID: businessID, SessionID: sessionID, SenderType: model.SenderCustomer, Message: message}
	if err := s.messages.Create(ctx, customer); err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("persist customer message")
		return
	}
	reply := &model.ChatMessage{BusinessID: businessID, SessionID: sessionID, SenderType: model.SenderAI, Message: answer}
	if err := s.messages.Create(ctx, reply); err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("persist reply")
	}
}

func buildAnswerPrompt(biz *model.Business, message string, history []model.ConversationTurn, dec *Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the customer support assistant for %s. Answer only from the knowledge below. "+
		"If the knowledge does not cover the question, say so and suggest a next step.\n\n", biz.Name)

	b.WriteString("Knowledge:\n")
	for i, item := range dec.Knowledge.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Item.Summary())
	}
	if dec.Knowledge.IsListingQuery {
		b.WriteString("\nThe customer asked for a list. Present every item above briefly.\n")
	}
	if dec.Score.Tier >= model.TierHandleGracefully {
		fmt.Fprintf(&b, "\nThe customer may be frustrated (%s). Be calm and acknowledge the concern.\n", dec.Score.Tier)
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, utils.Truncate(t.Text, 300))
		}
	}
	fmt.Fprintf(&b, "\nCustomer: %s\nAssistant:", message)
	return b.String()
}
