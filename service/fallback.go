package service

import (
	"fmt"

	"support-agent/model"
)

// Action links understood by the chat widget.
const (
	linkNewEscalation = "escalate://new"
	linkTicketForm    = "escalate://ticket"
	linkContinuePfx   = "escalate://continue/"
	linkUpdatePfx     = "escalate://update/"
)

func newEscalationAction(liveChat bool) *model.Action {
	if liveChat {
		return &model.Action{Type: model.ActionNewEscalation, Link: linkNewEscalation, Label: "Chat with our team"}
	}
	return &model.Action{Type: model.ActionTicketForm, Link: linkTicketForm, Label: "Submit a support ticket"}
}

func continueCaseAction(caseNumber string, liveChat bool) *model.Action {
	if liveChat {
		return &model.Action{Type: model.ActionContinueCase, Link: linkContinuePfx + caseNumber, Label: "Continue case " + caseNumber}
	}
	return &model.Action{Type: model.ActionUpdateCase, Link: linkUpdatePfx + caseNumber, Label: "Add an update to case " + caseNumber}
}

func offerAction(liveChat bool) *model.Action {
	a := newEscalationAction(liveChat)
	a.Type = model.ActionOffer
	return a
}

// naturalFallback is the "I don't have those details" reply. Every variant ends with a next step.
func naturalFallback(intent model.Intent, businessName string) string {
	switch intent {
	case model.IntentPricingInquiry:
		return fmt.Sprintf("I don't have pricing details for that at %s right now. "+
			"Could you tell me which product or service you're interested in? "+
			"I can also connect you with the team for an exact quote.", businessName)
	case model.IntentCaseFollowup:
		return "I couldn't find details for that request. " +
			"Could you share your case number so I can look it up?"
	case model.IntentGreeting:
		return fmt.Sprintf("Hi there! Welcome to %s. What can I help you with today?", businessName)
	case model.IntentComplaint:
		return "I'm sorry you're dealing with this. I don't have the details needed to sort it out myself. " +
			"Could you describe what happened, or would you like me to bring in someone from the team?"
	case model.IntentInformationRequest:
		return fmt.Sprintf("I don't have those details about %s yet. "+
			"Could you rephrase the question or tell me a bit more about what you're looking for?", businessName)
	default:
		return "I don't have those details. Could you tell me a bit more about what you need?"
	}
}

// statusExplanations describe each escalation status in plain language.
var statusExplanations = map[model.EscalationStatus]string{
	model.EscalationEscalated: "has been escalated and is waiting for a member of our support team to pick it up",
	model.EscalationPending:   "is being worked on, and our team may be waiting on some additional information",
	model.EscalationResolved:  "has been resolved. If the issue came back, reply here and we can reopen the conversation",
}

func caseStatusReply(cs *model.CaseStatus) string {
	explain, ok := statusExplanations[cs.Status]
	if !ok {
		explain = fmt.Sprintf("is currently marked as %q", cs.Status)
	}
	return fmt.Sprintf("Case %s %s. Is there anything else I can help you with?", cs.CaseNumber, explain)
}

func askCaseNumberReply() string {
	return "I'd be happy to check on that. What's your case number? You'll find it in your confirmation email."
}

func caseNotFoundReply(caseNumber string) string {
	return fmt.Sprintf("I couldn't find case %s. Could you double check the number? "+
		"It's the 6-digit code from your confirmation email.", caseNumber)
}

func continueCaseReply(cd *model.CaseDetails, liveChat bool) string {
	if liveChat {
		return fmt.Sprintf("Welcome back, %s. I found case %s and I'm reconnecting you with the team now. "+
			"Use the link below to continue the conversation.", firstName(cd.CustomerName), cd.CaseNumber)
	}
	return fmt.Sprintf("Welcome back, %s. I found case %s. Live chat isn't available right now, "+
		"but you can add an update to your case with the link below and the team will get back to you.",
		firstName(cd.CustomerName), cd.CaseNumber)
}

func caseMissingEscalationReply(caseNumber string) string {
	return fmt.Sprintf("I couldn't find case %s. Would you like to start a new case instead? "+
		"Use the link below and someone from the team will help you.", caseNumber)
}

func newEscalationReply(liveChat bool) string {
	if liveChat {
		return "I'll connect you with a member of our team. " +
			"Please share your name, email and phone number so they can follow up."
	}
	return "Live chat isn't available right now, but I can open a support ticket for you. " +
		"Please share your name, email and phone number and the team will get back to you."
}

func escalationOfferSuffix() string {
	return "If you'd prefer, I can also connect you with a member of our team."
}

func troubleReply() string {
	return "I'm having trouble answering right now. Please try again in a moment, or reach our team directly with the link below."
}

func unavailableReply() string {
	return "Our assistant is busy at the moment. You can reach a member of our team directly with the link below."
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	if name == "" {
		return "there"
	}
	return name
}
