package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"support-agent/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message    string
		intent     model.Intent
		rule       string
		confidence float64
	}{
		{"I want to talk to a human about case 482910", model.IntentEscalationRequest, "returning_customer", 0.9},
		{"what's the status of ticket 482910", model.IntentCaseFollowup, "case_reference", 0.9},
		{"#482910 any news?", model.IntentCaseFollowup, "case_reference", 0.9},
		{"Hello, can I talk to a person", model.IntentGreeting, "greeting", 0.9},
		{"good morning!", model.IntentGreeting, "greeting", 0.9},
		{"I need to speak to a supervisor", model.IntentEscalationRequest, "human_request", 0.9},
		{"my order arrived broken", model.IntentComplaint, "complaint", 0.9},
		{"how much does the tent cost", model.IntentPricingInquiry, "pricing", 0.9},
		{"do you offer drone delivery", model.IntentInformationRequest, "default", 0.5},
		{"", model.IntentInformationRequest, "default", 0.5},
	}
	c := NewIntentClassifier()
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := c.Classify(tt.message, nil)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.rule, got.Rule)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
		})
	}
}

func TestClassifyIgnoresHistory(t *testing.T) {
	c := NewIntentClassifier()
	history := []model.ConversationTurn{
		{Role: model.RoleCustomer, Text: "I want a supervisor"},
		{Role: model.RoleAssistant, Text: "Unfortunately I can't help with that."},
	}
	assert.Equal(t, c.Classify("how much is shipping", nil), c.Classify("how much is shipping", history))
}
