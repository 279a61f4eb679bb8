package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virgo-whisper/backend/internal/model"
)

func bleedingProtocol() *model.Protocol {
	return testProtocols()[0]
}

func TestHandleTurn_NewConversation(t *testing.T) {
	repo := newMockConversationRepo()
	chat := replyWith("Okay. Apply firm, direct pressure to the wound.")
	handler := NewTurnHandler(chat, newTestStore(repo, time.Now()))

	result := handler.HandleTurn(context.Background(), bleedingProtocol(), "There's a lot of blood", nil, "unit-7")
	require.False(t, result.Failed)
	assert.Equal(t, "Okay. Apply firm, direct pressure to the wound.", result.Text)
	assert.Equal(t, model.ConversationStateActive, result.State)

	require.Len(t, chat.Calls, 1)
	call := chat.Calls[0]
	assert.Empty(t, call.UserPrompt)
	assert.InDelta(t, 0.3, call.Temperature, 1e-6)
	assert.Contains(t, call.SystemPrompt, "CONTEXT: A new protocol has just been triggered.")
	assert.Contains(t, call.SystemPrompt, "PROTOCOL NAME: Severe Bleeding")
	assert.Contains(t, call.SystemPrompt, "1. Apply direct pressure\n2. Elevate the limb\n")
	assert.Contains(t, call.SystemPrompt, "AI: [Conversation Started]\n")
	assert.Contains(t, call.SystemPrompt, `USER'S LATEST MESSAGE: "There's a lot of blood"`)

	conv := repo.get(result.ConversationID)
	require.NotNil(t, conv)
	assert.Equal(t, "bleed", conv.ProtocolID)
	assert.Equal(t, "Severe Bleeding", conv.ProtocolName)
	assert.Equal(t, "unit-7", conv.SessionID)
	assert.Equal(t, "AI: [Conversation Started]\nUSER: There's a lot of blood\nAI: Okay. Apply firm, direct pressure to the wound.\n", conv.History)
	assert.Equal(t, model.ConversationStateActive, conv.State)
}

func TestHandleTurn_ConfusionPromptCarriesHistory(t *testing.T) {
	repo := newMockConversationRepo()
	history := "AI: [Conversation Started]\nUSER: bleeding\nAI: Where is the wound?\n"
	repo.items["c1"] = &model.Conversation{ID: "c1", ProtocolID: "bleed", History: history, State: model.ConversationStateActive, LastUpdate: time.Now()}
	chat := replyWith("Sorry, can you tell me where the bleeding is?")
	handler := NewTurnHandler(chat, newTestStore(repo, time.Now()))

	result := handler.HandleTurn(context.Background(), bleedingProtocol(), "what?", repo.get("c1"), "")
	require.False(t, result.Failed)
	assert.Equal(t, "c1", result.ConversationID)

	prompt := chat.Calls[0].SystemPrompt
	assert.Contains(t, prompt, "CONTEXT: Continuing an active protocol.")
	assert.Contains(t, prompt, "**rephrase it**")
	assert.Contains(t, prompt, "*do not repeat* your last question")
	assert.Contains(t, prompt, "CONVERSATION HISTORY:\n"+history)
	assert.Contains(t, prompt, `USER'S LATEST MESSAGE: "what?"`)
	assert.Equal(t, 1, strings.Count(prompt, "[Conversation Started]"))

	assert.Equal(t, history+"USER: what?\nAI: Sorry, can you tell me where the bleeding is?\n", repo.get("c1").History)
	assert.Equal(t, 1, repo.count())
}

func TestHandleTurn_SentinelCompletes(t *testing.T) {
	repo := newMockConversationRepo()
	repo.items["c1"] = &model.Conversation{ID: "c1", ProtocolID: "bleed", History: "AI: [Conversation Started]\n", State: model.ConversationStateActive, LastUpdate: time.Now()}
	chat := replyWith("Good work, help is on the way. [CONVERSATION_COMPLETE]")
	handler := NewTurnHandler(chat, newTestStore(repo, time.Now()))

	result := handler.HandleTurn(context.Background(), bleedingProtocol(), "bleeding stopped", repo.get("c1"), "")
	assert.Equal(t, "Good work, help is on the way.", result.Text)
	assert.Equal(t, model.ConversationStateComplete, result.State)
	assert.Equal(t, model.ConversationStateComplete, repo.get("c1").State)
	assert.Contains(t, repo.get("c1").History, "[CONVERSATION_COMPLETE]")
}

func TestHandleTurn_FailureDoesNotPersist(t *testing.T) {
	repo := newMockConversationRepo()
	chat := &mockChat{ReplyFunc: func(string, string) (string, error) { return "", errors.New("503") }}
	handler := NewTurnHandler(chat, newTestStore(repo, time.Now()))

	result := handler.HandleTurn(context.Background(), bleedingProtocol(), "blood", nil, "")
	assert.True(t, result.Failed)
	assert.Equal(t, ApologyReply, result.Text)
	assert.Equal(t, 0, repo.count())

	result = NewTurnHandler(nil, newTestStore(repo, time.Now())).HandleTurn(context.Background(), bleedingProtocol(), "blood", nil, "")
	assert.True(t, result.Failed)
	assert.Equal(t, ApologyReply, result.Text)
}

func TestHandleTurn_StoreFailureStillReplies(t *testing.T) {
	repo := newMockConversationRepo()
	repo.upsertErr = errors.New("permission denied")
	handler := NewTurnHandler(replyWith("Apply pressure."), newTestStore(repo, time.Now()))

	result := handler.HandleTurn(context.Background(), bleedingProtocol(), "blood", nil, "")
	assert.False(t, result.Failed)
	assert.Equal(t, "Apply pressure.", result.Text)
	assert.Empty(t, result.ConversationID)
}

func TestFormatSteps_Empty(t *testing.T) {
	prompt := buildGuidancePrompt(contextNewProtocol, &model.Protocol{}, conversationStarted, "help")
	assert.Contains(t, prompt, "PROTOCOL NAME: N/A\n")
	assert.Contains(t, prompt, "PROTOCOL STEPS:\nN/A\n")
}
