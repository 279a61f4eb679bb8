package service

import (
	"fmt"
	"strings"

	"github.com/virgo-whisper/backend/internal/model"
)

// CompletionSentinel 模型在流程全部完成时附加的结束标记
const CompletionSentinel = "[CONVERSATION_COMPLETE]"

const (
	contextNewProtocol      = "A new protocol has just been triggered."
	contextContinueProtocol = "Continuing an active protocol."
	conversationStarted     = "AI: [Conversation Started]\n"
)

const guidanceRules = `You are Virgo, an AI co-pilot for a first responder.
Your job is to be a calm, clear, and direct conversational guide.
You must follow the provided protocol.
You must guide the user one step at a time.

CRITICAL RULES:
1.  **Acknowledge and Advance:** You must *acknowledge* the user's last message before giving the *next* instruction.
2.  **Do Not Repeat:** *Do not repeat* a question if the user has already answered it. If their answer is simple (e.g., 'no,' 'yes,' 'on my leg'), acknowledge it (e.g., 'Okay, on your leg.') and proceed to the *next logical step* in the protocol.
3.  **Handle Confusion:** If the user's message is confusing or doesn't answer your question (e.g., 'what?', 'huh?', or an unrelated statement), *do not repeat* your last question. Instead, **rephrase it** to be clearer. For example, if you asked "What is your location?" and the user says "what?", you should respond with "I'm sorry, I didn't understand. Can you please confirm your location?"
`

const guidanceInstructions = `Based *only* on the context and protocol, what is the *single most important next question or instruction* you should give?
Respond ONLY with your line of dialogue.
WHEN THE *ENTIRE* PROTOCOL IS FINISHED, or the user confirms the situation is resolved, you *must* end your response with the special tag: ` + CompletionSentinel + "\n"

const summaryPrompt = `You are an AI assistant for a first responder.
You will be given a list of recent radio communications.
Your job is to provide a very brief summary of *what has recently happened*, including routine check-ins.
Be concise.
Respond ONLY with the summary. Do not add greetings.
`

const debriefPrompt = `You are an AI assistant for a first responder.
You will be given a list of *critical events* from the user's recent history.
Your job is to provide a brief, chronological "Tactical Debrief."
List the most important events, such as stress alerts and manual notes.
Be concise and clear.
If there are no events, just say "No critical events to debrief."
Respond ONLY with the debrief. Do not add greetings.
`

const stressPrompt = `You are an AI analysis tool for first responder radio traffic.
Classify whether the speaker of the transcript sounds stressed, panicked or in distress.
Respond ONLY with a valid JSON object with exactly these keys, for example:
{"is_stressed": true, "reason": "High urgency and panic detected in tone."}
OR
{"is_stressed": false, "reason": "Calm and procedural."}
`

// buildGuidancePrompt 组装单条 system 消息：规则、流程上下文、完整历史和最新一句话
func buildGuidancePrompt(contextLabel string, protocol *model.Protocol, history, utterance string) string {
	name := protocol.Name
	if name == "" {
		name = "N/A"
	}

	var b strings.Builder
	b.WriteString(guidanceRules)
	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "CONTEXT: %s\n", contextLabel)
	fmt.Fprintf(&b, "PROTOCOL NAME: %s\n", name)
	b.WriteString("PROTOCOL STEPS:\n")
	b.WriteString(formatSteps(protocol.Steps))
	b.WriteString("CONVERSATION HISTORY:\n")
	b.WriteString(history)
	if !strings.HasSuffix(history, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "USER'S LATEST MESSAGE: \"%s\"\n", utterance)
	b.WriteString("---\n\n")
	b.WriteString(guidanceInstructions)
	return b.String()
}

func formatSteps(steps []string) string {
	if len(steps) == 0 {
		return "N/A\n"
	}
	var b strings.Builder
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String()
}
