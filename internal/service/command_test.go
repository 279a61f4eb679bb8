package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virgo-whisper/backend/internal/model"
)

func newTestDispatcher(chat ChatModel, repo *mockTranscriptRepo) *CommandDispatcher {
	return NewCommandDispatcher("virgo", chat, repo, &mockRecorder{repo: repo})
}

func seedTranscripts(repo *mockTranscriptRepo, entries ...*model.TranscriptLog) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, entry := range entries {
		entry.Timestamp = base.Add(time.Duration(i) * time.Minute)
		repo.entries = append(repo.entries, entry)
	}
}

func TestDispatch_TakeNote(t *testing.T) {
	repo := &mockTranscriptRepo{}
	dispatcher := newTestDispatcher(&mockChat{}, repo)

	transcript := "Virgo, take a note: Engine 7 arrived on scene.  "
	reply, matched, err := dispatcher.Dispatch(context.Background(), transcript)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "Note taken: Engine 7 arrived on scene.", reply)

	notes := repo.byType(model.TranscriptTypeManualLog)
	require.Len(t, notes, 1)
	assert.Equal(t, "Engine 7 arrived on scene.", notes[0].Text)
	assert.Equal(t, transcript, notes[0].OriginalCommand)
}

func TestDispatch_TakeNoteEmpty(t *testing.T) {
	repo := &mockTranscriptRepo{}
	dispatcher := newTestDispatcher(&mockChat{}, repo)

	for _, transcript := range []string{"Virgo take a note", "Virgo, take a note.", "virgo take a note   "} {
		reply, matched, err := dispatcher.Dispatch(context.Background(), transcript)
		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, EmptyNoteReply, reply)
	}
	assert.Empty(t, repo.entries)
}

func TestDispatch_TakeNoteRecordFailure(t *testing.T) {
	repo := &mockTranscriptRepo{err: errors.New("unavailable")}
	_, matched, err := newTestDispatcher(&mockChat{}, repo).Dispatch(context.Background(), "virgo take a note hello")
	assert.True(t, matched)
	assert.Error(t, err)
}

func TestDispatch_SummarizeEmptySkipsLLM(t *testing.T) {
	chat := &mockChat{}
	repo := &mockTranscriptRepo{}
	seedTranscripts(repo, &model.TranscriptLog{Text: "note", Type: model.TranscriptTypeManualLog})

	reply, matched, err := newTestDispatcher(chat, repo).Dispatch(context.Background(), "Virgo, summarize.")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, NoCommsReply, reply)
	assert.Empty(t, chat.Calls)
}

func TestDispatch_SummarizeOldestFirst(t *testing.T) {
	chat := replyWith("Units checked in, all routine.")
	repo := &mockTranscriptRepo{}
	seedTranscripts(repo,
		&model.TranscriptLog{Text: "first", Type: model.TranscriptTypeGeneralComm},
		&model.TranscriptLog{Text: "manual", Type: model.TranscriptTypeManualLog},
		&model.TranscriptLog{Text: "second", Type: model.TranscriptTypeGeneralComm},
		&model.TranscriptLog{Text: "third", Type: model.TranscriptTypeGeneralComm},
	)

	reply, _, err := newTestDispatcher(chat, repo).Dispatch(context.Background(), "virgo summarize")
	require.NoError(t, err)
	assert.Equal(t, "Units checked in, all routine.", reply)
	require.Len(t, chat.Calls, 1)
	assert.Equal(t, summaryPrompt, chat.Calls[0].SystemPrompt)
	assert.Equal(t, "first\n- second\n- third", chat.Calls[0].UserPrompt)
	assert.InDelta(t, 0.3, chat.Calls[0].Temperature, 1e-6)
}

func TestDispatch_SummarizeWindow(t *testing.T) {
	chat := replyWith("ok")
	repo := &mockTranscriptRepo{}
	var entries []*model.TranscriptLog
	for i := 0; i < 15; i++ {
		entries = append(entries, &model.TranscriptLog{Text: string(rune('a' + i)), Type: model.TranscriptTypeGeneralComm})
	}
	seedTranscripts(repo, entries...)

	_, _, err := newTestDispatcher(chat, repo).Dispatch(context.Background(), "virgo summarize")
	require.NoError(t, err)
	assert.Equal(t, "f\n- g\n- h\n- i\n- j\n- k\n- l\n- m\n- n\n- o", chat.Calls[0].UserPrompt)
}

func TestDispatch_DebriefFiltersCriticalEvents(t *testing.T) {
	chat := replyWith("Debrief ready.")
	repo := &mockTranscriptRepo{}
	seedTranscripts(repo,
		&model.TranscriptLog{Text: "radio check", Type: model.TranscriptTypeGeneralComm},
		&model.TranscriptLog{Text: "Mayday mayday", Type: model.TranscriptTypeStressDetected},
		&model.TranscriptLog{Text: "Victim extracted", Type: model.TranscriptTypeManualLog},
	)

	reply, matched, err := newTestDispatcher(chat, repo).Dispatch(context.Background(), "Virgo, debrief me!")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "Debrief ready.", reply)
	require.Len(t, chat.Calls, 1)
	assert.Equal(t, debriefPrompt, chat.Calls[0].SystemPrompt)
	assert.Equal(t, "Stress detected: Mayday mayday\n- Manual log: Victim extracted", chat.Calls[0].UserPrompt)
}

func TestDispatch_DebriefEmptySkipsLLM(t *testing.T) {
	chat := &mockChat{}
	repo := &mockTranscriptRepo{}
	seedTranscripts(repo, &model.TranscriptLog{Text: "radio check", Type: model.TranscriptTypeGeneralComm})

	reply, _, err := newTestDispatcher(chat, repo).Dispatch(context.Background(), "virgo debrief me")
	require.NoError(t, err)
	assert.Equal(t, NoCriticalEventReply, reply)
	assert.Empty(t, chat.Calls)
}

func TestDispatch_SummaryFailureIsSpoken(t *testing.T) {
	chat := &mockChat{ReplyFunc: func(string, string) (string, error) { return "", errors.New("rate limited") }}
	repo := &mockTranscriptRepo{}
	seedTranscripts(repo, &model.TranscriptLog{Text: "check", Type: model.TranscriptTypeGeneralComm})

	reply, _, err := newTestDispatcher(chat, repo).Dispatch(context.Background(), "virgo summarize")
	require.NoError(t, err)
	assert.Equal(t, "Error during summary: rate limited", reply)
}

func TestDispatch_RequiresWakeWord(t *testing.T) {
	repo := &mockTranscriptRepo{}
	_, matched, err := newTestDispatcher(&mockChat{}, repo).Dispatch(context.Background(), "Please take a note of this")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Zero(t, repo.recentCalls)
}

func TestDispatch_CustomWakeWord(t *testing.T) {
	repo := &mockTranscriptRepo{}
	dispatcher := NewCommandDispatcher("Dispatch", &mockChat{}, repo, &mockRecorder{repo: repo})
	reply, matched, err := dispatcher.Dispatch(context.Background(), "Dispatch, take a note: hydrant open")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "Note taken: hydrant open", reply)
}

func TestIsOverAndOut(t *testing.T) {
	assert.True(t, IsOverAndOut("Copy that. Over, and out!"))
	assert.True(t, IsOverAndOut("OVER AND OUT"))
	assert.False(t, IsOverAndOut("over there and out back"))
}

func TestExtractNote(t *testing.T) {
	assert.Equal(t, "Hydrant on Main St is dry", extractNote("virgo TAKE A NOTE, Hydrant on Main St is dry"))
	assert.Equal(t, "", extractNote("virgo summarize"))
}
