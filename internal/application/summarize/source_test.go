package summarize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/repository"
)

// fakeDocs 按 ID 返回固定文本的 DocumentStore 桩
type fakeDocs struct {
	texts map[string]string
	err   error
}

func (f *fakeDocs) FetchDocuments(_ context.Context, _ string, ids []string) (*repository.DocumentFetchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := &repository.DocumentFetchResult{Errors: map[string]string{}}
	for _, id := range ids {
		if text, ok := f.texts[id]; ok {
			res.Documents = append(res.Documents, repository.DocumentText{ID: id, Text: text, ChunkCount: 1})
		} else {
			res.Errors[id] = "not found"
		}
	}
	return res, nil
}

func TestSourceSelector_VectorizedAttachmentFirst(t *testing.T) {
	docs := &fakeDocs{texts: map[string]string{"doc-1": "volltext aus dem vektorspeicher"}}
	sel := NewSourceSelector(docs, 5)

	src, ok := sel.Select(context.Background(), "user-1",
		[]entity.Attachment{
			{ID: "doc-1", Vectorized: true},
			{Name: "roh.txt", Content: "roher anhang"},
		},
		[]string{"doc-2"},
		[]entity.ConversationTurn{{Role: entity.RoleUser, Content: "frage"}},
	)

	require.True(t, ok)
	assert.Equal(t, SourceVectorizedAttachment, src.Kind)
	assert.Equal(t, "volltext aus dem vektorspeicher", src.Text)
}

func TestSourceSelector_ReferencedDocumentSecond(t *testing.T) {
	docs := &fakeDocs{texts: map[string]string{"doc-2": "referenziertes dokument"}}
	sel := NewSourceSelector(docs, 5)

	src, ok := sel.Select(context.Background(), "user-1",
		nil,
		[]string{"doc-2"},
		nil,
	)

	require.True(t, ok)
	assert.Equal(t, SourceReferencedDocument, src.Kind)
	assert.Equal(t, "referenziertes dokument", src.Text)
}

func TestSourceSelector_RawAttachmentThird(t *testing.T) {
	sel := NewSourceSelector(&fakeDocs{}, 5)

	src, ok := sel.Select(context.Background(), "user-1",
		[]entity.Attachment{{Name: "roh.txt", Content: "roher anhang"}},
		nil,
		nil,
	)

	require.True(t, ok)
	assert.Equal(t, SourceRawAttachment, src.Kind)
	assert.Equal(t, "roher anhang", src.Text)
}

func TestSourceSelector_ConversationLastResort(t *testing.T) {
	sel := NewSourceSelector(&fakeDocs{}, 2)

	src, ok := sel.Select(context.Background(), "user-1", nil, nil,
		[]entity.ConversationTurn{
			{Role: entity.RoleUser, Content: "erste frage"},
			{Role: entity.RoleAssistant, Content: "antwort"},
			{Role: entity.RoleUser, Content: "zweite frage"},
		},
	)

	require.True(t, ok)
	assert.Equal(t, SourceConversation, src.Kind)
	// Fenster von 2: nur die letzten beiden Turns
	assert.NotContains(t, src.Text, "erste frage")
	assert.Contains(t, src.Text, "assistant: antwort")
	assert.Contains(t, src.Text, "user: zweite frage")
}

func TestSourceSelector_FetchErrorDegrades(t *testing.T) {
	docs := &fakeDocs{err: errors.New("store unavailable")}
	sel := NewSourceSelector(docs, 5)

	src, ok := sel.Select(context.Background(), "user-1",
		[]entity.Attachment{
			{ID: "doc-1", Vectorized: true},
			{Name: "roh.txt", Content: "roher anhang"},
		},
		nil,
		nil,
	)

	require.True(t, ok)
	assert.Equal(t, SourceRawAttachment, src.Kind)
}

func TestSourceSelector_PartialFetchFailure(t *testing.T) {
	docs := &fakeDocs{texts: map[string]string{"doc-1": "vorhanden"}}
	sel := NewSourceSelector(docs, 5)

	src, ok := sel.Select(context.Background(), "user-1",
		[]entity.Attachment{
			{ID: "doc-1", Vectorized: true},
			{ID: "doc-404", Vectorized: true},
		},
		nil,
		nil,
	)

	require.True(t, ok)
	assert.Equal(t, "vorhanden", src.Text)
}

func TestSourceSelector_NothingToSummarize(t *testing.T) {
	sel := NewSourceSelector(&fakeDocs{}, 5)
	src, ok := sel.Select(context.Background(), "user-1", nil, nil, nil)

	assert.False(t, ok)
	assert.Nil(t, src)
}
