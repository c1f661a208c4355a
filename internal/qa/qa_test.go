package qa

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/pdfqa/internal/chunker"
	"github.com/dgallion1/pdfqa/internal/highlight"
	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/pdfdoc"
	"github.com/dgallion1/pdfqa/internal/pdfdoc/pdftest"
	"github.com/dgallion1/pdfqa/internal/session"
)

var studyPages = [][]string{
	{"Introduction to the study of plant growth.", "Soil samples were collected from three regions."},
	{"Participants were recruited from local schools.", "The experiment used a randomized control trial design.", "Results are discussed in the final chapter."},
	{"Appendix A lists the measurement instruments."},
}

func newAssistant(t *testing.T, answerer llm.Answerer) *Assistant {
	t.Helper()
	h := highlight.NewHighlighter(nil, t.TempDir(), nil)
	return NewAssistant(answerer, h, highlight.DefaultThreshold, 4, nil)
}

func TestBuildIndex(t *testing.T) {
	src := pdftest.Write(t, "study.pdf", studyPages)
	idx, err := BuildIndex(context.Background(), src, IndexOptions{Chunking: chunker.Config{ChunkSize: 60, ChunkOverlap: 0}})
	require.NoError(t, err)

	st := idx.Stats()
	assert.Equal(t, 3, st.Pages)
	assert.Greater(t, st.Chunks, 1)
	assert.Greater(t, st.Chars, 100)
	assert.Equal(t, "study", idx.Title())

	results, err := idx.Search(context.Background(), "randomized trial design", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Chunk.Text, "randomized control trial")
	assert.Equal(t, 2, results[0].Chunk.PageStart)
}

func TestBuildIndex_EmptyDocument(t *testing.T) {
	src := pdftest.Write(t, "blank.pdf", [][]string{{}})
	_, err := BuildIndex(context.Background(), src, IndexOptions{})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestAsk_HighlightsSupportingPage(t *testing.T) {
	src := pdftest.Write(t, "study.pdf", studyPages)
	idx, err := BuildIndex(context.Background(), src, IndexOptions{})
	require.NoError(t, err)

	sess := session.New(src, "study.pdf", false)
	a := newAssistant(t, llm.NewExtractive(nil))

	ans, err := a.Ask(context.Background(), sess, idx, "What design did the experiment use?")
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	assert.Equal(t, "The experiment used a randomized control trial design.", ans.Text)
	assert.Equal(t, []int{2}, ans.Pages)
	require.NotEmpty(t, ans.ArtifactPath)
	assert.Equal(t, 1, ans.Turn)

	_, counts, err := pdfdoc.Highlights(ans.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1}, counts)

	h := sess.History()
	require.Len(t, h, 2)
	assert.Equal(t, session.RoleUser, h[0].Role)
	assert.Equal(t, ans.Text, h[1].Content)

	got, ok := sess.Artifact("What design did the experiment use?")
	assert.True(t, ok)
	assert.Equal(t, ans.ArtifactPath, got)
}

func TestAsk_RepeatQuestionReplacesArtifact(t *testing.T) {
	src := pdftest.Write(t, "study.pdf", studyPages)
	idx, err := BuildIndex(context.Background(), src, IndexOptions{})
	require.NoError(t, err)

	sess := session.New(src, "study.pdf", false)
	t.Cleanup(func() { sess.Close() })
	a := newAssistant(t, llm.NewExtractive(nil))

	q := "What design did the experiment use?"
	first, err := a.Ask(context.Background(), sess, idx, q)
	require.NoError(t, err)
	second, err := a.Ask(context.Background(), sess, idx, q)
	require.NoError(t, err)

	require.NotEqual(t, first.ArtifactPath, second.ArtifactPath)
	_, err = os.Stat(first.ArtifactPath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "first artifact should be removed")
	_, err = sess.ArtifactForTurn(first.Turn)
	assert.ErrorIs(t, err, session.ErrNoArtifact)
}

type fixedAnswer string

func (f fixedAnswer) Answer(context.Context, string, []string) (string, error) { return string(f), nil }
func (f fixedAnswer) Model() string                                            { return "fixed" }

func TestAsk_NoMatchKeepsAnswer(t *testing.T) {
	src := pdftest.Write(t, "study.pdf", studyPages)
	idx, err := BuildIndex(context.Background(), src, IndexOptions{})
	require.NoError(t, err)

	sess := session.New(src, "study.pdf", false)
	a := newAssistant(t, fixedAnswer("xyzzy 0451 kwyjibo"))

	ans, err := a.Ask(context.Background(), sess, idx, "anything?")
	require.NoError(t, err)
	assert.Equal(t, "xyzzy 0451 kwyjibo", ans.Text)
	assert.Empty(t, ans.Pages)
	assert.Empty(t, ans.ArtifactPath)
	assert.Len(t, sess.History(), 2)
}

func TestAsk_HighlightFailureDegrades(t *testing.T) {
	src := pdftest.Write(t, "study.pdf", studyPages)
	idx, err := BuildIndex(context.Background(), src, IndexOptions{})
	require.NoError(t, err)

	// The session points at a file that is gone by the time we ask.
	sess := session.New(filepath.Join(t.TempDir(), "gone.pdf"), "gone.pdf", false)
	a := newAssistant(t, llm.NewExtractive(nil))

	ans, err := a.Ask(context.Background(), sess, idx, "What design did the experiment use?")
	require.NoError(t, err)
	assert.NotEmpty(t, ans.Text)
	assert.Empty(t, ans.ArtifactPath)
	assert.Empty(t, ans.Pages)
}

type answerErr struct{}

func (answerErr) Answer(context.Context, string, []string) (string, error) {
	return "", llm.ErrUnavailable
}
func (answerErr) Model() string { return "down" }

func TestAsk_AnswerErrorRecordsNothing(t *testing.T) {
	src := pdftest.Write(t, "study.pdf", studyPages)
	idx, err := BuildIndex(context.Background(), src, IndexOptions{})
	require.NoError(t, err)

	sess := session.New(src, "study.pdf", false)
	a := newAssistant(t, answerErr{})

	_, err = a.Ask(context.Background(), sess, idx, "q")
	assert.ErrorIs(t, err, llm.ErrUnavailable)
	assert.Empty(t, sess.History())
}

// closesSession answers after the session has been closed underneath it.
type closesSession struct{ sess *session.Session }

func (c closesSession) Answer(context.Context, string, []string) (string, error) {
	c.sess.Close()
	return "The experiment used a randomized control trial design.", nil
}
func (closesSession) Model() string { return "closing" }

func TestAsk_ClosedSessionLeavesNoArtifact(t *testing.T) {
	src := pdftest.Write(t, "study.pdf", studyPages)
	idx, err := BuildIndex(context.Background(), src, IndexOptions{})
	require.NoError(t, err)

	sess := session.New(src, "study.pdf", false)
	dir := t.TempDir()
	h := highlight.NewHighlighter(nil, dir, nil)
	a := NewAssistant(closesSession{sess}, h, highlight.DefaultThreshold, 4, nil)

	_, err = a.Ask(context.Background(), sess, idx, "What design did the experiment use?")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "highlighted copy should not outlive the session")
}
