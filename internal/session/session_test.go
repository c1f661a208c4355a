package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 "+name), 0o600))
	return p
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSession_HistoryAndFeedback(t *testing.T) {
	s := New("doc.pdf", "doc.pdf", false)
	require.NotEmpty(t, s.ID)

	q := s.AddQuestion("What is it?")
	a := s.AddAnswer("A thing.", []int{1, 3}, "")
	assert.Equal(t, 0, q)
	assert.Equal(t, 1, a)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, RoleUser, h[0].Role)
	assert.Equal(t, []int{1, 3}, h[1].Pages)

	// History is a copy.
	h[1].Pages[0] = 99
	turn, err := s.Turn(1)
	require.NoError(t, err)
	assert.Equal(t, 1, turn.Pages[0])

	require.NoError(t, s.SetFeedback(1, true))
	pos, ok := s.Feedback(1)
	assert.True(t, ok)
	assert.True(t, pos)

	assert.ErrorIs(t, s.SetFeedback(0, true), ErrNotAnswer)
	assert.ErrorIs(t, s.SetFeedback(5, true), ErrNoTurn)
}

func TestSession_IndexNotReady(t *testing.T) {
	s := New("doc.pdf", "doc.pdf", false)
	_, err := s.Index()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestSession_SetArtifactReplacesPrevious(t *testing.T) {
	dir := t.TempDir()
	first := touch(t, dir, "a.pdf")
	second := touch(t, dir, "b.pdf")
	other := touch(t, dir, "c.pdf")

	s := New("doc.pdf", "doc.pdf", false)
	s.SetArtifact("q1", first)
	s.SetArtifact("q2", other)
	s.SetArtifact("q1", second)

	assert.False(t, exists(first), "previous artifact for the same question should be deleted")
	assert.True(t, exists(second))
	assert.True(t, exists(other))

	got, ok := s.Artifact("q1")
	assert.True(t, ok)
	assert.Equal(t, second, got)
}

func TestSession_ArtifactForTurn(t *testing.T) {
	dir := t.TempDir()
	art := touch(t, dir, "h.pdf")

	s := New("doc.pdf", "doc.pdf", false)
	s.AddQuestion("q")
	s.AddAnswer("a", []int{2}, art)
	s.AddAnswer("b", nil, "")

	got, err := s.ArtifactForTurn(1)
	require.NoError(t, err)
	assert.Equal(t, art, got)

	_, err = s.ArtifactForTurn(0)
	assert.ErrorIs(t, err, ErrNotAnswer)
	_, err = s.ArtifactForTurn(2)
	assert.ErrorIs(t, err, ErrNoArtifact)
	_, err = s.ArtifactForTurn(9)
	assert.ErrorIs(t, err, ErrNoTurn)
}

func TestSession_ClearHistory(t *testing.T) {
	s := New("doc.pdf", "doc.pdf", false)
	s.AddQuestion("q")
	s.AddAnswer("a", nil, "")
	require.NoError(t, s.SetFeedback(1, false))

	s.ClearHistory()
	assert.Empty(t, s.History())
	_, ok := s.Feedback(1)
	assert.False(t, ok)
}

func TestSession_CloseRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	upload := touch(t, dir, "upload.pdf")
	a1 := touch(t, dir, "a1.pdf")
	a2 := touch(t, dir, "a2.pdf")

	s := New(upload, "report.pdf", true)
	s.SetArtifact("q", a1)
	s.AddAnswer("x", []int{1}, a2)

	require.NoError(t, s.Close())
	assert.False(t, exists(upload))
	assert.False(t, exists(a1))
	assert.False(t, exists(a2))

	require.NoError(t, s.Close())
}

func TestSession_ArtifactsAfterCloseAreRemoved(t *testing.T) {
	dir := t.TempDir()
	s := New("doc.pdf", "doc.pdf", false)
	require.NoError(t, s.Close())

	// An answer that was in flight when the session closed.
	late := touch(t, dir, "late.pdf")
	s.SetArtifact("q", late)
	assert.False(t, exists(late))
	_, ok := s.Artifact("q")
	assert.False(t, ok)

	lateTurn := touch(t, dir, "late-turn.pdf")
	i := s.AddAnswer("x", []int{1}, lateTurn)
	assert.False(t, exists(lateTurn))
	_, err := s.ArtifactForTurn(i)
	assert.ErrorIs(t, err, ErrNoArtifact)

	require.NoError(t, s.Close())
}

func TestSession_CloseKeepsBorrowedUpload(t *testing.T) {
	upload := touch(t, t.TempDir(), "mine.pdf")
	s := New(upload, "mine.pdf", false)
	require.NoError(t, s.Close())
	assert.True(t, exists(upload))
}

func TestSession_ExportJSON(t *testing.T) {
	s := New("doc.pdf", "report.pdf", false)
	s.AddQuestion("Who?")
	s.AddAnswer("Them.", []int{1}, "")

	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	data, err := s.ExportJSON(now)
	require.NoError(t, err)

	var got struct {
		PDFName     string `json:"pdf_name"`
		Date        string `json:"date"`
		ChatHistory []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"chat_history"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "report.pdf", got.PDFName)
	assert.Equal(t, "2024-03-05 14:07:09", got.Date)
	require.Len(t, got.ChatHistory, 2)
	assert.Equal(t, "assistant", got.ChatHistory[1].Role)
	assert.Equal(t, "Them.", got.ChatHistory[1].Content)

	assert.Equal(t, "chat_history_20240305_140709.json", ExportFilename(now))
}

func TestSession_ExportEmptyHistory(t *testing.T) {
	s := New("doc.pdf", "report.pdf", false)
	data, err := s.ExportJSON(time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"chat_history": []`)
}

func TestDownloadLink(t *testing.T) {
	p := touch(t, t.TempDir(), "h.pdf")
	link, err := DownloadLink(p, `a"b.pdf`)
	require.NoError(t, err)

	want := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 h.pdf"))
	assert.True(t, strings.HasPrefix(link, `<a href="data:application/pdf;base64,`+want+`"`))
	assert.Contains(t, link, `download="a&#34;b.pdf"`)

	_, err = DownloadLink(filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStore_DeleteAndCleanup(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(20*time.Millisecond, nil)

	stale := New(touch(t, dir, "stale.pdf"), "stale.pdf", true)
	fresh := New(touch(t, dir, "fresh.pdf"), "fresh.pdf", true)
	gone := New(touch(t, dir, "gone.pdf"), "gone.pdf", true)
	st.Put(stale)
	st.Put(fresh)
	st.Put(gone)

	assert.True(t, st.Delete(gone.ID))
	assert.False(t, st.Delete(gone.ID))
	assert.False(t, exists(gone.PDFPath))

	time.Sleep(40 * time.Millisecond)
	fresh.AddQuestion("keep me alive")

	assert.Equal(t, 1, st.Cleanup())
	assert.Nil(t, st.Get(stale.ID))
	assert.NotNil(t, st.Get(fresh.ID))
	assert.False(t, exists(stale.PDFPath))

	st.CloseAll()
	assert.Equal(t, 0, st.Len())
	assert.False(t, exists(fresh.PDFPath))
}
