package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/studybuddy/pkg/authsdk"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
	"github.com/aussiebroadwan/studybuddy/pkg/studyai"
	"github.com/stretchr/testify/require"
)

type cannedProvider struct {
	mu    sync.Mutex
	keys  []string
	reqs  []studyai.Request
	reply string
}

func (p *cannedProvider) Generate(ctx context.Context, key string, req studyai.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.reqs = append(p.reqs, req)
	return p.reply, nil
}

func newTestApp(env map[string]string, p studyai.KeyedProvider) (*App, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &App{
		Out:      &out,
		Err:      &errOut,
		In:       strings.NewReader(""),
		Getenv:   func(k string) string { return env[k] },
		Log:      slogx.Discard(),
		Provider: p,
	}, &out, &errOut
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNotesUsesDirectKeys(t *testing.T) {
	p := &cannedProvider{reply: "# Cells\n\nThe unit of life."}
	app, out, _ := newTestApp(map[string]string{"GEMINI_API_KEY": "k1", "GEMINI_API_KEY_2": "k2"}, p)
	file := writeTemp(t, "bio.txt", "cells are small")

	require.NoError(t, app.Run(context.Background(), []string{"notes", file}))
	require.NoError(t, app.Run(context.Background(), []string{"notes", file}))

	require.Contains(t, out.String(), "# Cells")
	require.Equal(t, []string{"k1", "k2"}, p.keys)
	require.Equal(t, studyai.DefaultModel, p.reqs[0].Model)
}

func TestKeyRotationSpansCommands(t *testing.T) {
	p := &cannedProvider{reply: "Glucose."}
	app, _, _ := newTestApp(map[string]string{
		"GEMINI_API_KEY": "k1", "GEMINI_API_KEY_2": "k2", "GEMINI_API_KEY_3": "k3",
	}, p)
	file := writeTemp(t, "bio.txt", "cells are small")

	require.NoError(t, app.Run(context.Background(), []string{"notes", file}))
	require.NoError(t, app.Run(context.Background(), []string{"chat", "what", "feeds", "cells?"}))
	require.NoError(t, app.Run(context.Background(), []string{"chat", "and", "then?"}))
	require.NoError(t, app.Run(context.Background(), []string{"notes", file}))

	require.Equal(t, []string{"k1", "k2", "k3", "k1"}, p.keys)
}

func TestQuizPrintsJSON(t *testing.T) {
	p := &cannedProvider{reply: `{"questions":[{"question":"2+2?","options":["1","2","3","4"],"correctAnswerIndex":3}]}`}
	app, out, _ := newTestApp(map[string]string{"GEMINI_API_KEY": "k"}, p)
	file := writeTemp(t, "math.md", "arithmetic")

	require.NoError(t, app.Run(context.Background(), []string{"-model", "m-test", "quiz", "-difficulty", "hard", file}))

	var qs []studyai.QuizQuestion
	require.NoError(t, json.Unmarshal(out.Bytes(), &qs))
	require.Len(t, qs, 1)
	require.Equal(t, 3, qs[0].CorrectAnswerIndex)
	require.Equal(t, "m-test", p.reqs[0].Model)
}

func TestFlashcardsContinueIDs(t *testing.T) {
	p := &cannedProvider{reply: `{"flashcards":[{"question":"Q","answer":"A"}]}`}
	app, out, _ := newTestApp(map[string]string{"GEMINI_API_KEY": "k"}, p)
	file := writeTemp(t, "f.txt", "x")

	require.NoError(t, app.Run(context.Background(), []string{"flashcards", "-have", "7", file}))

	var cards []studyai.Flashcard
	require.NoError(t, json.Unmarshal(out.Bytes(), &cards))
	require.Len(t, cards, 1)
	require.Equal(t, 8, cards[0].ID)
}

func TestChatFallsBackToProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != studyai.ProxyPath {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(studyai.ProxyResponse{Text: "Mitochondria."})
	}))
	defer srv.Close()

	p := &cannedProvider{}
	app, out, _ := newTestApp(map[string]string{"STUDYBUDDY_URL": srv.URL}, p)

	require.NoError(t, app.Run(context.Background(), []string{"chat", "what", "is", "ATP?"}))
	require.Equal(t, "Mitochondria.\n", out.String())
	require.Empty(t, p.keys)
}

func TestLoginReadsPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(authsdk.MessageResponse{Message: "Invalid email or password."})
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.LoginResponse{
			User:  authsdk.UserInfo{Name: "Ana", Email: req.Email},
			Token: "tok",
		})
	}))
	defer srv.Close()

	app, out, _ := newTestApp(nil, nil)
	app.In = strings.NewReader("secret1\n")
	require.NoError(t, app.Run(context.Background(), []string{"-server", srv.URL, "login", "-email", "ana@x.com"}))
	require.Equal(t, "tok\n", out.String())

	app, _, _ = newTestApp(nil, nil)
	app.In = strings.NewReader("wrong\n")
	err := app.Run(context.Background(), []string{"-server", srv.URL, "login", "-email", "ana@x.com"})
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
}

func TestUsageErrors(t *testing.T) {
	cases := [][]string{
		nil,
		{"bogus"},
		{"notes"},
		{"verify", "-email", "a@x.com"},
	}
	for _, args := range cases {
		app, _, errOut := newTestApp(nil, nil)
		err := app.Run(context.Background(), args)
		require.ErrorIs(t, err, ErrUsage, "args %v", args)
		require.Contains(t, errOut.String(), "usage: studyai")
	}
}

func TestLoadFileMIME(t *testing.T) {
	f, err := loadFile(writeTemp(t, "doc.pdf", "%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "application/pdf", f.MIMEType)
	require.Equal(t, "doc.pdf", f.Name)

	f, err = loadFile(writeTemp(t, "noext", "plain words"))
	require.NoError(t, err)
	require.Equal(t, "text/plain", f.MIMEType)
}
