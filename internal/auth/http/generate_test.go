package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/studybuddy/pkg/studyai"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func generateBody(t *testing.T) io.Reader {
	t.Helper()
	b, err := json.Marshal(studyai.Request{
		Contents: []*genai.Content{genai.NewContentFromText("hello", genai.RoleUser)},
	})
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestGenerateRotatesServerKeys(t *testing.T) {
	env := newTestEnv(t, nil, "k1", "k2")

	for range 3 {
		resp, err := http.Post(env.srv.URL+studyai.ProxyPath, "application/json", generateBody(t))
		require.NoError(t, err)
		var out studyai.ProxyResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "generated", out.Text)
	}
	require.Equal(t, []string{"k1", "k2", "k1"}, env.provider.keys)
}

func TestGenerateWithoutServerKey(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.srv.URL+studyai.ProxyPath, "application/json", generateBody(t))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, env.provider.keys)
}

func TestGenerateProviderFailureHidesKey(t *testing.T) {
	env := newTestEnv(t, nil, "super-secret-key")
	env.provider.err = &studyai.ProviderError{StatusCode: 400, Message: "API key super-secret-key not valid"}

	resp, err := http.Post(env.srv.URL+studyai.ProxyPath, "application/json", generateBody(t))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.NotContains(t, string(body), "super-secret-key")
}

func TestGenerateRejectsEmptyContents(t *testing.T) {
	env := newTestEnv(t, nil, "k1")

	resp, err := http.Post(env.srv.URL+studyai.ProxyPath, "application/json", bytes.NewReader([]byte(`{"contents":[]}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// The proxy transport used by clients without a key speaks to this handler.
func TestProxyTransportAgainstHandler(t *testing.T) {
	env := newTestEnv(t, nil, "k1")

	text, err := studyai.NewProxyTransport(env.srv.URL).Generate(context.Background(), studyai.Request{
		Contents: []*genai.Content{genai.NewContentFromText("hi", genai.RoleUser)},
	})
	require.NoError(t, err)
	require.Equal(t, "generated", text)
}

func TestProxyTransportReportsMissingServerKey(t *testing.T) {
	env := newTestEnv(t, nil)
	client := studyai.NewProxyTransport(env.srv.URL)

	_, err := client.Generate(context.Background(), studyai.Request{
		Contents: []*genai.Content{genai.NewContentFromText("hi", genai.RoleUser)},
	})
	require.ErrorIs(t, err, studyai.ErrNoCredentials)

	// A bad body is still the caller's problem, not a configuration one.
	env = newTestEnv(t, nil, "k1")
	_, err = studyai.NewProxyTransport(env.srv.URL).Generate(context.Background(), studyai.Request{})
	require.NotErrorIs(t, err, studyai.ErrNoCredentials)
	var perr *studyai.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusBadRequest, perr.StatusCode)
}
