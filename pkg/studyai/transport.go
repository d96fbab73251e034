package studyai

import (
	"context"

	"google.golang.org/genai"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.0-flash"

// Request is one generation call. It is also the JSON body accepted by the
// backend proxy, so it maps directly onto the provider's own types.
type Request struct {
	Model    string                       `json:"model,omitempty"`
	Contents []*genai.Content             `json:"contents"`
	Config   *genai.GenerateContentConfig `json:"config,omitempty"`
}

// Transport performs a generation call and returns the response text.
type Transport interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// KeyedProvider calls the provider with an explicit API key.
type KeyedProvider interface {
	Generate(ctx context.Context, apiKey string, req Request) (string, error)
}

// DirectTransport calls the provider with one fixed key.
type DirectTransport struct {
	Key      string
	Provider KeyedProvider
}

func (t DirectTransport) Generate(ctx context.Context, req Request) (string, error) {
	return t.Provider.Generate(ctx, t.Key, req)
}

// Resolver picks a transport for each call: a direct one carrying the next
// key from Keys, or Proxy when no keys are configured.
type Resolver struct {
	Keys     *KeyRing
	Provider KeyedProvider
	Proxy    Transport
}

// Transport returns the transport for the next call.
func (r *Resolver) Transport() (Transport, error) {
	if key, ok := r.Keys.Next(); ok {
		return DirectTransport{Key: key, Provider: r.Provider}, nil
	}
	if r.Proxy == nil {
		return nil, ErrNoCredentials
	}
	return r.Proxy, nil
}

// Direct returns a direct transport for the next key, refusing to fall back
// to the proxy.
func (r *Resolver) Direct() (Transport, error) {
	key, ok := r.Keys.Next()
	if !ok {
		return nil, ErrNoCredentials
	}
	return DirectTransport{Key: key, Provider: r.Provider}, nil
}

// UsesProxy reports whether calls will be routed through the proxy.
func (r *Resolver) UsesProxy() bool { return r.Keys.Len() == 0 }
