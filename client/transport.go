package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

type retriedKey struct{}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// Transport is an http.RoundTripper that attaches the session's access
// token and, on a 401, waits for the coordinator and replays the request
// once with the new token.
type Transport struct {
	Base        http.RoundTripper
	Store       CredentialStore
	Coordinator *RefreshCoordinator
}

// NewTransport creates a Transport. A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper, store CredentialStore, coordinator *RefreshCoordinator) *Transport {
	return &Transport{Base: base, Store: store, Coordinator: coordinator}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// modified; every attempt is sent on a clone.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	pair, err := t.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	first, err := authorize(ctx, req, getBody, pair.AccessToken)
	if err != nil {
		return nil, err
	}
	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || isRetried(ctx) {
		return resp, err
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	token, err := t.Coordinator.Await(ctx, pair.AccessToken)
	if err != nil {
		return nil, err
	}

	replay, err := authorize(markRetried(ctx), req, getBody, token)
	if err != nil {
		return nil, err
	}
	return t.base().RoundTrip(replay)
}

// authorize clones req onto ctx with a fresh body and the bearer header.
func authorize(ctx context.Context, req *http.Request, getBody func() (io.ReadCloser, error), token string) (*http.Request, error) {
	out := req.Clone(ctx)
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	return out, nil
}

// replayableBody returns a body factory for req, buffering the body when
// the request cannot produce it again on its own.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}
