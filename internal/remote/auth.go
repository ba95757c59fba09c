package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// TokenSource provides bearer tokens.
type TokenSource interface {
	Token() (string, error)
}

// Authorizer adds credentials to an outgoing request.
type Authorizer interface {
	Authorize(req *http.Request) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(req *http.Request) error

// Authorize calls f(req).
func (f AuthorizerFunc) Authorize(req *http.Request) error {
	return f(req)
}

// Bearer sets "Authorization: Bearer <token>" from src on every request.
func Bearer(src TokenSource) Authorizer {
	return AuthorizerFunc(func(req *http.Request) error {
		tok, err := src.Token()
		if err != nil {
			return fmt.Errorf("obtaining token: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+tok)

		return nil
	})
}

// APIKey sets a static key header on every request.
func APIKey(header, key string) Authorizer {
	return AuthorizerFunc(func(req *http.Request) error {
		if key == "" {
			return errors.New("api key is empty")
		}

		req.Header.Set(header, key)

		return nil
	})
}

// Chain applies each authorizer in order. Nil entries are skipped.
func Chain(auths ...Authorizer) Authorizer {
	return AuthorizerFunc(func(req *http.Request) error {
		for _, a := range auths {
			if a == nil {
				continue
			}

			if err := a.Authorize(req); err != nil {
				return err
			}
		}

		return nil
	})
}
