// Package backend routes repository operations to the local or the remote
// store based on the ambient authentication state.
package backend

import (
	"fmt"

	"neuronbudget/internal/core"
	"neuronbudget/internal/remote"
	"neuronbudget/internal/store"
)

// Session is the ambient authentication fact: an opaque user identifier when
// signed in, empty otherwise. How the identifier is established is outside
// this package.
type Session struct {
	UserID string
}

func (s Session) SignedIn() bool {
	return s.UserID != ""
}

// Selector picks the store for a session. It holds both backends but makes
// the choice fresh on every call, so a sign-in or sign-out between two
// operations is picked up immediately; no backend handle is ever cached.
//
// The two backends hold disjoint record sets. The selector never falls back
// from one to the other on failure: that would silently fork a user's data.
type Selector struct {
	local  store.Adapter
	remote *remote.Client
}

func NewSelector(local store.Adapter, remoteClient *remote.Client) *Selector {
	return &Selector{local: local, remote: remoteClient}
}

// Select returns the adapter for the session: the signed-in user's remote
// namespace, or the local store when signed out.
func (s *Selector) Select(sess Session) (store.Adapter, error) {
	if !sess.SignedIn() {
		return s.local, nil
	}
	if s.remote == nil {
		return nil, fmt.Errorf("%w: signed in but no remote backend configured", core.ErrRemoteUnavailable)
	}
	return s.remote.ForUser(sess.UserID), nil
}

// Key labels the backend a session resolves to, for cache keying and logs.
func (s *Selector) Key(sess Session) string {
	if sess.SignedIn() {
		return "remote:" + sess.UserID
	}
	return "local"
}
