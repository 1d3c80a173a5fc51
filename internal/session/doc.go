// Package session persists the bearer token issued by the scheduling API and
// decodes the identity claims carried in it.
//
// The token is opaque to the client. DecodeIdentity reads its payload segment
// without verifying the signature, so the resulting Identity is only good for
// deciding what to show (for example the admin panel). Authorization is
// always enforced by the server.
package session
