// Package fantasy provides the fantasy-league roster provider adapter.
//
// This file defines the typed failures the orchestrator feeds back to the
// model, so it can tell the user "your league cookies expired" instead of
// a generic error.
package fantasy

import "errors"

// ErrCredentialsInvalid means the league is private and the stored
// credential pair was missing, expired, or rejected.
var ErrCredentialsInvalid = errors.New("fantasy credentials invalid or expired")

// ErrLeagueNotFound means the league identifier does not exist for the
// configured season.
var ErrLeagueNotFound = errors.New("fantasy league not found")

// ErrRateLimited means the provider rejected the call for quota reasons.
// Retrying within the same turn will not help.
var ErrRateLimited = errors.New("fantasy provider rate limited")
