// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"errors"
)

var (
	// ErrBackendInit is fatal: the backend could not be set up and the
	// session cannot start.
	ErrBackendInit = errors.New("backend initialization failed")
	// ErrWatchLimitExceeded means the backend refused a registration
	// because it ran out of watches or descriptors.
	ErrWatchLimitExceeded = errors.New("watch limit exceeded")
	// ErrPathNotFound means the path to register is gone or inaccessible.
	ErrPathNotFound = errors.New("path not found")
	// ErrUnknownHandle means the backend reported a handle the registry does
	// not know, i.e. registry and backend have diverged.
	ErrUnknownHandle = errors.New("unknown watch handle")
	// ErrCancelled is returned by blocking backend reads that were woken up
	// for shutdown. It is not a failure.
	ErrCancelled = errors.New("cancelled")
)

// registrationReason returns the metric label for a failed registration.
func registrationReason(err error) string {
	switch {
	case errors.Is(err, ErrWatchLimitExceeded):
		return "limit"
	case errors.Is(err, ErrPathNotFound):
		return "not_found"
	default:
		return "other"
	}
}
