// Copyright (C) 2025 ente-x
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package errs defines the closed set of error kinds shared by every layer
// of cryptocore. Kinds are sentinel values, not types: callers compare with
// errors.Is after a layer wraps one with additional context.
package errs

import "errors"

// Input shape errors: always a programming or data error, never retryable.
var (
	ErrBadLen        = errors.New("bad length")
	ErrBadParams     = errors.New("bad parameters")
	ErrBadEncoding   = errors.New("bad encoding")
	ErrInvalidSender = errors.New("invalid sender")
)

// Authentication error: MAC mismatch, wrong key, wrong nonce, tampering, or
// an out-of-order stream chunk. Never hints at which input was wrong.
var ErrAuthFailed = errors.New("authentication failed")

// State-machine violation, e.g. compute_M1 before set_B.
var ErrWrongState = errors.New("wrong state")

// Protocol-level rejection, e.g. SRP's B mod N = 0, or an internally
// inconsistent envelope.
var (
	ErrProtocol        = errors.New("protocol error")
	ErrCorruptKeyAttrs = errors.New("corrupt key attributes")
)

// Capability errors: terminal for the caller, must be surfaced to the user.
var (
	ErrDeviceIncapable = errors.New("device incapable of requested work factor")
	ErrRngFailure      = errors.New("rng failure")
)

// Higher-level semantics.
var (
	ErrWrongPassword      = errors.New("wrong password")
	ErrNotFound           = errors.New("not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrUnsupportedSchema  = errors.New("unsupported schema version")
	ErrNoRecoveryBranch   = errors.New("no recovery branch")
	ErrSessionExpired     = errors.New("session cache expired")
)

// Transport errors wrap an underlying storage or I/O failure.
var (
	ErrIO = errors.New("io error")
	ErrDB = errors.New("db error")
)
