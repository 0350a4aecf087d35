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

package chatdb

import (
	"errors"
	"fmt"

	"github.com/ente-x/cryptocore/internal/errs"
)

// invalidSenderError carries the offending raw value so callers can report
// exactly what was found in storage, rather than a bare sentinel.
type invalidSenderError struct {
	value string
}

func (e *invalidSenderError) Error() string {
	return fmt.Sprintf("chatdb: %s: invalid sender %q", errs.ErrInvalidSender, e.value)
}

func (e *invalidSenderError) Unwrap() error {
	return errs.ErrInvalidSender
}

func notFoundf(kind string) error {
	return fmt.Errorf("chatdb: %w: %s", errs.ErrNotFound, kind)
}

func attachmentNotFoundf(id string) error {
	return fmt.Errorf("chatdb: %w: %s", errs.ErrAttachmentNotFound, id)
}

// dbErrorf wraps a low-level database failure as ErrDB, preserving the
// original message for diagnostics. Errors that already carry one of the
// package's own kinds (a decrypt failure, an invalid stored sender, a bad
// encoding) pass through untouched so callers see the real classification,
// not a blanket Db error.
func dbErrorf(op string, err error) error {
	for _, kind := range []error{
		errs.ErrNotFound, errs.ErrAttachmentNotFound, errs.ErrInvalidSender,
		errs.ErrAuthFailed, errs.ErrBadEncoding, errs.ErrBadLen,
		errs.ErrUnsupportedSchema,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("chatdb: %w: %s: %v", errs.ErrDB, op, err)
}

func cryptoErrorf(op string, err error) error {
	return fmt.Errorf("chatdb: %s: %w", op, err)
}
