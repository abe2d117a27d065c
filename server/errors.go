// Copyright (C) 2025 sage-x-project
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

package server

import (
	"errors"

	"github.com/agonych/udpchat-ai/crypto"
	"github.com/agonych/udpchat-ai/envelope"
	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/repository"
)

// classify maps a receive-loop failure onto a structured AppError so the
// resulting log line carries a stable machine-readable code (the crypto,
// transport and repository layers each raise their own typed error, but
// only the receive loop decides how to report them) alongside the
// human-readable message.
func classify(err error) *logger.AppError {
	var terr *envelope.TransportError
	var cerr *crypto.CryptoError

	switch {
	case errors.As(err, &terr):
		return logger.NewAppError(logger.ErrCodeTransportError, terr.Message, err)
	case errors.As(err, &cerr):
		return logger.NewAppError(logger.ErrCodeCryptoError, cerr.Error(), err)
	case errors.Is(err, repository.ErrNotFound):
		return logger.NewAppError(logger.ErrCodeNotFound, "record not found", err)
	default:
		return logger.NewAppError(logger.ErrCodeInternal, err.Error(), err)
	}
}
