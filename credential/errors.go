// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-sbt/access"
)

// sentinel errors of the registry
var (
	ErrUnauthorized       = access.ErrUnauthorized
	ErrInvalidProof       = errors.New("invalid proof")
	ErrClaimed            = errors.New("claim already used")
	ErrAlreadyHeld        = errors.New("recipient already holds an active credential")
	ErrAlreadyMinted      = errors.New("address already minted")
	ErrNotMinted          = errors.New("credential not minted")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInconsistentLength = errors.New("inconsistent length")
	ErrInvalidTier        = errors.New("invalid tier")
	ErrSelfTransfer       = errors.New("self transfer")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrInvalidRecipient   = errors.New("invalid recipient")
	ErrMissingActionCtx   = errors.New("missing action context")
)

// ReceiptStatus is the outcome of a registry operation
type ReceiptStatus uint64

// receipt status values
const (
	ReceiptStatusFailure ReceiptStatus = iota
	ReceiptStatusSuccess
	ReceiptStatusUnauthorized
	ReceiptStatusInvalidProof
	ReceiptStatusClaimed
	ReceiptStatusAlreadyHeld
	ReceiptStatusAlreadyMinted
	ReceiptStatusNotMinted
	ReceiptStatusInvalidToken
	ReceiptStatusInconsistentLength
	ReceiptStatusInvalidTier
	ReceiptStatusSelfTransfer
	ReceiptStatusInvalidRecord
	ReceiptStatusInvalidRecipient
)

var (
	_statusReasons = map[ReceiptStatus]string{
		ReceiptStatusFailure:            "FAILURE",
		ReceiptStatusSuccess:            "SUCCESS",
		ReceiptStatusUnauthorized:       "Ownable: caller is not the owner",
		ReceiptStatusInvalidProof:       "INVALID_PROOF",
		ReceiptStatusClaimed:            "CLAIMED",
		ReceiptStatusAlreadyHeld:        "ALREADY_HELD",
		ReceiptStatusAlreadyMinted:      "ALREADY_MINTED",
		ReceiptStatusNotMinted:          "NOT_MINTED",
		ReceiptStatusInvalidToken:       "INVALID_TOKEN",
		ReceiptStatusInconsistentLength: "INCONSISTENT_LENGTH",
		ReceiptStatusInvalidTier:        "INVALID_TIER",
		ReceiptStatusSelfTransfer:       "SELF_TRANSFER",
		ReceiptStatusInvalidRecord:      "INVALID_RECORD",
		ReceiptStatusInvalidRecipient:   "INVALID_RECIPIENT",
	}

	_errorStatus = map[error]ReceiptStatus{
		ErrUnauthorized:       ReceiptStatusUnauthorized,
		ErrInvalidProof:       ReceiptStatusInvalidProof,
		ErrClaimed:            ReceiptStatusClaimed,
		ErrAlreadyHeld:        ReceiptStatusAlreadyHeld,
		ErrAlreadyMinted:      ReceiptStatusAlreadyMinted,
		ErrNotMinted:          ReceiptStatusNotMinted,
		ErrInvalidToken:       ReceiptStatusInvalidToken,
		ErrInconsistentLength: ReceiptStatusInconsistentLength,
		ErrInvalidTier:        ReceiptStatusInvalidTier,
		ErrSelfTransfer:       ReceiptStatusSelfTransfer,
		ErrInvalidRecord:      ReceiptStatusInvalidRecord,
		ErrInvalidRecipient:   ReceiptStatusInvalidRecipient,
	}
)

// String returns the revert reason of the status
func (s ReceiptStatus) String() string {
	if r, ok := _statusReasons[s]; ok {
		return r
	}
	return "UNKNOWN"
}

type (
	// ReceiptError indicates a rejected operation and its receipt status
	ReceiptError interface {
		error
		ReceiptStatus() ReceiptStatus
	}

	handleError struct {
		err           error
		failureStatus ReceiptStatus
	}
)

func (h *handleError) Error() string {
	return h.err.Error()
}

func (h *handleError) ReceiptStatus() ReceiptStatus {
	return h.failureStatus
}

func (h *handleError) Cause() error {
	return h.err
}

func (h *handleError) Unwrap() error {
	return h.err
}

// toReceiptError attaches the receipt status of the root cause, if it is a known one
func toReceiptError(err error) error {
	if err == nil {
		return nil
	}
	var re ReceiptError
	if errors.As(err, &re) {
		return err
	}
	status, ok := _errorStatus[errors.Cause(err)]
	if !ok {
		return err
	}
	return &handleError{
		err:           err,
		failureStatus: status,
	}
}

// StatusOf returns the receipt status of an operation result
func StatusOf(err error) ReceiptStatus {
	if err == nil {
		return ReceiptStatusSuccess
	}
	var re ReceiptError
	if errors.As(err, &re) {
		return re.ReceiptStatus()
	}
	if status, ok := _errorStatus[errors.Cause(err)]; ok {
		return status
	}
	return ReceiptStatusFailure
}
