// Package services orchestrates the commitment and withdrawal flows on top
// of the backend client, the signer and the local store.
package services

import (
	"errors"

	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/interfaces"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/signer"
)

var (
	ErrAllocationConflict   = errors.New("allocation conflict")
	ErrCannotCancel         = errors.New("cannot cancel: execution already submitted")
	ErrCannotRetry          = errors.New("cannot retry: invalid status")
	ErrMustCancel           = errors.New("cannot retry, must cancel")
	ErrCannotRetryPayout    = errors.New("cannot retry payout: invalid status")
	ErrCannotRetryFallback  = errors.New("cannot retry fallback: invalid status")
	ErrAllocationsNotIdle   = errors.New("allocations must be idle")
	ErrAllocationsMixTokens = errors.New("allocations belong to different tokens")
	ErrAllocationsMixOwners = errors.New("allocations belong to different users")
)

const (
	flowCommitment = "commitment"
	flowWithdraw   = "withdraw"
)

// signerError maps a signer failure, keeping user rejection as its own kind.
func signerError(step string, err error, ids ...string) error {
	if signer.KindOf(err) == signer.KindUserRejected {
		return sdkerr.New(sdkerr.KindUserRejected, step, err, ids...)
	}
	return sdkerr.New(sdkerr.KindSigner, step, err, ids...)
}

// conflictError turns a 409 from a submit endpoint into a precondition
// error. Other errors are returned unchanged.
func conflictError(step string, err error, ids []string) error {
	if apiErr, ok := clients.AsAPIError(err); ok && apiErr.IsConflict() {
		return sdkerr.New(sdkerr.KindPrecondition, step, errors.Join(ErrAllocationConflict, apiErr), ids...)
	}
	return err
}

type observed struct {
	log      logrus.FieldLogger
	observer interfaces.ActionObserver
}

// SetObserver installs an action observer, typically SDK metrics.
func (o *observed) SetObserver(obs interfaces.ActionObserver) {
	o.observer = obs
}

func (o *observed) observe(flow, step string, err error) {
	if o.observer != nil {
		o.observer.ObserveAction(flow, step, err)
	}
}

func defaultLogger(log logrus.FieldLogger, component string) logrus.FieldLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("component", component)
}
