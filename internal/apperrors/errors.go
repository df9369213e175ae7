package apperrors

import "errors"

// ErrNotFound indicates that a referenced transaction, product, customer or
// bank account does not exist for the owner.
var ErrNotFound = errors.New("resource not found")

// ErrDuplicate indicates an attempt to create a named resource that already
// exists for the owner.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidInput indicates that a workflow argument is missing or not a
// usable number. Workflows fail with this error before any ledger mutation.
var ErrInvalidInput = errors.New("invalid input")

// ErrReversal indicates that a step inside a reversal failed after earlier
// steps already mutated ledgers. Balances are in a known-inconsistent state
// and the error carries the transaction id and step index for manual
// reconciliation.
var ErrReversal = errors.New("reversal failed")
