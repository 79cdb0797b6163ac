package domain

import "fmt"

// QueryOptions controls how stores filter soft-deleted rows.
type QueryOptions struct {
	IncludeDeleted bool
}

// QueryOption mutates QueryOptions.
type QueryOption func(*QueryOptions)

// IncludeDeleted makes a lookup return soft-deleted rows as well.
func IncludeDeleted() QueryOption {
	return func(o *QueryOptions) {
		o.IncludeDeleted = true
	}
}

// ApplyQueryOptions folds opts into a QueryOptions value.
func ApplyQueryOptions(opts ...QueryOption) QueryOptions {
	var o QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Lock operations used in account lock keys.
const (
	LockOperationDebit  = "debit"
	LockOperationCredit = "credit"
)

// LockKey returns the distributed lock key for an account operation.
func LockKey(accountNumber, operation string) string {
	return fmt.Sprintf("ledger-account:%s:%s", accountNumber, operation)
}
