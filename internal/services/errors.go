package services

import "fmt"

// ValidationError reports rejected caller input. Nothing was written.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// DuplicateError reports a uniqueness violation on caller input.
type DuplicateError struct {
	Kind string
	Key  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Key)
}

// ChargeNotAvailableError is returned when a charge selection names a charge
// that is not among the article's current candidates.
type ChargeNotAvailableError struct {
	ArticleNumber string
	Charge        string
}

func (e *ChargeNotAvailableError) Error() string {
	return fmt.Sprintf("charge %q is not available for article %s", e.Charge, e.ArticleNumber)
}

// ReconciliationConflictError is returned when a selected set of updates is
// ambiguous (e.g. two level moves for the same article number) and the engine
// refuses to resolve it automatically. The caller resolves it by narrowing
// the selection; nothing has been written when it is returned.
type ReconciliationConflictError struct {
	ArticleNumber string
	Msg           string
}

func (e *ReconciliationConflictError) Error() string {
	return fmt.Sprintf("reconciliation conflict on %s: %s", e.ArticleNumber, e.Msg)
}

// PersistenceError wraps a failed transaction. The whole batch was rolled
// back; nothing was applied.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotFoundError reports a missing entity by kind and key.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// CleanupWarning records a file-storage side effect that failed after the
// database state was already committed. Warnings are reported, never fatal:
// the certificate record is gone even if a stray file remains.
type CleanupWarning struct {
	CertificateID string `json:"certificate_id"`
	Path          string `json:"path"`
	Reason        string `json:"reason"`
}
