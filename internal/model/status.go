// Package model defines the records the retention engine reads and deletes.
//
// Application status graph:
//
//	pending ──► reviewed
//	   │
//	   └──────► rejected
//
// reviewed and rejected are terminal. Once an application leaves pending it
// becomes part of the employer's legal record and survives an applicant purge.
package model

import (
	"errors"
	"fmt"
)

// ErrUnknownStatus is returned by ParseStatus for values outside the enum.
var ErrUnknownStatus = errors.New("unknown application status")

// Status values mirror the status field stored on application documents.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusRejected Status = "rejected"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusReviewed, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStatus, s)
}

// IsEmployerRecord reports whether an application with this status must be
// kept after its applicant is purged.
func IsEmployerRecord(s Status) bool {
	return s == StatusReviewed || s == StatusRejected
}
