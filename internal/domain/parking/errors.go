package parking

import "errors"

var (
	ErrAlreadyOpen      = errors.New("plate already has an open record")
	ErrNotFound         = errors.New("record not found")
	ErrNoEligibleRecord = errors.New("no eligible record for exit")
)
