package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrQuery  = errors.New("repository query failed")
	ErrInsert = errors.New("repository insert failed")
)
