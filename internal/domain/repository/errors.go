package repository

import "errors"

var ErrIdempotencyKeyConflict = errors.New("idempotency key conflicts with request")
var ErrInvalidCursor = errors.New("invalid cursor")
var ErrInstanceNotFound = errors.New("instance not found")
var ErrMessageNotFound = errors.New("message not found")
var ErrOutboxRecordNotFound = errors.New("outbox record not found")
