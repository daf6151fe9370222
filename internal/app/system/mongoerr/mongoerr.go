// internal/app/system/mongoerr/mongoerr.go
//
// Package mongoerr classifies MongoDB errors for callers that fall back to
// another path instead of failing.
package mongoerr

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// IsChangeStreamUnsupported reports whether err means the server cannot open
// change streams (standalone mongod, some emulators). Callers switch to
// polling when this returns true.
//
// Recognized server codes:
//   - 40573: $changeStream is only supported on replica sets
//   - 115:   CommandNotSupported
//   - 20:    IllegalOperation
func IsChangeStreamUnsupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 40573, 115, 20:
			return true
		}
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(40573) || se.HasErrorCode(115) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "changestream") || strings.Contains(msg, "change stream") {
		return strings.Contains(msg, "replica set") ||
			strings.Contains(msg, "not supported") ||
			strings.Contains(msg, "only supported")
	}
	return false
}

// IsTransient reports whether err looks like a reachability problem that may
// clear on its own: network failures, timeouts, server selection failures and
// cancelled or expired contexts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel("TransientTransactionError") {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "server selection") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no reachable servers")
}

// IsNotFound reports whether err is mongo.ErrNoDocuments.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
