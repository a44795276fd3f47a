// Package handlers contains the HTTP handlers for the user directory and
// service health endpoints.
package handlers

import "errors"

var errNoDatabase = errors.New("database not configured")
