// Package api exposes the notification service over HTTP with chi.
//
// Every response uses the Envelope shape:
//
//	{"code": 201, "message": "notification created", "data": {...}}
//	{"code": 422, "message": "Unprocessable Entity",
//	 "error": {"code": "validation_error", "message": "...", "details": {"userId": ["..."]}}}
//
// Validation failures answer 422, missing rows 404, lifecycle conflicts and
// duplicate templates 409, storage outages 503. When WithAuth is set, /v1
// routes require an access token; user routes are limited to the token's
// user and sweeps and template creation to admins.
package api
