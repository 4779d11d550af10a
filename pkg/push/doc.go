// Package push delivers mobile push notifications.
//
// FCMSender talks to the Firebase Cloud Messaging HTTP v1 API using a
// service-account JWT (golang.org/x/oauth2/jwt) and implements BatchSender
// with a bounded number of concurrent requests (PUSH_BATCH_CONCURRENCY).
// LogSender only logs, for development. New selects one from
// Config.Provider.
//
// A token FCM reports as unregistered yields an error matching
// ErrUnregistered.
package push
