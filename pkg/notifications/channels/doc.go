// Package channels holds the concrete notification dispatchers: Email, SMS,
// Push and InApp. Each wraps a provider and converts every provider error
// into a failed notifications.Outcome.
//
// Single deliveries pass through a per-channel circuit breaker
// (sony/gobreaker, see NewBreaker). While the breaker is open, attempts fail
// immediately with a "provider unavailable" detail, leaving the row FAILED
// for the retry sweep. Push.DeliverBulk uses the sender's batch API directly.
//
// Typical wiring:
//
//	registry := notifications.NewRegistry().
//	    Register(notifications.ChannelEmail, channels.NewEmail(emailSender)).
//	    Register(notifications.ChannelSMS, channels.NewSMS(smsSender, "US")).
//	    Register(notifications.ChannelPush, channels.NewPush(pushSender)).
//	    Register(notifications.ChannelInApp, channels.NewInApp(redisClient))
package channels
