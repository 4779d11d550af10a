// Package email provides a provider-agnostic interface for sending
// transactional email.
//
// # Architecture
//
// Every provider implements Sender, which validates the Message and returns
// the identifier the provider assigned to it:
//   - PostmarkSender delivers through Postmark with open and link tracking
//   - SendGridSender delivers through the SendGrid v3 API
//   - S3Sender captures messages as JSON objects in a bucket (staging)
//   - DevSender writes HTML and JSON files to a local directory
//
// New picks the implementation named by Config.Provider (EMAIL_PROVIDER).
//
// # Usage
//
//	cfg := config.MustLoad[email.Config]()
//	sender, err := email.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//
//	id, err := sender.Send(ctx, email.Message{
//	    To:       "user@example.com",
//	    Subject:  "Welcome!",
//	    TextBody: "Hello there",
//	    Tag:      "welcome",
//	})
//
// # Error Handling
//
// Sentinel errors cover the failure classes:
//   - ErrInvalidConfig: configuration validation failed
//   - ErrInvalidParams: message validation failed
//   - ErrFailedToSendEmail: the provider rejected or could not take the message
//   - ErrUnknownProvider: Config.Provider names no implementation
//
// Provider responses are joined to the sentinel, so errors.Is works on the
// result and the message keeps the provider's detail.
package email
