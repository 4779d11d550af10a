package sms

// Provider names accepted by SMS_PROVIDER.
const (
	ProviderTwilio = "twilio"
	ProviderLog    = "log"
)

// Config holds SMS provider configuration.
type Config struct {
	Provider         string `env:"SMS_PROVIDER" envDefault:"log"`
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber       string `env:"SMS_FROM_NUMBER"`
	// DefaultRegion is used to parse numbers written without a leading +.
	DefaultRegion string `env:"SMS_DEFAULT_REGION"`
}
