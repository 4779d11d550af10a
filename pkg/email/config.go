package email

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderPostmark = "postmark"
	ProviderSendGrid = "sendgrid"
	ProviderS3       = "s3"
	ProviderDev      = "dev"
)

// Config holds email service configuration.
// Provider tokens are optional so development environments can run with the
// dev sender. SenderEmail is required for every provider.
type Config struct {
	Provider             string `env:"EMAIL_PROVIDER" envDefault:"dev"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SenderName           string `env:"SENDER_NAME" envDefault:"Notifications"`
	SupportEmail         string `env:"SUPPORT_EMAIL"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SendGridAPIKey       string `env:"SENDGRID_API_KEY"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`

	S3Bucket         string `env:"EMAIL_S3_BUCKET"`
	S3Region         string `env:"EMAIL_S3_REGION" envDefault:"us-east-1"`
	S3Prefix         string `env:"EMAIL_S3_PREFIX" envDefault:"emails/"`
	S3Endpoint       string `env:"EMAIL_S3_ENDPOINT"`
	S3AccessKeyID    string `env:"EMAIL_S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"EMAIL_S3_SECRET_KEY"`
	S3ForcePathStyle bool   `env:"EMAIL_S3_FORCE_PATH_STYLE" envDefault:"false"`
}

func (c Config) validateSender() error {
	if c.SenderEmail == "" {
		return errorf(ErrInvalidConfig, "SenderEmail is required")
	}
	if !IsValidAddress(c.SenderEmail) {
		return errorf(ErrInvalidConfig, "SenderEmail must be a valid email address")
	}
	if c.SupportEmail != "" && !IsValidAddress(c.SupportEmail) {
		return errorf(ErrInvalidConfig, "SupportEmail must be a valid email address")
	}
	return nil
}
