package push

import "time"

// Provider names accepted by PUSH_PROVIDER.
const (
	ProviderFCM = "fcm"
	ProviderLog = "log"
)

// Config holds push provider configuration.
type Config struct {
	Provider         string        `env:"PUSH_PROVIDER" envDefault:"log"`
	FCMProjectID     string        `env:"FCM_PROJECT_ID"`
	FCMCredentials   string        `env:"FCM_CREDENTIALS_JSON"` // service account key JSON
	FCMEndpoint      string        `env:"FCM_ENDPOINT" envDefault:"https://fcm.googleapis.com"`
	BatchConcurrency int           `env:"PUSH_BATCH_CONCURRENCY" envDefault:"10"`
	RequestTimeout   time.Duration `env:"PUSH_REQUEST_TIMEOUT" envDefault:"10s"`
}
