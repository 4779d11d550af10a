package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2/jwt"
)

const (
	fcmScope        = "https://www.googleapis.com/auth/firebase.messaging"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// FCMOption configures FCMSender.
type FCMOption func(*FCMSender)

// WithHTTPClient sets the client used for FCM requests. It must already
// attach credentials; the service account in Config is then ignored.
func WithHTTPClient(c *http.Client) FCMOption {
	return func(s *FCMSender) { s.client = c }
}

// FCMSender delivers through the Firebase Cloud Messaging HTTP v1 API.
type FCMSender struct {
	client      *http.Client
	endpoint    string
	projectID   string
	concurrency int
}

// NewFCMSender creates an FCM sender authenticated with the service account
// in cfg.FCMCredentials.
func NewFCMSender(ctx context.Context, cfg Config, opts ...FCMOption) (*FCMSender, error) {
	s := &FCMSender{
		endpoint:    strings.TrimSuffix(cfg.FCMEndpoint, "/"),
		projectID:   cfg.FCMProjectID,
		concurrency: cfg.BatchConcurrency,
	}
	if s.endpoint == "" {
		s.endpoint = "https://fcm.googleapis.com"
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		acc, err := parseServiceAccount(cfg.FCMCredentials)
		if err != nil {
			return nil, err
		}
		if s.projectID == "" {
			s.projectID = acc.ProjectID
		}
		conf := &jwt.Config{
			Email:      acc.ClientEmail,
			PrivateKey: []byte(acc.PrivateKey),
			TokenURL:   acc.TokenURI,
			Scopes:     []string{fcmScope},
		}
		s.client = conf.Client(ctx)
		s.client.Timeout = cfg.RequestTimeout
	}

	if s.projectID == "" {
		return nil, fmt.Errorf("%w: FCMProjectID is required", ErrInvalidConfig)
	}
	return s, nil
}

func parseServiceAccount(raw string) (serviceAccount, error) {
	var acc serviceAccount
	if strings.TrimSpace(raw) == "" {
		return acc, fmt.Errorf("%w: FCMCredentials is required", ErrInvalidConfig)
	}
	if err := json.Unmarshal([]byte(raw), &acc); err != nil {
		return acc, errors.Join(ErrInvalidCredential, err)
	}
	if acc.ClientEmail == "" || acc.PrivateKey == "" {
		return acc, fmt.Errorf("%w: client_email and private_key are required", ErrInvalidCredential)
	}
	if acc.TokenURI == "" {
		acc.TokenURI = defaultTokenURL
	}
	return acc, nil
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification *fcmNotification  `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

type fcmResponse struct {
	Name  string `json:"name"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Send delivers one message and returns the FCM message name.
func (s *FCMSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrMissingToken
	}

	payload, err := json.Marshal(fcmRequest{Message: fcmMessage{
		Token:        msg.Token,
		Notification: &fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}})
	if err != nil {
		return "", errors.Join(ErrFailedToSend, err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.endpoint, s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Join(ErrFailedToSend, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Join(ErrFailedToSend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Join(ErrFailedToSend, err)
	}

	var out fcmResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := strings.TrimSpace(string(body))
		if out.Error != nil {
			detail = fmt.Sprintf("%s: %s", out.Error.Status, out.Error.Message)
			if out.Error.Status == "UNREGISTERED" || out.Error.Status == "NOT_FOUND" {
				return "", errors.Join(ErrFailedToSend, ErrUnregistered, errors.New(detail))
			}
		}
		return "", errors.Join(ErrFailedToSend, fmt.Errorf("fcm error: %d - %s", resp.StatusCode, detail))
	}
	return out.Name, nil
}

// SendBatch delivers msgs with bounded concurrency. One failure does not
// stop the others.
func (s *FCMSender) SendBatch(ctx context.Context, msgs []Message) []Result {
	return sendConcurrently(ctx, s.concurrency, msgs, s.Send)
}
