package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/metrics"
)

// SMSSender abstracts the SMS transport.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// SMSConfig holds the HTTP SMS gateway settings. An empty GatewayURL
// leaves the SMS channel unconfigured.
type SMSConfig struct {
	GatewayURL string `yaml:"gatewayURL"`
	APIKey     string `yaml:"apiKey"`
	From       string `yaml:"from"`
	Timeout    string `yaml:"timeout"`
}

type gatewaySender struct {
	client *resty.Client
	from   string
	log    *zap.SugaredLogger
}

type gatewayPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewGatewaySender builds the resty-backed SMS transport posting to a
// generic gateway webhook. One POST per message, no retries; timeouts
// apply per call.
func NewGatewaySender(cfg SMSConfig, log *zap.SugaredLogger) SMSSender {
	timeout := 10 * time.Second
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil {
			timeout = d
		} else {
			log.Warnw("Invalid SMS timeout, using default", "timeout", cfg.Timeout, "default", timeout)
		}
	}

	client := resty.New().
		SetBaseURL(cfg.GatewayURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	log.Infow("Initializing SMS gateway sender", "gateway", cfg.GatewayURL, "timeout", timeout)

	return &gatewaySender{client: client, from: cfg.From, log: log}
}

func (s *gatewaySender) Send(ctx context.Context, to, message string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(gatewayPayload{From: s.from, To: to, Message: message}).
		Post("")
	if err != nil {
		metrics.SMSSendFailure.Inc()
		return fmt.Errorf("posting to SMS gateway: %w", err)
	}
	if resp.IsError() {
		metrics.SMSSendFailure.Inc()
		return fmt.Errorf("SMS gateway returned status %d", resp.StatusCode())
	}
	metrics.SMSSendSuccess.Inc()
	return nil
}
