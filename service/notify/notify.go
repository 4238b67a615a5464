// Package notify pages on-call site operations through PagerDuty Events V2.
// Only CRITICAL alerts from the watchdog reach this service.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/PagerDuty/go-pagerduty"

	"github.com/earthmover/service"
)

func init() {
	service.RegisterOptionsParser(service.Notify, func(meta *toml.MetaData, primitive toml.Primitive) (interface{}, error) {
		return service.ParseOptions[Options](meta, primitive, service.Notify)
	})

	service.RegisterService(service.Notify, func(meta service.ServiceMeta, opts interface{}) (service.Service, error) {
		pdOpts, ok := opts.(*Options)
		if !ok {
			return nil, fmt.Errorf("invalid notify options type, got %T", opts)
		}
		return NewService(meta, pdOpts), nil
	})
}

type Options struct {
	APIKey     string `toml:"api_key" validate:"required"`
	RoutingKey string `toml:"routing_key" validate:"required"`
	Source     string `toml:"source"`
}

// Page describes one alert escalation.
type Page struct {
	Summary  string
	Severity string
	DedupKey string
	Details  map[string]any
}

type Service struct {
	name        string
	description string
	opts        *Options
	client      *pagerduty.Client
}

func NewService(meta service.ServiceMeta, opts *Options) *Service {
	return &Service{
		name:        meta.Name,
		description: meta.Description,
		opts:        opts,
		client:      pagerduty.NewClient(opts.APIKey),
	}
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Description() string {
	return s.description
}

func (s *Service) Type() service.ServiceType {
	return service.Notify
}

func (s *Service) Health(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.client.ListAbilitiesWithContext(healthCtx)
	if err != nil {
		return fmt.Errorf("notify health check failed: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return nil
}

// Send triggers one PagerDuty event. The dedup key keeps repeated passes
// over the same anomaly from opening duplicate incidents.
func (s *Service) Send(ctx context.Context, page Page) error {
	source := s.opts.Source
	if source == "" {
		source = "earthmover-watchdog"
	}

	severity := page.Severity
	if severity == "" {
		severity = "critical"
	}

	event := &pagerduty.V2Event{
		RoutingKey: s.opts.RoutingKey,
		Action:     "trigger",
		DedupKey:   page.DedupKey,
		Payload: &pagerduty.V2Payload{
			Summary:  page.Summary,
			Source:   source,
			Severity: severity,
			Details:  page.Details,
		},
	}

	resp, err := s.client.ManageEventWithContext(ctx, event)
	if err != nil {
		return fmt.Errorf("manage event: %w", err)
	}

	slog.Info("notify.page.sent", "dedup_key", resp.DedupKey, "status", resp.Status)
	return nil
}
