// Package tickets files maintenance tickets in Jira for critical
// ghost-cycle findings so the problem survives the chat session.
package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	jira "github.com/andygrunwald/go-jira"

	"github.com/earthmover/service"
)

func init() {
	service.RegisterOptionsParser(service.Tickets, func(meta *toml.MetaData, primitive toml.Primitive) (interface{}, error) {
		return service.ParseOptions[Options](meta, primitive, service.Tickets)
	})

	service.RegisterService(service.Tickets, func(meta service.ServiceMeta, opts interface{}) (service.Service, error) {
		jiraOpts, ok := opts.(*Options)
		if !ok {
			return nil, fmt.Errorf("invalid tickets options type, got %T", opts)
		}
		return NewService(meta, jiraOpts)
	})
}

type Options struct {
	URL        string `toml:"url" validate:"required,url"`
	Username   string `toml:"username" validate:"required"`
	Password   string `toml:"password" validate:"required"`
	ProjectKey string `toml:"project_key" validate:"required"`
	IssueType  string `toml:"issue_type"`
}

// Ticket is one maintenance ticket request.
type Ticket struct {
	Summary     string
	Description string
	Labels      []string
}

type Service struct {
	name        string
	description string
	opts        *Options
	client      *jira.Client
}

func NewService(meta service.ServiceMeta, opts *Options) (*Service, error) {
	tp := jira.BasicAuthTransport{
		Username: opts.Username,
		Password: opts.Password,
	}
	client, err := jira.NewClient(tp.Client(), opts.URL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}
	return &Service{
		name:        meta.Name,
		description: meta.Description,
		opts:        opts,
		client:      client,
	}, nil
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Description() string {
	return s.description
}

func (s *Service) Type() service.ServiceType {
	return service.Tickets
}

func (s *Service) Health(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, _, err := s.client.User.GetSelfWithContext(healthCtx)
	if err != nil {
		return fmt.Errorf("tickets health check failed: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return nil
}

// File creates one maintenance ticket and returns its issue key.
func (s *Service) File(ctx context.Context, ticket Ticket) (string, error) {
	issueType := s.opts.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	issue := &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{Key: s.opts.ProjectKey},
			Type:        jira.IssueType{Name: issueType},
			Summary:     ticket.Summary,
			Description: ticket.Description,
			Labels:      ticket.Labels,
		},
	}

	created, _, err := s.client.Issue.CreateWithContext(ctx, issue)
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	return created.Key, nil
}
