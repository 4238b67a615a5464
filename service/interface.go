package service

import (
	"context"
)

type ServiceType string

const (
	Warehouse ServiceType = "warehouse"
	DocSearch ServiceType = "docsearch"
	Notify    ServiceType = "notify"
	Tickets   ServiceType = "tickets"
)

type Service interface {
	Name() string
	Description() string
	Type() ServiceType
	Health(ctx context.Context) error
	Close() error
}
