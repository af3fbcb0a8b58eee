package services

import (
	"context"
	"fmt"
	"strings"

	"onu-map/internal/domain"
)

type SubscriberService struct {
	repository domain.SubscriberRepository
	logger     domain.Logger
}

// NewSubscriberService creates a new ERP subscriber lookup service
func NewSubscriberService(repository domain.SubscriberRepository, logger domain.Logger) *SubscriberService {
	return &SubscriberService{
		repository: repository,
		logger:     logger,
	}
}

// GetBySerial returns the subscriber holding the ONU with the given serial
func (s *SubscriberService) GetBySerial(ctx context.Context, serial string) (*domain.Subscriber, error) {
	serial = strings.ToUpper(strings.TrimSpace(serial))
	s.logger.WithField("serial", serial).Debug("Looking up ERP subscriber")

	info, err := s.repository.GetSubscriberBySerial(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("looking up subscriber for %s: %w", serial, err)
	}

	if info.ClientName == "" {
		return nil, domain.NewError(domain.KindNotFound, "subscriber", "subscriber record without client name", nil)
	}

	return &domain.Subscriber{
		ClientName:   info.ClientName,
		Contract:     info.ContractDescription,
		SplitterPort: info.SplitterPort,
	}, nil
}
