package domain

import (
	"context"

	"onu-map/internal/domain/dto"
)

//go:generate mockgen -destination=mocks/mock_vendor.go -package=mocks onu-map/internal/domain VendorAPI

// VendorAPI is the upstream ONU management API. Every method turns a
// failure envelope into a typed *Error.
type VendorAPI interface {
	FetchOnuDetails(ctx context.Context, filters Filters) ([]dto.OnuDetails, error)
	FetchOnuStatuses(ctx context.Context, filters Filters) ([]dto.OnuStatus, error)
	FetchOnuLocations(ctx context.Context, filters Filters) ([]dto.OnuLocation, error)
	FetchOnuDetail(ctx context.Context, externalID string) (*dto.OnuDetails, error)
	FetchOnuSignal(ctx context.Context, externalID string) (*dto.OnuSignal, error)
	FetchOLTs(ctx context.Context) ([]dto.OLT, error)
}

type SubscriberRepository interface {
	GetSubscriberBySerial(ctx context.Context, serial string) (*dto.SubscriberInfo, error)
}
