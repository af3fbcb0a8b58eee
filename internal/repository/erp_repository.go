package repository

import (
	"context"
	"errors"
	"strings"

	"onu-map/internal/database"
	"onu-map/internal/domain"
	"onu-map/internal/domain/dto"
)

const getSubscriberQuery = `
SELECT DISTINCT ON (ac.equipment_serial_number)
       ac.equipment_serial_number AS equipment_serial_number,
       p.name AS client_name,
       c.description AS contract_description,
       COALESCE(as2.title, '') AS splitter_name,
       COALESCE(asp.port::text, '') AS splitter_port
  FROM authentication_contracts AS ac
 INNER JOIN contracts AS c ON c.id = ac.contract_id
 INNER JOIN people AS p ON p.id = c.client_id
  LEFT JOIN authentication_splitter_ports AS asp ON ac.id = asp.authentication_contract_id
  LEFT JOIN authentication_splitters AS as2 ON asp.authentication_splitter_id = as2.id
 WHERE UPPER(ac.equipment_serial_number) = UPPER($1)
 ORDER BY ac.equipment_serial_number, c.id DESC;`

var (
	ErrNilDatabase   = errors.New("repository: database is nil")
	ErrInvalidSerial = errors.New("repository: equipment serial is empty")
)

type ErpRepository struct {
	db database.DB
}

var _ domain.SubscriberRepository = (*ErpRepository)(nil)

// NewErpRepository creates a new ERP repository instance
func NewErpRepository(db database.DB) (*ErpRepository, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	return &ErpRepository{
		db: db,
	}, nil
}

// GetSubscriberBySerial returns the subscriber whose contract holds the
// equipment serial. A serial without contract yields domain not_found.
func (rpt *ErpRepository) GetSubscriberBySerial(ctx context.Context, serial string) (*dto.SubscriberInfo, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, ErrInvalidSerial
	}

	info := &dto.SubscriberInfo{}
	if err := rpt.db.QueryRowStruct(ctx, info, getSubscriberQuery, serial); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "subscriber", "no contract for serial "+serial, err)
		}
		return nil, err
	}

	return info, nil
}
