package dto

type SubscriberInfo struct {
	EquipmentSerialNumber string `db:"equipment_serial_number"`
	ClientName            string `db:"client_name"`
	ContractDescription   string `db:"contract_description"`
	SplitterName          string `db:"splitter_name"`
	SplitterPort          string `db:"splitter_port"`
}
