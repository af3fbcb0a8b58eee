package dto

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// FlexString accepts a JSON string, number or null and keeps its text form.
// The upstream is inconsistent about quoting ids and coordinates.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}

	*f = FlexString(string(data))
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// OnuDetails is one entry of the bulk and single ONU detail endpoints
type OnuDetails struct {
	UniqueExternalID FlexString `json:"unique_external_id"`
	SN               string     `json:"sn"`
	Name             string     `json:"name"`
	Address          string     `json:"address"`
	OnuTypeName      string     `json:"onu_type_name"`
	OLTID            FlexString `json:"olt_id"`
	OLTName          string     `json:"olt_name"`
	Board            FlexString `json:"board"`
	Port             FlexString `json:"port"`
	Onu              FlexString `json:"onu"`
	ZoneName         string     `json:"zone_name"`
	ODBName          string     `json:"odb_name"`
	Status           string     `json:"status"`
	Latitude         FlexString `json:"latitude"`
	Longitude        FlexString `json:"longitude"`
}

// OnuStatus is one entry of the bulk status endpoint
type OnuStatus struct {
	UniqueExternalID FlexString `json:"unique_external_id"`
	Status           string     `json:"status"`
	LastStatusChange string     `json:"last_status_change"`
	LastDownCause    string     `json:"last_down_cause"`
}

// OnuLocation is one entry of the bulk GPS endpoint
type OnuLocation struct {
	UniqueExternalID FlexString `json:"unique_external_id"`
	Latitude         FlexString `json:"latitude"`
	Longitude        FlexString `json:"longitude"`
}

// OnuSignal is the optical signal of a single ONU
type OnuSignal struct {
	Signal      string `json:"onu_signal"`
	SignalValue string `json:"onu_signal_value"`
	Signal1310  string `json:"onu_signal_1310"`
	Signal1490  string `json:"onu_signal_1490"`
}

// OLT is one entry of the concentrator list
type OLT struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
	IP   string     `json:"ip"`
}
