package domain

import (
	"sort"
	"strings"
	"time"
)

// Status is the normalized ONU status
type Status string

const (
	StatusOnline    Status = "Online"
	StatusLOS       Status = "LOS"
	StatusPowerFail Status = "PowerFail"
	StatusOffline   Status = "Offline"
)

// Statuses lists every normalized status in display order
var Statuses = []Status{StatusOnline, StatusLOS, StatusPowerFail, StatusOffline}

var statusColors = map[Status]string{
	StatusOnline:    "#16a34a",
	StatusLOS:       "#dc2626",
	StatusPowerFail: "#f59e0b",
	StatusOffline:   "#6b7280",
}

// Color returns the map marker color of the status
func (s Status) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return statusColors[StatusOffline]
}

// LatLng is a WGS84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Topology locates an ONU in the PON tree
type Topology struct {
	OLTID   string `json:"olt_id"`
	OLTName string `json:"olt_name,omitempty"`
	Board   string `json:"board"`
	Port    string `json:"port"`
	ONU     string `json:"onu,omitempty"`
	ODBName string `json:"odb_name"`
	Zone    string `json:"zone,omitempty"`
}

// Signal is the optical signal sub-record of a device
type Signal struct {
	Quality   string `json:"quality"`
	Value     string `json:"value"`
	Value1310 string `json:"value_1310,omitempty"`
	Value1490 string `json:"value_1490,omitempty"`
}

// Subscriber is the ERP customer attached to an ONU
type Subscriber struct {
	ClientName   string `json:"client_name"`
	Contract     string `json:"contract"`
	SplitterPort string `json:"splitter_port,omitempty"`
}

// DeviceRecord is one ONU as rendered on the map. It is rebuilt on every
// aggregation pass and never mutated after being handed out.
type DeviceRecord struct {
	ExternalID    string      `json:"external_id"`
	Serial        string      `json:"sn,omitempty"`
	Name          string      `json:"name"`
	Address       string      `json:"address,omitempty"`
	OnuType       string      `json:"onu_type,omitempty"`
	Topology      Topology    `json:"topology"`
	Location      *LatLng     `json:"location,omitempty"`
	RawStatus     string      `json:"raw_status"`
	Status        Status      `json:"status"`
	Color         string      `json:"color"`
	LastDownCause string      `json:"last_down_cause,omitempty"`
	Signal        *Signal     `json:"signal,omitempty"`
	Subscriber    *Subscriber `json:"subscriber,omitempty"`
}

// HasLocation reports whether the device carries usable coordinates
func (d DeviceRecord) HasLocation() bool {
	return d.Location != nil
}

// Filters narrows an aggregation query. Empty fields impose no constraint.
type Filters struct {
	OLTID string `json:"olt_id,omitempty" validate:"omitempty,max=64"`
	Board string `json:"board,omitempty" validate:"omitempty,numeric"`
	Port  string `json:"port,omitempty" validate:"omitempty,numeric"`
	Zone  string `json:"zone,omitempty" validate:"omitempty,max=128"`
}

// Fingerprint returns a canonical key for the filter set
func (f Filters) Fingerprint() string {
	parts := []string{
		"board=" + strings.TrimSpace(f.Board),
		"olt_id=" + strings.TrimSpace(f.OLTID),
		"port=" + strings.TrimSpace(f.Port),
		"zone=" + strings.TrimSpace(f.Zone),
	}
	return strings.Join(parts, "&")
}

// IsEmpty reports whether no filter is set
func (f Filters) IsEmpty() bool {
	return strings.TrimSpace(f.OLTID) == "" &&
		strings.TrimSpace(f.Board) == "" &&
		strings.TrimSpace(f.Port) == "" &&
		strings.TrimSpace(f.Zone) == ""
}

// StatusEvent is one observed change of a device's normalized status
type StatusEvent struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	ODBName    string    `json:"odb_name"`
	Topology   Topology  `json:"topology"`
	Previous   Status    `json:"previous"`
	Current    Status    `json:"current"`
	ObservedAt time.Time `json:"observed_at"`
}

// RecentEvents holds the newest transitions of each alerting log, newest first
type RecentEvents struct {
	LOS       []StatusEvent `json:"los"`
	PowerFail []StatusEvent `json:"power_fail"`
}

// BoxGroup is the set of devices hanging from one splitter box
type BoxGroup struct {
	Name    string         `json:"name"`
	Devices []DeviceRecord `json:"devices"`
}

// Centroid returns the mean position of the located members. The second
// value is false when no member has a location.
func (g BoxGroup) Centroid() (LatLng, bool) {
	var sum LatLng
	n := 0
	for _, d := range g.Devices {
		if d.Location == nil {
			continue
		}
		sum.Lat += d.Location.Lat
		sum.Lng += d.Location.Lng
		n++
	}
	if n == 0 {
		return LatLng{}, false
	}
	return LatLng{Lat: sum.Lat / float64(n), Lng: sum.Lng / float64(n)}, true
}

// Breakdown counts devices of one dimension value
type Breakdown struct {
	Total     int `json:"total"`
	Online    int `json:"online"`
	NotOnline int `json:"not_online"`
}

// Add counts one device with the given status
func (b *Breakdown) Add(s Status) {
	b.Total++
	if s == StatusOnline {
		b.Online++
	} else {
		b.NotOnline++
	}
}

// StatsSummary is the reduction of an aggregated device list
type StatsSummary struct {
	Total           int                   `json:"total"`
	ByStatus        map[Status]int        `json:"by_status"`
	WithLocation    int                   `json:"with_location"`
	WithoutLocation int                   `json:"without_location"`
	ByOLT           map[string]*Breakdown `json:"by_olt"`
	ByZone          map[string]*Breakdown `json:"by_zone"`
	ByODB           map[string]*Breakdown `json:"by_odb"`
}

// QuotaClassStatus reports the budget of one upstream call class.
// Remaining is nil for classes without an hourly quota.
type QuotaClassStatus struct {
	Limit          int  `json:"limit"`
	Used           int  `json:"used"`
	Remaining      *int `json:"remaining"`
	ResetInMinutes int  `json:"reset_in_minutes"`
}

// QuotaStatus maps call class names to their budget
type QuotaStatus map[string]QuotaClassStatus

// OLT is one concentrator known to the upstream
type OLT struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip,omitempty"`
}

// SortDevices orders devices by external id
func SortDevices(devices []DeviceRecord) {
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ExternalID < devices[j].ExternalID
	})
}
