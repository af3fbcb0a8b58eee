package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"onu-map/internal/cache"
	"onu-map/internal/domain"
	"onu-map/internal/domain/dto"
	"onu-map/internal/gate"
	"onu-map/internal/metrics"

	"github.com/google/uuid"
	"github.com/gookit/event"
	"golang.org/x/sync/singleflight"
)

const unassignedLabel = "unassigned"

// CacheTTLs sets how long each data class stays fresh
type CacheTTLs struct {
	Details      time.Duration
	Status       time.Duration
	Location     time.Duration
	List         time.Duration
	DeviceStatus time.Duration
}

type MonitorOption func(*MonitorService)

// WithSubscribers enables ERP enrichment of single device lookups
func WithSubscribers(subscribers *SubscriberService) MonitorOption {
	return func(s *MonitorService) {
		s.subscribers = subscribers
	}
}

// WithMonitorClock replaces the clock stamping transition events
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(s *MonitorService) {
		s.now = now
	}
}

// MonitorService merges upstream ONU data into device records, tracks
// status transitions and answers the map queries. Every upstream call goes
// through the gate and every result through the cache.
type MonitorService struct {
	vendor      domain.VendorAPI
	gate        *gate.Gate
	cache       *cache.Cache
	events      *event.Manager
	subscribers *SubscriberService
	ttl         CacheTTLs

	losLog   *EventLog
	powerLog *EventLog

	flights     singleflight.Group
	transitions sync.Mutex

	now    func() time.Time
	logger domain.Logger
}

// NewMonitorService creates a new aggregation service
func NewMonitorService(
	vendor domain.VendorAPI,
	callGate *gate.Gate,
	resultCache *cache.Cache,
	events *event.Manager,
	ttl CacheTTLs,
	logger domain.Logger,
	opts ...MonitorOption,
) *MonitorService {
	s := &MonitorService{
		vendor:   vendor,
		gate:     callGate,
		cache:    resultCache,
		events:   events,
		ttl:      ttl,
		losLog:   NewEventLog(EventLogCapacity),
		powerLog: NewEventLog(EventLogCapacity),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListDevices returns every device matching filters
func (s *MonitorService) ListDevices(ctx context.Context, filters domain.Filters) ([]domain.DeviceRecord, error) {
	key := cache.PrefixDeviceList + filters.Fingerprint()
	return s.cachedDevices(ctx, key, s.ttl.List, func(ctx context.Context) ([]domain.DeviceRecord, error) {
		return s.aggregate(ctx, filters)
	})
}

// ListDevicesWithLocation returns the devices matching filters that carry a
// usable location. GPS coordinates take precedence over detail coordinates.
func (s *MonitorService) ListDevicesWithLocation(ctx context.Context, filters domain.Filters) ([]domain.DeviceRecord, error) {
	key := cache.PrefixDeviceGeo + filters.Fingerprint()
	return s.cachedDevices(ctx, key, s.ttl.List, func(ctx context.Context) ([]domain.DeviceRecord, error) {
		devices, err := s.ListDevices(ctx, filters)
		if err != nil {
			return nil, err
		}

		locations := s.fetchLocations(ctx, filters)
		located := make([]domain.DeviceRecord, 0, len(devices))
		for _, d := range devices {
			if loc, ok := locations[d.ExternalID]; ok {
				d.Location = loc
			}
			if d.HasLocation() {
				located = append(located, d)
			}
		}
		return located, nil
	})
}

// GroupsByBox partitions the located devices by splitter box
func (s *MonitorService) GroupsByBox(ctx context.Context, filters domain.Filters) ([]domain.BoxGroup, error) {
	devices, err := s.ListDevicesWithLocation(ctx, filters)
	if err != nil {
		return nil, err
	}
	return GroupByBox(devices), nil
}

// Statistics reduces the device list matching filters
func (s *MonitorService) Statistics(ctx context.Context, filters domain.Filters) (*domain.StatsSummary, error) {
	devices, err := s.ListDevices(ctx, filters)
	if err != nil {
		return nil, err
	}
	return Summarize(devices), nil
}

// GetDevice returns one device with its signal and, when available, its
// subscriber. An upstream failure on the detail lookup reads as not found.
func (s *MonitorService) GetDevice(ctx context.Context, externalID string) (*domain.DeviceRecord, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "get_device", "device id is required", nil)
	}

	key := cache.PrefixDeviceDetail + externalID
	var record domain.DeviceRecord
	if s.cache.Get(ctx, key, &record) {
		return &record, nil
	}

	v, err, _ := s.flights.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)

		record, err := s.loadDevice(ctx, externalID)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, record, s.ttl.Status)
		return record, nil
	})
	if err != nil {
		return nil, err
	}

	record = v.(domain.DeviceRecord)
	return &record, nil
}

// RecentEvents returns the newest LOS and PowerFail transitions
func (s *MonitorService) RecentEvents() domain.RecentEvents {
	return domain.RecentEvents{
		LOS:       s.losLog.Recent(RecentEventsLimit),
		PowerFail: s.powerLog.Recent(RecentEventsLimit),
	}
}

// QuotaStatus reports the budget of every call class
func (s *MonitorService) QuotaStatus() domain.QuotaStatus {
	status := domain.QuotaStatus{}
	for _, class := range s.gate.Classes() {
		usage, ok := s.gate.Usage(class)
		if !ok {
			continue
		}
		remaining := usage.Remaining
		status[string(class)] = domain.QuotaClassStatus{
			Limit:          usage.Limit,
			Used:           usage.Used,
			Remaining:      &remaining,
			ResetInMinutes: usage.ResetInMinutes,
		}
	}
	status[string(gate.ClassStandard)] = domain.QuotaClassStatus{}
	return status
}

// ListOLTs returns the concentrators known to the upstream, by name
func (s *MonitorService) ListOLTs(ctx context.Context) ([]domain.OLT, error) {
	var olts []domain.OLT
	if s.cache.Get(ctx, cache.KeyOLTs, &olts) {
		return olts, nil
	}

	var raw []dto.OLT
	err := s.gate.Do(ctx, gate.ClassStandard, func(ctx context.Context) error {
		var err error
		raw, err = s.vendor.FetchOLTs(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching olts: %w", err)
	}

	olts = make([]domain.OLT, 0, len(raw))
	for _, o := range raw {
		olts = append(olts, domain.OLT{ID: o.ID.String(), Name: strings.TrimSpace(o.Name), IP: o.IP})
	}
	sort.Slice(olts, func(i, j int) bool {
		return olts[i].Name < olts[j].Name
	})

	s.cache.Set(ctx, cache.KeyOLTs, olts, s.ttl.Details)
	return olts, nil
}

// Refresh rebuilds the unfiltered device list so transitions are detected
// without client traffic. Raw upstream data still comes from the cache
// while fresh.
func (s *MonitorService) Refresh(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}()

	all := domain.Filters{}
	if err := s.cache.Invalidate(ctx, cache.PrefixDeviceList+all.Fingerprint()); err != nil {
		s.logger.WithError(err).Warn("Could not drop cached device list before refresh")
	}

	devices, err := s.ListDevices(ctx, all)
	if err != nil {
		return 0, err
	}
	return len(devices), nil
}

// InvalidateCache drops one cache entry
func (s *MonitorService) InvalidateCache(ctx context.Context, key string) error {
	return s.cache.Invalidate(ctx, key)
}

// FlushCache drops every cache entry, prior device statuses included
func (s *MonitorService) FlushCache(ctx context.Context) error {
	return s.cache.FlushAll(ctx)
}

// cachedDevices serves key from the cache or runs build once for all
// concurrent callers of the same key. The build outlives a cancelled caller.
func (s *MonitorService) cachedDevices(
	ctx context.Context,
	key string,
	ttl time.Duration,
	build func(context.Context) ([]domain.DeviceRecord, error),
) ([]domain.DeviceRecord, error) {
	var devices []domain.DeviceRecord
	if s.cache.Get(ctx, key, &devices) {
		return devices, nil
	}

	v, err, shared := s.flights.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)

		var cached []domain.DeviceRecord
		if s.cache.Get(ctx, key, &cached) {
			return cached, nil
		}

		built, err := build(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, built, ttl)
		return built, nil
	})
	if err != nil {
		return nil, err
	}

	devices = v.([]domain.DeviceRecord)
	if shared {
		devices = append([]domain.DeviceRecord(nil), devices...)
	}
	return devices, nil
}

// aggregate merges the detail set with the live status overlay
func (s *MonitorService) aggregate(ctx context.Context, filters domain.Filters) ([]domain.DeviceRecord, error) {
	details, err := s.fetchDetails(ctx, filters)
	if err != nil {
		return nil, err
	}
	statuses := s.fetchStatuses(ctx, filters)

	devices := make([]domain.DeviceRecord, 0, len(details))
	for _, d := range details {
		record := recordFromDetail(d)
		if record.ExternalID == "" {
			continue
		}
		if st, ok := statuses[record.ExternalID]; ok {
			if strings.TrimSpace(st.Status) != "" {
				record.RawStatus = st.Status
			}
			record.LastDownCause = st.LastDownCause
		}
		classify(&record)
		devices = append(devices, record)
	}
	domain.SortDevices(devices)

	s.trackTransitions(ctx, devices)
	if filters.IsEmpty() {
		publishStatusGauges(devices)
	}

	s.logger.WithFields(map[string]any{
		"filters": filters.Fingerprint(),
		"devices": len(devices),
	}).Debug("Aggregated device list")

	return devices, nil
}

func (s *MonitorService) loadDevice(ctx context.Context, externalID string) (domain.DeviceRecord, error) {
	var detail *dto.OnuDetails
	err := s.gate.Do(ctx, gate.ClassStandard, func(ctx context.Context) error {
		var err error
		detail, err = s.vendor.FetchOnuDetail(ctx, externalID)
		return err
	})
	if err != nil {
		kind := domain.KindOf(err)
		if kind == domain.KindUpstreamApplication || kind == domain.KindNotFound {
			return domain.DeviceRecord{}, domain.NewError(domain.KindNotFound, "get_device", fmt.Sprintf("onu %s not found", externalID), err)
		}
		return domain.DeviceRecord{}, fmt.Errorf("fetching onu %s: %w", externalID, err)
	}

	record := recordFromDetail(*detail)
	if record.ExternalID == "" {
		record.ExternalID = externalID
	}

	var signal *dto.OnuSignal
	err = s.gate.Do(ctx, gate.ClassStandard, func(ctx context.Context) error {
		var err error
		signal, err = s.vendor.FetchOnuSignal(ctx, externalID)
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("external_id", externalID).Warn("Signal unavailable, returning device without it")
	} else if signal != nil {
		record.Signal = &domain.Signal{
			Quality:   signal.Signal,
			Value:     signal.SignalValue,
			Value1310: signal.Signal1310,
			Value1490: signal.Signal1490,
		}
	}

	if s.subscribers != nil && record.Serial != "" {
		subscriber, err := s.subscribers.GetBySerial(ctx, record.Serial)
		if err != nil {
			s.logger.WithError(err).WithField("serial", record.Serial).Warn("Subscriber unavailable, returning device without it")
		} else {
			record.Subscriber = subscriber
		}
	}

	classify(&record)
	s.trackTransitions(ctx, []domain.DeviceRecord{record})
	return record, nil
}

func (s *MonitorService) fetchDetails(ctx context.Context, filters domain.Filters) ([]dto.OnuDetails, error) {
	key := cache.PrefixRawDetails + filters.Fingerprint()

	var details []dto.OnuDetails
	if s.cache.Get(ctx, key, &details) {
		return details, nil
	}

	// a fresh full set answers any filter without spending details quota
	if !filters.IsEmpty() {
		var all []dto.OnuDetails
		if s.cache.Get(ctx, cache.PrefixRawDetails+domain.Filters{}.Fingerprint(), &all) {
			return filterDetails(all, filters), nil
		}
	}

	err := s.gate.Do(ctx, gate.ClassDetails, func(ctx context.Context) error {
		var err error
		details, err = s.vendor.FetchOnuDetails(ctx, filters)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching onu details: %w", err)
	}

	s.cache.Set(ctx, key, details, s.ttl.Details)
	return details, nil
}

// fetchStatuses returns the live status overlay keyed by external id. A
// failure leaves the detail status in place.
func (s *MonitorService) fetchStatuses(ctx context.Context, filters domain.Filters) map[string]dto.OnuStatus {
	key := cache.PrefixRawStatuses + filters.Fingerprint()

	var statuses []dto.OnuStatus
	if !s.cache.Get(ctx, key, &statuses) {
		err := s.gate.Do(ctx, gate.ClassStandard, func(ctx context.Context) error {
			var err error
			statuses, err = s.vendor.FetchOnuStatuses(ctx, filters)
			return err
		})
		if err != nil {
			s.logger.WithError(err).Warn("Status overlay unavailable, using detail status")
			return nil
		}
		s.cache.Set(ctx, key, statuses, s.ttl.Status)
	}

	byID := make(map[string]dto.OnuStatus, len(statuses))
	for _, st := range statuses {
		byID[strings.TrimSpace(st.UniqueExternalID.String())] = st
	}
	return byID
}

// fetchLocations returns the GPS overlay keyed by external id, a nil entry
// meaning the upstream holds unusable coordinates. A failure, quota
// included, leaves the detail coordinates in place.
func (s *MonitorService) fetchLocations(ctx context.Context, filters domain.Filters) map[string]*domain.LatLng {
	key := cache.PrefixRawLocations + filters.Fingerprint()

	var raw []dto.OnuLocation
	if !s.cache.Get(ctx, key, &raw) {
		err := s.gate.Do(ctx, gate.ClassGPS, func(ctx context.Context) error {
			var err error
			raw, err = s.vendor.FetchOnuLocations(ctx, filters)
			return err
		})
		if err != nil {
			s.logger.WithError(err).WithField("kind", domain.KindOf(err)).Warn("GPS overlay unavailable, using detail coordinates")
			return nil
		}
		s.cache.Set(ctx, key, raw, s.ttl.Location)
	}

	locations := make(map[string]*domain.LatLng, len(raw))
	for _, l := range raw {
		locations[strings.TrimSpace(l.UniqueExternalID.String())] = ParseLocation(l.Latitude.String(), l.Longitude.String())
	}
	return locations
}

// trackTransitions diffs each device against its remembered status and
// records a transition for every change. A first sighting records nothing.
func (s *MonitorService) trackTransitions(ctx context.Context, devices []domain.DeviceRecord) {
	s.transitions.Lock()
	defer s.transitions.Unlock()

	for _, d := range devices {
		key := cache.PrefixDeviceStatus + d.ExternalID

		var previous domain.Status
		seen := s.cache.Get(ctx, key, &previous)
		s.cache.Set(ctx, key, d.Status, s.ttl.DeviceStatus)

		if !seen || previous == d.Status {
			continue
		}
		s.recordTransition(d, previous)
	}
}

func (s *MonitorService) recordTransition(d domain.DeviceRecord, previous domain.Status) {
	ev := &domain.StatusEvent{
		ID:         uuid.NewString(),
		ExternalID: d.ExternalID,
		Name:       d.Name,
		ODBName:    d.Topology.ODBName,
		Topology:   d.Topology,
		Previous:   previous,
		Current:    d.Status,
		ObservedAt: s.now(),
	}

	switch d.Status {
	case domain.StatusLOS:
		s.losLog.Push(*ev)
	case domain.StatusPowerFail:
		s.powerLog.Push(*ev)
	}
	metrics.StatusTransitions.WithLabelValues(string(d.Status)).Inc()

	s.logger.WithFields(map[string]any{
		"external_id": d.ExternalID,
		"odb":         d.Topology.ODBName,
		"from":        previous,
		"to":          d.Status,
	}).Info("ONU status changed")

	if err, _ := s.events.Fire(domain.EventStatusChanged, event.M{"event": ev}); err != nil {
		s.logger.WithError(err).Warn("Status change listener failed")
	}
}

func recordFromDetail(d dto.OnuDetails) domain.DeviceRecord {
	return domain.DeviceRecord{
		ExternalID: strings.TrimSpace(d.UniqueExternalID.String()),
		Serial:     strings.TrimSpace(d.SN),
		Name:       strings.TrimSpace(d.Name),
		Address:    d.Address,
		OnuType:    d.OnuTypeName,
		Topology: domain.Topology{
			OLTID:   d.OLTID.String(),
			OLTName: d.OLTName,
			Board:   d.Board.String(),
			Port:    d.Port.String(),
			ONU:     d.Onu.String(),
			ODBName: strings.TrimSpace(d.ODBName),
			Zone:    strings.TrimSpace(d.ZoneName),
		},
		Location:  ParseLocation(d.Latitude.String(), d.Longitude.String()),
		RawStatus: d.Status,
	}
}

// filterDetails keeps the details matching every set filter, the way the
// upstream applies them
func filterDetails(details []dto.OnuDetails, filters domain.Filters) []dto.OnuDetails {
	matched := make([]dto.OnuDetails, 0, len(details))
	for _, d := range details {
		if matchesFilter(d.OLTID.String(), filters.OLTID) &&
			matchesFilter(d.Board.String(), filters.Board) &&
			matchesFilter(d.Port.String(), filters.Port) &&
			matchesFilter(d.ZoneName, filters.Zone) {
			matched = append(matched, d)
		}
	}
	return matched
}

func matchesFilter(value, want string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(strings.TrimSpace(value), want)
}

func classify(record *domain.DeviceRecord) {
	record.Status = ClassifyStatus(record.RawStatus)
	record.Color = record.Status.Color()
}

// GroupByBox partitions devices by splitter box name, sorted by name.
// Devices without a box name are left out.
func GroupByBox(devices []domain.DeviceRecord) []domain.BoxGroup {
	index := make(map[string]int)
	groups := make([]domain.BoxGroup, 0)

	for _, d := range devices {
		name := strings.TrimSpace(d.Topology.ODBName)
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, domain.BoxGroup{Name: name})
		}
		groups[i].Devices = append(groups[i].Devices, d)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups
}

// Summarize reduces a device list to its statistics
func Summarize(devices []domain.DeviceRecord) *domain.StatsSummary {
	summary := &domain.StatsSummary{
		ByStatus: make(map[domain.Status]int, len(domain.Statuses)),
		ByOLT:    make(map[string]*domain.Breakdown),
		ByZone:   make(map[string]*domain.Breakdown),
		ByODB:    make(map[string]*domain.Breakdown),
	}
	for _, st := range domain.Statuses {
		summary.ByStatus[st] = 0
	}

	for _, d := range devices {
		summary.Total++
		summary.ByStatus[d.Status]++
		if d.HasLocation() {
			summary.WithLocation++
		} else {
			summary.WithoutLocation++
		}

		olt := d.Topology.OLTName
		if olt == "" {
			olt = d.Topology.OLTID
		}
		breakdown(summary.ByOLT, olt).Add(d.Status)
		breakdown(summary.ByZone, d.Topology.Zone).Add(d.Status)
		breakdown(summary.ByODB, d.Topology.ODBName).Add(d.Status)
	}
	return summary
}

func breakdown(m map[string]*domain.Breakdown, label string) *domain.Breakdown {
	if label = strings.TrimSpace(label); label == "" {
		label = unassignedLabel
	}
	b, ok := m[label]
	if !ok {
		b = &domain.Breakdown{}
		m[label] = b
	}
	return b
}

func publishStatusGauges(devices []domain.DeviceRecord) {
	counts := make(map[domain.Status]int, len(domain.Statuses))
	for _, d := range devices {
		counts[d.Status]++
	}
	for _, st := range domain.Statuses {
		metrics.DevicesByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}
