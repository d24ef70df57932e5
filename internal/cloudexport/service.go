package cloudexport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

const (
	historyCap = 50
	sharesCap  = 20

	shareLinkBase = "https://expensetracker.app/share/"
	qrAPIBase     = "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data="
)

// EventPublisher receives completed-export notifications. Publishing is
// best-effort; a nil publisher disables it.
type EventPublisher interface {
	PublishExportCompleted(ctx context.Context, item ExportHistoryItem) error
}

// Delays control the artificial latency of simulated operations.
type Delays struct {
	Toggle time.Duration
	Export time.Duration
	Share  time.Duration
}

// DefaultDelays mirrors the reference simulation timings.
func DefaultDelays() Delays {
	return Delays{
		Toggle: 1500 * time.Millisecond,
		Export: 2 * time.Second,
		Share:  time.Second,
	}
}

// Service is the export hub. All state lives in KV namespaces separate
// from the expense collection; hub failures never touch expense data.
type Service struct {
	kv          storage.KV
	events      EventPublisher
	delays      Delays
	failureRate float64
	rng         *rand.Rand
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDelays overrides the simulated latencies (tests use zero).
func WithDelays(d Delays) Option {
	return func(s *Service) { s.delays = d }
}

// WithFailureRate overrides the simulated cloud-upload failure rate.
func WithFailureRate(rate float64) Option {
	return func(s *Service) { s.failureRate = rate }
}

// WithRand injects a deterministic random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEventPublisher wires an optional completed-export publisher.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func NewService(kv storage.KV, opts ...Option) *Service {
	s := &Service{
		kv:          kv,
		delays:      DefaultDelays(),
		failureRate: 0.1,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Integrations returns the destination catalog overlaid with stored
// connection state. Email is always available.
func (s *Service) Integrations(ctx context.Context) []CloudIntegration {
	connections := s.loadConnections(ctx)
	catalog := []CloudIntegration{
		{ID: IntegrationGoogleSheets, Name: "Google Sheets", Description: "Sync expenses to a Google Spreadsheet automatically"},
		{ID: IntegrationDropbox, Name: "Dropbox", Description: "Save exports to your Dropbox cloud storage"},
		{ID: IntegrationOneDrive, Name: "OneDrive", Description: "Backup to Microsoft OneDrive"},
		{ID: IntegrationEmail, Name: "Email", Description: "Send exports directly to your inbox", Connected: true},
		{ID: IntegrationNotion, Name: "Notion", Description: "Create expense databases in Notion"},
		{ID: IntegrationAirtable, Name: "Airtable", Description: "Sync with Airtable bases for advanced workflows"},
	}
	for i := range catalog {
		if state, ok := connections[catalog[i].ID]; ok {
			catalog[i].Connected = state
		}
	}
	return catalog
}

// ToggleIntegration flips a destination's connection state after a
// simulated OAuth handshake and returns the new state.
func (s *Service) ToggleIntegration(ctx context.Context, id IntegrationType) (bool, error) {
	if err := s.sleep(ctx, s.delays.Toggle); err != nil {
		return false, err
	}
	connections := s.loadConnections(ctx)
	connections[id] = !connections[id]
	s.store(ctx, storage.KeyIntegrations, connections)
	slog.InfoContext(ctx, "Integration toggled",
		log.FieldComponent, log.ComponentCloudExport, log.FieldDestination, string(id), "connected", connections[id])
	return connections[id], nil
}

// History returns the export audit trail, newest first.
func (s *Service) History(ctx context.Context) []ExportHistoryItem {
	var history []ExportHistoryItem
	s.load(ctx, storage.KeyHistory, &history)
	return history
}

// ClearHistory drops the audit trail.
func (s *Service) ClearHistory(ctx context.Context) error {
	return s.kv.Delete(ctx, storage.KeyHistory)
}

// ExportToCloud runs a templated export to a cloud destination. The
// upload is simulated: an artificial delay followed by a ~10% random
// failure. Both outcomes land in the history.
func (s *Service) ExportToCloud(ctx context.Context, expenses []core.Expense, template TemplateType, destination IntegrationType) (ExportHistoryItem, error) {
	tpl, err := TemplateByID(template)
	if err != nil {
		return ExportHistoryItem{}, err
	}
	scoped := tpl.ApplyDateRange(expenses, s.now())

	item := ExportHistoryItem{
		ID:          uuid.NewString(),
		Timestamp:   s.now(),
		Template:    template,
		Destination: string(destination),
		Status:      StatusProcessing,
		RecordCount: len(scoped),
		FileSize:    estimateFileSize(len(scoped)),
	}

	if err := s.sleep(ctx, s.delays.Export); err != nil {
		return ExportHistoryItem{}, err
	}

	if s.rng.Float64() < s.failureRate {
		item.Status = StatusFailed
		item.Error = "Connection timeout. Please try again."
	} else {
		item.Status = StatusCompleted
	}

	s.appendHistory(ctx, item)
	s.publish(ctx, item)
	slog.InfoContext(ctx, "Cloud export finished",
		log.FieldComponent, log.ComponentCloudExport,
		log.FieldExportID, item.ID,
		log.FieldTemplate, string(template),
		log.FieldDestination, string(destination),
		"status", string(item.Status),
		log.FieldCount, item.RecordCount)
	return item, nil
}

// ExportViaEmail simulates sending an export by mail; it always succeeds.
func (s *Service) ExportViaEmail(ctx context.Context, expenses []core.Expense, template TemplateType, email string) (ExportHistoryItem, error) {
	tpl, err := TemplateByID(template)
	if err != nil {
		return ExportHistoryItem{}, err
	}
	scoped := tpl.ApplyDateRange(expenses, s.now())

	if err := s.sleep(ctx, s.delays.Toggle); err != nil {
		return ExportHistoryItem{}, err
	}

	item := ExportHistoryItem{
		ID:          uuid.NewString(),
		Timestamp:   s.now(),
		Template:    template,
		Destination: string(IntegrationEmail),
		Status:      StatusCompleted,
		RecordCount: len(scoped),
		FileSize:    estimateFileSize(len(scoped)),
	}
	s.appendHistory(ctx, item)
	s.publish(ctx, item)
	return item, nil
}

// ShareOptions bound a generated share link.
type ShareOptions struct {
	ExpiresInDays int
	MaxAccess     int
	Password      string
}

// CreateShareableLink generates a share link plus QR code URL, stores
// it in the capped share list, and records a history entry.
func (s *Service) CreateShareableLink(ctx context.Context, expenses []core.Expense, template TemplateType, opts ShareOptions) (ShareableExport, error) {
	if _, err := TemplateByID(template); err != nil {
		return ShareableExport{}, err
	}
	if err := s.sleep(ctx, s.delays.Share); err != nil {
		return ShareableExport{}, err
	}

	link := s.shareLink()
	share := ShareableExport{
		ID:        uuid.NewString(),
		Link:      link,
		QRCode:    qrAPIBase + url.QueryEscape(link),
		ExpiresAt: s.now().Add(time.Duration(opts.ExpiresInDays) * 24 * time.Hour),
		MaxAccess: opts.MaxAccess,
		Password:  opts.Password,
	}

	var shares []ShareableExport
	s.load(ctx, storage.KeyShares, &shares)
	shares = append([]ShareableExport{share}, shares...)
	if len(shares) > sharesCap {
		shares = shares[:sharesCap]
	}
	s.store(ctx, storage.KeyShares, shares)

	s.appendHistory(ctx, ExportHistoryItem{
		ID:          uuid.NewString(),
		Timestamp:   s.now(),
		Template:    template,
		Destination: "share-link",
		Status:      StatusCompleted,
		RecordCount: len(expenses),
		ShareLink:   link,
	})
	return share, nil
}

// Shares returns the stored share links, newest first.
func (s *Service) Shares(ctx context.Context) []ShareableExport {
	var shares []ShareableExport
	s.load(ctx, storage.KeyShares, &shares)
	return shares
}

// Schedules returns all registered scheduled exports.
func (s *Service) Schedules(ctx context.Context) []ScheduledExport {
	var schedules []ScheduledExport
	s.load(ctx, storage.KeySchedules, &schedules)
	return schedules
}

// CreateSchedule registers a recurring export and computes its first run.
func (s *Service) CreateSchedule(ctx context.Context, template TemplateType, destination IntegrationType, freq Frequency) (ScheduledExport, error) {
	if _, err := TemplateByID(template); err != nil {
		return ScheduledExport{}, err
	}
	now := s.now()
	schedule := ScheduledExport{
		ID:          uuid.NewString(),
		Template:    template,
		Destination: destination,
		Frequency:   freq,
		NextRun:     freq.NextRunAfter(now),
		Enabled:     true,
		CreatedAt:   now,
	}
	schedules := s.Schedules(ctx)
	schedules = append(schedules, schedule)
	s.store(ctx, storage.KeySchedules, schedules)
	slog.InfoContext(ctx, "Schedule created",
		log.FieldComponent, log.ComponentCloudExport,
		log.FieldScheduleID, schedule.ID,
		log.FieldTemplate, string(template),
		log.FieldDestination, string(destination))
	return schedule, nil
}

// ToggleSchedule flips a schedule's enabled flag; unknown ids are ignored.
func (s *Service) ToggleSchedule(ctx context.Context, id string) {
	schedules := s.Schedules(ctx)
	for i := range schedules {
		if schedules[i].ID == id {
			schedules[i].Enabled = !schedules[i].Enabled
			s.store(ctx, storage.KeySchedules, schedules)
			return
		}
	}
}

// DeleteSchedule removes a schedule; unknown ids are ignored.
func (s *Service) DeleteSchedule(ctx context.Context, id string) {
	schedules := s.Schedules(ctx)
	for i, sched := range schedules {
		if sched.ID == id {
			schedules = append(schedules[:i], schedules[i+1:]...)
			s.store(ctx, storage.KeySchedules, schedules)
			return
		}
	}
}

// DueSchedules returns enabled schedules whose NextRun is not after now.
func (s *Service) DueSchedules(ctx context.Context, now time.Time) []ScheduledExport {
	var due []ScheduledExport
	for _, sched := range s.Schedules(ctx) {
		if sched.Enabled && !sched.NextRun.After(now) {
			due = append(due, sched)
		}
	}
	return due
}

// AdvanceSchedule moves a schedule's NextRun past the given time.
func (s *Service) AdvanceSchedule(ctx context.Context, id string, from time.Time) {
	schedules := s.Schedules(ctx)
	for i := range schedules {
		if schedules[i].ID == id {
			schedules[i].NextRun = schedules[i].Frequency.NextRunAfter(from)
			s.store(ctx, storage.KeySchedules, schedules)
			return
		}
	}
}

// GenerateExportData renders the template-scoped collection as an
// indented JSON document.
func (s *Service) GenerateExportData(expenses []core.Expense, template TemplateType) (string, error) {
	tpl, err := TemplateByID(template)
	if err != nil {
		return "", err
	}
	scoped := tpl.ApplyDateRange(expenses, s.now())
	raw, err := json.MarshalIndent(scoped, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *Service) appendHistory(ctx context.Context, item ExportHistoryItem) {
	history := s.History(ctx)
	history = append([]ExportHistoryItem{item}, history...)
	if len(history) > historyCap {
		history = history[:historyCap]
	}
	s.store(ctx, storage.KeyHistory, history)
}

func (s *Service) publish(ctx context.Context, item ExportHistoryItem) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExportCompleted(ctx, item); err != nil {
		slog.WarnContext(ctx, "Failed publishing export event",
			log.FieldComponent, log.ComponentCloudExport, log.FieldExportID, item.ID, log.FieldError, err)
	}
}

func (s *Service) loadConnections(ctx context.Context) map[IntegrationType]bool {
	connections := make(map[IntegrationType]bool)
	s.load(ctx, storage.KeyIntegrations, &connections)
	return connections
}

// load fills v from a namespace; missing or corrupt payloads leave v
// untouched (hub state is as disposable as the reference behavior).
func (s *Service) load(ctx context.Context, key string, v any) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		if err != nil {
			slog.WarnContext(ctx, "Failed reading hub namespace", "namespace", key, "error", err)
		}
		return
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.WarnContext(ctx, "Hub namespace payload is corrupt, ignoring", "namespace", key, "error", err)
	}
}

func (s *Service) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.WarnContext(ctx, "Failed encoding hub namespace", "namespace", key, "error", err)
		return
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		slog.WarnContext(ctx, "Failed writing hub namespace", "namespace", key, "error", err)
	}
}

const shareLinkChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func (s *Service) shareLink() string {
	token := make([]byte, 12)
	for i := range token {
		token[i] = shareLinkChars[s.rng.Intn(len(shareLinkChars))]
	}
	return shareLinkBase + string(token)
}

// sleep waits for the simulated latency, honoring cancellation.
func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// estimateFileSize fakes a payload size from the record count.
func estimateFileSize(records int) string {
	const avgBytesPerRecord = 150
	bytes := records * avgBytesPerRecord
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}
