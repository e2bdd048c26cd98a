package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"nftvault/internal/auth"
	"nftvault/internal/fetcher"
	"nftvault/internal/models"
	"nftvault/internal/notify"
	"nftvault/internal/repository"
)

const (
	defaultPageSize = 100
	defaultMaxPages = 20
)

// IngestObserver receives run metrics; *metrics.Metrics implements it.
type IngestObserver interface {
	ObserveIngestNetwork(network, status string)
	ObserveIngestDuration(d time.Duration)
	ObserveIngestRecords(network, result string, n int)
}

type IngestionResult struct {
	WalletID       string            `json:"wallet_id"`
	Address        string            `json:"address"`
	ActiveNetworks []string          `json:"active_networks"`
	TotalIngested  int               `json:"total_ingested"`
	PerNetwork     map[string]int    `json:"per_network"`
	Failures       map[string]string `json:"failures"`
	Malformed      int               `json:"malformed"`
	Inserted       int               `json:"inserted"`
	Updated        int               `json:"updated"`
	PersistErrors  []string          `json:"persist_errors,omitempty"`
	Persisted      bool              `json:"persisted"`
	Duration       string            `json:"duration"`

	// Artifacts holds the collapsed records of this run in network order.
	Artifacts []models.Artifact `json:"-"`
}

// IngestService fetches every requested network for one address, normalizes
// the records and persists them when the caller has an identity.
type IngestService struct {
	Fetcher     fetcher.Fetcher
	Normalizer  *Normalizer
	Persistence *PersistenceSync
	Wallets     repository.WalletRepository
	States      repository.IngestionStateRepository
	Notifier    notify.Notifier
	Metrics     IngestObserver
	Flags       FeatureFlags
	Logger      *zap.Logger

	// Networks is used when a run names none; it is filtered by address family.
	Networks []string
	PageSize int
	MaxPages int
	// Timeout bounds one network, pagination included.
	Timeout time.Duration

	locks keyedMutex
}

type networkRun struct {
	artifacts []models.Artifact
	pages     int
	records   int
	malformed int
	cursor    string
}

// Ingest only returns an error when the address itself is invalid or ctx is
// cancelled before any work starts. Network failures are reported in the result.
func (s *IngestService) Ingest(ctx context.Context, walletID, address string, networks []string) (IngestionResult, error) {
	start := time.Now()
	result := IngestionResult{
		WalletID:       walletID,
		ActiveNetworks: []string{},
		PerNetwork:     map[string]int{},
		Failures:       map[string]string{},
	}
	if s == nil || s.Fetcher == nil {
		return result, errors.New("ingest service not configured")
	}

	family, ok := fetcher.DetectFamily(address)
	if !ok {
		return result, &fetcher.InvalidAddressError{Address: address, Reason: "unrecognised address format"}
	}
	normalized, err := fetcher.NormalizeAddress(address, family)
	if err != nil {
		return result, err
	}
	result.Address = normalized
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if walletID != "" {
		unlock := s.locks.Lock(walletID)
		defer unlock()
	}

	_, hasUser := auth.UserFromContext(ctx)
	persist := hasUser && s.Persistence != nil && walletID != "" && s.flag(ctx, FeaturePersistence, true)
	logger := s.logger().With(zap.String("wallet_id", walletID), zap.String("address", normalized))
	s.emit(ctx, notify.Event{Type: notify.EventIngestion, WalletID: walletID, State: notify.StatePending,
		Data: map[string]any{"persist": persist}})

	collapsed := newArtifactSet()
	for _, network := range s.plan(networks, family) {
		if err := ctx.Err(); err != nil {
			result.Failures[network] = err.Error()
			continue
		}
		if fetcher.FamilyForNetwork(network) != family {
			result.Failures[network] = fmt.Sprintf("%s address is not valid on %s", family, network)
			continue
		}
		logger.Info("fetching network", zap.String("network", network))
		s.emit(ctx, notify.Event{Type: notify.EventIngestion, WalletID: walletID, Network: network, State: notify.StateFetchingNetwork})

		attemptAt := time.Now().UTC()
		run, err := s.fetchNetwork(ctx, walletID, normalized, network)
		s.observeRecords(network, run)
		if err != nil {
			result.Failures[network] = err.Error()
			s.observeNetwork(network, "failed")
			logger.Warn("network fetch failed", zap.String("network", network), zap.Error(err))
			s.emit(ctx, notify.Event{Type: notify.EventIngestion, WalletID: walletID, Network: network, State: notify.StateNetworkFailed, Message: err.Error()})
			if persist {
				s.saveState(ctx, walletID, network, attemptAt, run, err)
			}
			continue
		}

		result.Malformed += run.malformed
		result.PerNetwork[network] = len(run.artifacts)
		if len(run.artifacts) > 0 {
			result.ActiveNetworks = append(result.ActiveNetworks, network)
		}
		for _, a := range run.artifacts {
			collapsed.put(a)
		}
		s.observeNetwork(network, "success")
		logger.Info("network fetched", zap.String("network", network), zap.Int("artifacts", len(run.artifacts)), zap.Int("pages", run.pages))
		s.emit(ctx, notify.Event{Type: notify.EventIngestion, WalletID: walletID, Network: network, State: notify.StateNetworkSuccess,
			Data: map[string]any{"artifacts": len(run.artifacts), "malformed": run.malformed}})
		if persist {
			s.saveState(ctx, walletID, network, attemptAt, run, nil)
		}
	}

	s.emit(ctx, notify.Event{Type: notify.EventIngestion, WalletID: walletID, State: notify.StateAggregating})
	result.Artifacts = collapsed.items()
	result.TotalIngested = len(result.Artifacts)

	if persist {
		s.emit(ctx, notify.Event{Type: notify.EventIngestion, WalletID: walletID, State: notify.StatePersisting})
		s.persist(ctx, logger, &result)
	}

	elapsed := time.Since(start)
	result.Duration = elapsed.String()
	if s.Metrics != nil {
		s.Metrics.ObserveIngestDuration(elapsed)
	}
	logger.Info("ingestion done",
		zap.Int("total", result.TotalIngested),
		zap.Strings("active_networks", result.ActiveNetworks),
		zap.Int("failures", len(result.Failures)),
		zap.Bool("persisted", result.Persisted),
	)
	s.emit(ctx, notify.Event{Type: notify.EventIngestion, WalletID: walletID, State: notify.StateDone, Data: map[string]any{
		"total":           result.TotalIngested,
		"active_networks": result.ActiveNetworks,
		"failures":        result.Failures,
		"inserted":        result.Inserted,
		"updated":         result.Updated,
		"persisted":       result.Persisted,
	}})
	return result, nil
}

func (s *IngestService) persist(ctx context.Context, logger *zap.Logger, result *IngestionResult) {
	upsert, err := s.Persistence.UpsertBatch(ctx, result.Artifacts)
	result.Inserted = upsert.Inserted
	result.Updated = upsert.Updated
	for _, e := range upsert.Errors {
		result.PersistErrors = append(result.PersistErrors, e.Error())
	}
	if err != nil {
		result.PersistErrors = append(result.PersistErrors, err.Error())
		logger.Warn("persistence interrupted", zap.Error(err))
		return
	}
	result.Persisted = true
	if s.Wallets == nil {
		return
	}
	if err := s.Wallets.UpdateWalletNetworks(ctx, result.WalletID, result.ActiveNetworks, time.Now().UTC()); err != nil {
		result.PersistErrors = append(result.PersistErrors, err.Error())
		logger.Warn("update wallet networks failed", zap.Error(err))
	}
}

// fetchNetwork pages through one network. Any page error discards the pages
// already read for that network.
func (s *IngestService) fetchNetwork(ctx context.Context, walletID, address, network string) (networkRun, error) {
	var run networkRun
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxPages := s.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	cursor := ""
	for page := 1; page <= maxPages; page++ {
		res, err := s.Fetcher.Fetch(ctx, fetcher.FetchRequest{
			Address:    address,
			Network:    network,
			Cursor:     cursor,
			PageSize:   pageSize,
			Page:       page,
			Fetched:    run.records,
			OnProgress: s.progress(ctx, walletID),
		})
		if err != nil {
			if fetcher.IsTimeout(err) {
				err = fetcher.Unavailable(network, 0, fmt.Errorf("timed out: %w", err))
			}
			return networkRun{pages: run.pages, records: run.records}, err
		}
		run.pages++
		run.records += len(res.Records)
		for _, raw := range res.Records {
			item, err := s.normalizer().NormalizeRecord(raw, walletID, network)
			if err != nil {
				run.malformed++
				s.logger().Debug("malformed record skipped", zap.String("network", network), zap.Error(err))
				continue
			}
			run.artifacts = append(run.artifacts, *item)
		}
		cursor = res.Cursor
		if cursor == "" {
			break
		}
	}
	run.cursor = cursor
	return run, nil
}

func (s *IngestService) progress(ctx context.Context, walletID string) fetcher.ProgressFunc {
	if s.Notifier == nil {
		return nil
	}
	return func(p fetcher.Progress) {
		s.emit(ctx, notify.Event{Type: notify.EventProgress, WalletID: walletID, Network: p.Network,
			State: notify.StateFetchingNetwork, Data: map[string]any{"page": p.Page, "fetched": p.Fetched, "total": p.Total}})
	}
}

// plan lowercases and deduplicates networks, keeping first-seen order.
func (s *IngestService) plan(networks []string, family string) []string {
	if len(networks) == 0 {
		for _, n := range s.defaultNetworks() {
			if fetcher.FamilyForNetwork(n) == family {
				networks = append(networks, n)
			}
		}
		if len(networks) == 0 && family == models.ChainFamilySolana {
			networks = []string{fetcher.NetworkSolana}
		}
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(networks))
	for _, n := range networks {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func (s *IngestService) defaultNetworks() []string {
	if len(s.Networks) > 0 {
		return s.Networks
	}
	return []string{"eth", "polygon", "base", "arbitrum", "optimism", fetcher.NetworkSolana}
}

func (s *IngestService) saveState(ctx context.Context, walletID, network string, attemptAt time.Time, run networkRun, runErr error) {
	if s.States == nil {
		return
	}
	state := &models.IngestionState{
		WalletID:      walletID,
		Network:       network,
		LastAttemptAt: &attemptAt,
		ArtifactCount: len(run.artifacts),
	}
	if prev, err := s.States.GetIngestionState(ctx, walletID, network); err == nil && prev != nil {
		state.LastSuccessAt = prev.LastSuccessAt
		if runErr != nil {
			state.ArtifactCount = prev.ArtifactCount
		}
	}
	if runErr != nil {
		state.LastError = strPtr(runErr.Error())
	} else {
		now := time.Now().UTC()
		state.LastSuccessAt = &now
		if run.cursor != "" {
			state.Cursor = strPtr(run.cursor)
		}
	}
	stats, _ := json.Marshal(map[string]any{"pages": run.pages, "records": run.records, "malformed": run.malformed})
	state.StatsJSON = datatypes.JSON(stats)
	if err := s.States.SaveIngestionState(ctx, state); err != nil {
		s.logger().Warn("save ingestion state failed", zap.String("network", network), zap.Error(err))
	}
}

func (s *IngestService) observeNetwork(network, status string) {
	if s.Metrics != nil {
		s.Metrics.ObserveIngestNetwork(network, status)
	}
}

func (s *IngestService) observeRecords(network string, run networkRun) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.ObserveIngestRecords(network, "normalized", len(run.artifacts))
	s.Metrics.ObserveIngestRecords(network, "malformed", run.malformed)
}

// emit stamps the event with the caller, which scopes websocket delivery.
func (s *IngestService) emit(ctx context.Context, ev notify.Event) {
	if s.Notifier == nil {
		return
	}
	ev.OwnerID, _ = auth.UserFromContext(ctx)
	_ = s.Notifier.Notify(ctx, ev)
}

func (s *IngestService) flag(ctx context.Context, key string, fallback bool) bool {
	if s.Flags == nil {
		return fallback
	}
	return s.Flags.IsEnabled(ctx, key, fallback)
}

func (s *IngestService) normalizer() *Normalizer {
	if s.Normalizer == nil {
		return &Normalizer{}
	}
	return s.Normalizer
}

func (s *IngestService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// artifactSet collapses duplicate natural keys; the last record wins but
// keeps the position of the first.
type artifactSet struct {
	index map[models.NaturalKey]int
	list  []models.Artifact
}

func newArtifactSet() *artifactSet {
	return &artifactSet{index: map[models.NaturalKey]int{}}
}

func (s *artifactSet) put(a models.Artifact) {
	key := a.Key()
	if i, ok := s.index[key]; ok {
		s.list[i] = a
		return
	}
	s.index[key] = len(s.list)
	s.list = append(s.list, a)
}

func (s *artifactSet) items() []models.Artifact {
	return s.list
}

func strPtr(v string) *string {
	return &v
}
