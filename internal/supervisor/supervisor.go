package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/wifiman/internal/companion"
	"github.com/muurk/wifiman/internal/events"
	"github.com/muurk/wifiman/internal/hotspot"
	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/networks"
	"github.com/muurk/wifiman/internal/planner"
	"github.com/muurk/wifiman/internal/station"
	"go.uber.org/zap"
)

// DefaultInterval is the sleep between periodic ticks.
const DefaultInterval = 10 * time.Second

// unknown stands in for an ssid or address the driver cannot report.
const unknown = "unknown"

// ServerController starts the config server when a document asks for it.
type ServerController interface {
	EnsureRunning(cfg networks.ConfigServer)
}

// Config holds the supervisor's collaborators and timing.
type Config struct {
	NetworksPath string
	Store        networks.Store
	Station      station.Station
	AccessPoint  station.AccessPoint
	Bus          *events.Bus
	Companion    companion.Service
	ConfigServer ServerController
	Recorder     Recorder

	PollInterval time.Duration
	MaxPolls     int
	Interval     time.Duration
}

// Supervisor owns one station and access point.
type Supervisor struct {
	config    Config
	attempter *planner.Attempter
	hotspot   *hotspot.Controller
	log       *zap.Logger

	setupMu sync.Mutex

	// transitionMu makes comparing, updating and announcing the connection
	// state one step for the loop and for setup cycles.
	transitionMu sync.Mutex

	mu       sync.Mutex
	state    ConnectionState
	document *networks.Document
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Station == nil {
		return nil, errors.New("station is required")
	}
	if cfg.AccessPoint == nil {
		return nil, errors.New("access point is required")
	}
	if cfg.Store == nil {
		cfg.Store = networks.NewFileStore()
	}
	if cfg.NetworksPath == "" {
		cfg.NetworksPath = networks.DefaultPath
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NewBus()
	}
	if cfg.Companion == nil {
		cfg.Companion = companion.Noop{}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	attempter := planner.NewAttempter(cfg.Station)
	if cfg.PollInterval > 0 {
		attempter.PollInterval = cfg.PollInterval
	}
	if cfg.MaxPolls > 0 {
		attempter.MaxPolls = cfg.MaxPolls
	}

	return &Supervisor{
		config:    cfg,
		attempter: attempter,
		hotspot:   hotspot.NewController(cfg.AccessPoint, cfg.Station),
		log:       logging.Named("supervisor"),
		state:     Disconnected,
	}, nil
}

// Bus returns the event bus observers register on.
func (s *Supervisor) Bus() *events.Bus {
	return s.config.Bus
}

// NetworksPath returns the document path the supervisor loads.
func (s *Supervisor) NetworksPath() string {
	return s.config.NetworksPath
}

// Store returns the document store.
func (s *Supervisor) Store() networks.Store {
	return s.config.Store
}

// State returns the last observed connection state.
func (s *Supervisor) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Document returns the document used by the last setup cycle, or nil.
func (s *Supervisor) Document() *networks.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

func (s *Supervisor) setState(st ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Plan loads the document, scans and ranks without connecting.
func (s *Supervisor) Plan() ([]planner.Candidate, []planner.ScanRecord, error) {
	doc, err := networks.Load(s.config.Store, s.config.NetworksPath)
	if err != nil {
		return nil, nil, err
	}
	if err := s.config.Station.Activate(true); err != nil {
		return nil, nil, fmt.Errorf("failed to activate station: %w", err)
	}
	records, err := planner.Scan(s.config.Station)
	if err != nil {
		return nil, nil, err
	}
	return planner.Rank(doc.KnownNetworks, records), records, nil
}

// Setup runs one full setup cycle and reports whether the station ended up
// connected. Concurrent calls run one after the other.
func (s *Supervisor) Setup(ctx context.Context) bool {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	start := time.Now()
	connected, reason := s.setup(ctx)
	s.config.Recorder.SetupFinished(connected, reason)
	s.config.Recorder.LinkObserved(connected, s.config.AccessPoint.Active())

	s.log.Info("Setup cycle finished",
		zap.Bool("connected", connected),
		zap.String("reason", reason),
		zap.Duration("took", time.Since(start)),
	)
	return connected
}

func (s *Supervisor) setup(ctx context.Context) (bool, string) {
	doc, err := networks.Load(s.config.Store, s.config.NetworksPath)
	if err != nil {
		s.log.Error("Failed to load network config, no known networks selected", zap.Error(err))
		s.mu.Lock()
		s.document = networks.SafeDefault()
		s.mu.Unlock()
		return false, ReasonConfigError
	}

	s.mu.Lock()
	s.document = doc
	s.mu.Unlock()

	if doc.ServerEnabled() && s.config.ConfigServer != nil {
		s.config.ConfigServer.EnsureRunning(*doc.ConfigServer)
	}

	if err := s.config.Station.Activate(true); err != nil {
		s.log.Error("Failed to activate station interface", zap.Error(err))
		return false, ReasonDriverError
	}

	records, err := planner.Scan(s.config.Station)
	if err != nil {
		s.log.Error("Network scan failed", zap.Error(err))
		return false, ReasonScanError
	}
	candidates := planner.Rank(doc.KnownNetworks, records)
	s.log.Debug("Connection plan",
		zap.Int("scan_results", len(records)),
		zap.Int("candidates", len(candidates)),
	)

	companionWanted, joined := s.connect(ctx, candidates)

	if !joined && len(candidates) > 0 {
		s.config.Bus.Dispatch(events.ConnectionFailed, map[string]any{
			"attempted_networks": planner.SSIDs(candidates),
		})
	}

	res, err := s.hotspot.Apply(doc.AccessPoint.StartPolicy, doc.AccessPoint.Config)
	if err != nil {
		s.log.Warn("Continuing without a clean access point update", zap.Error(err))
	}
	if res.Active {
		companionWanted = companionWanted || doc.AccessPoint.EnablesCompanion
	}
	if res.Started {
		s.config.Bus.Dispatch(events.APStarted, map[string]any{
			"essid": doc.AccessPoint.Config.Essid(),
		})
	}

	if companionWanted {
		if err := s.config.Companion.Start(ctx); err != nil {
			s.log.Error("Failed to start companion service",
				zap.String("service", s.config.Companion.Name()),
				zap.Error(err),
			)
		}
	}

	connected, err := s.config.Station.IsConnected()
	if err != nil {
		s.log.Warn("Could not read final station state", zap.Error(err))
		connected = false
	}

	switch {
	case connected:
		return true, ReasonConnected
	case len(candidates) == 0:
		return false, ReasonNoMatch
	default:
		return false, ReasonAllFailed
	}
}

// connect tries candidates in order. The first success wins.
func (s *Supervisor) connect(ctx context.Context, candidates []planner.Candidate) (companionWanted bool, joined bool) {
	s.transitionMu.Lock()
	prev := s.State()
	if len(candidates) > 0 && prev != Connected {
		s.setState(Connecting)
	}
	s.transitionMu.Unlock()

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		s.log.Info("Attempting to connect",
			zap.String("ssid", c.SSID),
			zap.Stringer("bssid", c.BSSID),
			zap.Int("strength", c.Strength),
		)
		ok := s.attempter.Attempt(ctx, c)
		s.config.Recorder.AttemptFinished(c.SSID, ok)
		if !ok {
			continue
		}

		s.log.Info("Connected", zap.String("ssid", c.SSID))
		s.announceJoin(c, prev)
		return c.EnablesCompanion, true
	}

	// Leave a Connected state alone so the next tick reports the drop.
	s.transitionMu.Lock()
	if s.State() == Connecting {
		s.setState(Disconnected)
	}
	s.transitionMu.Unlock()
	return false, false
}

// announceJoin records the join and emits connected, unless a loop tick
// already reported this transition while the attempt was polling.
func (s *Supervisor) announceJoin(c planner.Candidate, prev ConnectionState) {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	if prev != Connected && s.State() == Connected {
		s.log.Debug("Join already reported by the loop", zap.String("ssid", c.SSID))
		return
	}
	s.setState(Connected)
	s.config.Bus.Dispatch(events.Connected, map[string]any{
		"ssid":  c.SSID,
		"bssid": c.BSSID.String(),
		"ip":    s.currentIP(),
	})
}

func (s *Supervisor) currentIP() string {
	info, err := s.config.Station.AddressInfo()
	if err != nil || info.IP == "" {
		return unknown
	}
	return info.IP
}

func (s *Supervisor) currentSSID() string {
	v, err := s.config.Station.Config("ssid")
	if err != nil {
		return unknown
	}
	if ssid, ok := v.(string); ok && ssid != "" {
		return ssid
	}
	return unknown
}
