package supervisor

// ConnectionState is the last link state the supervisor observed.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Recorder receives cycle outcomes, typically for metrics.
type Recorder interface {
	SetupFinished(connected bool, reason string)
	AttemptFinished(ssid string, connected bool)
	LinkObserved(connected bool, apActive bool)
}

type nopRecorder struct{}

func (nopRecorder) SetupFinished(bool, string)   {}
func (nopRecorder) AttemptFinished(string, bool) {}
func (nopRecorder) LinkObserved(bool, bool)      {}

// Setup outcome reasons passed to Recorder.SetupFinished.
const (
	ReasonConnected   = "connected"
	ReasonNoMatch     = "no_match"
	ReasonAllFailed   = "all_failed"
	ReasonConfigError = "config_error"
	ReasonScanError   = "scan_error"
	ReasonDriverError = "driver_error"
)
