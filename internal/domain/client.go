package domain

// Reserved keys of ClientState.Counters.
const (
	CounterConnect        = "CONNECT"
	CounterFirstSeen      = "FIRST_SEEN"
	CounterLastSeen       = "LAST_SEEN"
	CounterReconnectDelay = "RECONNECT_DELAY_GRAYLIST"
)

// GeoRecord is the result of the geolocation collaborator for one IP.
type GeoRecord struct {
	CountryName string
	CountryCode string
	City        string
	Latitude    float64
	Longitude   float64
}

// ClientState accumulates everything observed for one source IP over a run.
// It is created on the first CONNECT and never destroyed.
type ClientState struct {
	Counters   map[string]int64
	Actions    map[ActionKind]int64
	DNSBLRanks []int32
	Geo        *GeoRecord
}

// NewClientState returns a fresh record with FIRST_SEEN and LAST_SEEN set to
// the first connect timestamp.
func NewClientState(ts int64) *ClientState {
	return &ClientState{
		Counters: map[string]int64{
			CounterFirstSeen: ts,
			CounterLastSeen:  ts,
		},
		Actions: make(map[ActionKind]int64),
	}
}

func (c *ClientState) Connects() int64 {
	return c.Counters[CounterConnect]
}

func (c *ClientState) FirstSeen() int64 {
	return c.Counters[CounterFirstSeen]
}

func (c *ClientState) LastSeen() int64 {
	return c.Counters[CounterLastSeen]
}

// ReconnectDelay reports the graylist reconnection delay and whether it was
// ever triggered for this client.
func (c *ClientState) ReconnectDelay() (int64, bool) {
	delay, ok := c.Counters[CounterReconnectDelay]
	return delay, ok
}

// Blocked reports whether the client triggered at least one punitive verdict.
func (c *ClientState) Blocked() bool {
	for _, kind := range PunitiveKinds {
		if c.Actions[kind] > 0 {
			return true
		}
	}
	return false
}
