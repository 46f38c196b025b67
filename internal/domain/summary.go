package domain

// ComebackLabels are the reconnection-delay histogram buckets, in order.
var ComebackLabels = [10]string{
	"<10s",
	"10s to 30s",
	">30s to 1min",
	">1min to 5min",
	">5min to 30min",
	">30min to 2h",
	">2h to 5h",
	">5h to 12h",
	">12h to 24h",
	">24h",
}

// Summary is the aggregate view over all clients accepted by the action
// filter. It carries everything the presentation layer needs to render the
// text report and the HTML map without recomputing.
type Summary struct {
	Clients        int64
	ConnectClients int64
	TotalConnects  int64

	Reconnections     int64
	ReconnectDelaySum int64
	AvgReconnectDelay float64
	Comeback          [10]int64

	ActionTotals  map[ActionKind]int64
	ActionClients map[ActionKind]int64

	DNSBLClients int64
	DNSBLRankSum int64
	AvgDNSBLRank float64

	BlockedClients   int64
	BlockedCountries map[string]int64
	BlockedIPs       []string
}

func NewSummary() *Summary {
	return &Summary{
		ActionTotals:     make(map[ActionKind]int64),
		ActionClients:    make(map[ActionKind]int64),
		BlockedCountries: make(map[string]int64),
	}
}
