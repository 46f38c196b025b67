// Package aggregate folds the classified event stream into per-IP client
// state.
package aggregate

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"mailsift/internal/domain"
	"mailsift/internal/geo"
)

// Aggregator owns one IP->ClientState map and applies events to it in stream
// order. It is not safe for concurrent use; the pipeline gives each worker
// its own instance over a disjoint IP shard.
type Aggregator struct {
	clients map[string]*domain.ClientState
	locator geo.Locator
}

// New returns an empty aggregator. locator may be nil, which disables
// geolocation.
func New(locator geo.Locator) *Aggregator {
	return &Aggregator{
		clients: make(map[string]*domain.ClientState),
		locator: locator,
	}
}

// Clients exposes the accumulated state. The caller owns it once ingestion
// is done.
func (a *Aggregator) Clients() map[string]*domain.ClientState {
	return a.clients
}

// Ingest applies one event. Postscreen always logs CONNECT before any verdict
// for a client, so non-CONNECT events for an unknown IP are dropped rather
// than creating half-initialized state.
func (a *Aggregator) Ingest(ev domain.Event) {
	if ev.Kind == domain.KindConnect {
		a.ingestConnect(ev)
		return
	}

	client, ok := a.clients[ev.SourceIP]
	if !ok {
		log.Debug("dropping event for client without prior CONNECT",
			"ip", ev.SourceIP, "action", ev.Kind.Name())
		return
	}

	client.Actions[ev.Kind]++

	switch ev.Kind {
	case domain.KindPassOld:
		a.recordReconnectDelay(client)
	case domain.KindDnsblTriggered:
		if rank, ok := parseDNSBLRank(ev.Detail); ok {
			client.DNSBLRanks = append(client.DNSBLRanks, rank)
		} else {
			log.Debug("DNSBL line without a parsable rank", "ip", ev.SourceIP, "detail", ev.Detail)
		}
	}
}

func (a *Aggregator) ingestConnect(ev domain.Event) {
	client, ok := a.clients[ev.SourceIP]
	if !ok {
		client = domain.NewClientState(ev.Timestamp)
		if a.locator != nil {
			if record, found := a.locator.Locate(ev.SourceIP); found {
				client.Geo = record
			}
		}
		a.clients[ev.SourceIP] = client
	} else {
		client.Counters[domain.CounterLastSeen] = ev.Timestamp
	}
	client.Counters[domain.CounterConnect]++
}

// recordReconnectDelay captures the graylist reconnection delay: the client
// passed the OLD test on its second connect after having been soft-rejected
// with a 450. Set-once: later PASS OLD events must not overwrite the
// measurement.
func (a *Aggregator) recordReconnectDelay(client *domain.ClientState) {
	if client.Counters[domain.CounterConnect] != 2 {
		return
	}
	if client.Actions[domain.KindGraylistReconnectRejection] == 0 {
		return
	}
	if _, set := client.Counters[domain.CounterReconnectDelay]; set {
		return
	}
	client.Counters[domain.CounterReconnectDelay] =
		client.Counters[domain.CounterLastSeen] - client.Counters[domain.CounterFirstSeen]
}

// parseDNSBLRank extracts the rank from a detail like "rank 5 for [ip]:port".
func parseDNSBLRank(detail string) (int32, bool) {
	fields := strings.Fields(detail)
	if len(fields) < 2 {
		return 0, false
	}
	rank, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(rank), true
}
