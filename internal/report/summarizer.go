// Package report reduces the completed client map into the aggregate summary
// and renders the text report and the HTML map.
package report

import (
	"sort"

	"mailsift/internal/domain"
	"mailsift/internal/filter"
)

// Summarize walks every client, skips the ones rejected by the action filter
// and accumulates the aggregate counters. geoEnabled gates the country
// tallies; clients without geolocation data stay in the overall totals but
// never contribute to geo-keyed aggregates.
func Summarize(clients map[string]*domain.ClientState, expr filter.Expression, geoEnabled bool) *domain.Summary {
	s := domain.NewSummary()

	for ip, client := range clients {
		if !expr.Matches(client.Actions) {
			continue
		}
		s.Clients++

		if connects := client.Connects(); connects > 0 {
			s.ConnectClients++
			s.TotalConnects += connects
		}

		if delay, ok := client.ReconnectDelay(); ok {
			s.Reconnections++
			s.ReconnectDelaySum += delay
			s.Comeback[BucketIndex(delay)]++
		}

		for kind, count := range client.Actions {
			if count <= 0 {
				continue
			}
			s.ActionTotals[kind] += count
			s.ActionClients[kind]++
		}

		if client.Actions[domain.KindDnsblTriggered] > 0 {
			s.DNSBLClients++
			for _, rank := range client.DNSBLRanks {
				s.DNSBLRankSum += int64(rank)
			}
		}

		if geoEnabled && client.Geo != nil && client.Blocked() {
			s.BlockedClients++
			s.BlockedCountries[client.Geo.CountryName]++
			s.BlockedIPs = append(s.BlockedIPs, ip)
		}
	}

	if s.Reconnections > 0 {
		s.AvgReconnectDelay = float64(s.ReconnectDelaySum) / float64(s.Reconnections)
	}
	if s.DNSBLClients > 0 {
		s.AvgDNSBLRank = float64(s.DNSBLRankSum) / float64(s.DNSBLClients)
	}
	sort.Strings(s.BlockedIPs)

	return s
}

// BucketIndex assigns a reconnection delay in seconds to its histogram
// bucket. The first two bounds are asymmetric on purpose: [0,10) then
// [10,30], every later bucket is (lo,hi].
func BucketIndex(delay int64) int {
	switch {
	case delay < 10:
		return 0
	case delay <= 30:
		return 1
	case delay <= 60:
		return 2
	case delay <= 300:
		return 3
	case delay <= 1800:
		return 4
	case delay <= 7200:
		return 5
	case delay <= 18000:
		return 6
	case delay <= 43200:
		return 7
	case delay <= 86400:
		return 8
	default:
		return 9
	}
}
