package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"mailsift/internal/domain"
)

const topBlockedCountries = 20

// WriteClientDetails dumps one block per client: lifecycle counters, the
// postscreen verdicts and, when available, DNSBL ranks and geolocation.
// Used by the full and ip report modes.
func WriteClientDetails(w io.Writer, clients map[string]*domain.ClientState, geoEnabled bool) {
	ips := make([]string, 0, len(clients))
	for ip := range clients {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	for _, ip := range ips {
		client := clients[ip]
		fmt.Fprintln(w, ip)

		counters := make([]string, 0, len(client.Counters))
		for name := range client.Counters {
			counters = append(counters, name)
		}
		sort.Strings(counters)
		for _, name := range counters {
			value := client.Counters[name]
			if name == domain.CounterFirstSeen || name == domain.CounterLastSeen {
				fmt.Fprintf(w, "\t %s : %s\n", name, formatUnix(value))
			} else {
				fmt.Fprintf(w, "\t %s : %d\n", name, value)
			}
		}

		fmt.Fprintln(w, "\t--- postscreen actions ---")
		for _, kind := range sortedKinds(client.Actions) {
			fmt.Fprintf(w, "\t %s : %d\n", kind.Name(), client.Actions[kind])
			if kind == domain.KindDnsblTriggered {
				fmt.Fprintf(w, "\tDNSBL ranks: %v\n", client.DNSBLRanks)
			}
		}

		if geoEnabled {
			if client.Geo != nil {
				fmt.Fprintf(w, "\tGeoLoc: %s, %s (%s)\n",
					client.Geo.City, client.Geo.CountryName, client.Geo.CountryCode)
			} else {
				fmt.Fprintln(w, "\tGeoLoc: unknown")
			}
		}
		fmt.Fprintln(w)
	}
}

// WriteReport renders the aggregate report: per-action unique/total counts,
// the client statistics, the reconnection-delay histogram and the top blocked
// countries.
func WriteReport(w io.Writer, s *domain.Summary, geoEnabled bool) {
	fmt.Fprintln(w, "\n=== unique clients/total postscreen actions ===")
	fmt.Fprintf(w, "%d/%d CONNECT\n", s.ConnectClients, s.TotalConnects)
	for _, kind := range sortedKinds(s.ActionTotals) {
		fmt.Fprintf(w, "%d/%d %s\n", s.ActionClients[kind], s.ActionTotals[kind], kind.Name())
	}

	fmt.Fprintln(w, "\n=== clients statistics ===")
	if s.DNSBLClients > 0 {
		fmt.Fprintf(w, "%.2f avg. dnsbl rank\n", s.AvgDNSBLRank)
	}
	if geoEnabled {
		fmt.Fprintf(w, "%d blocked clients\n", s.BlockedClients)
	}
	fmt.Fprintf(w, "%d clients\n", s.Clients)
	fmt.Fprintf(w, "%d reconnections\n", s.Reconnections)
	if s.Reconnections > 0 {
		fmt.Fprintf(w, "%.2f seconds avg. reco. delay\n", s.AvgReconnectDelay)
	}

	if s.Reconnections > 0 {
		writeComebackTable(w, s)
	}
	if geoEnabled {
		writeBlockedCountries(w, s)
	}
}

func writeComebackTable(w io.Writer, s *domain.Summary) {
	fmt.Fprintln(w, "\n=== First reconnection delay (graylist) ===")

	labels := make([]string, len(domain.ComebackLabels))
	counts := make([]string, len(s.Comeback))
	pcts := make([]string, len(s.Comeback))
	for i := range s.Comeback {
		labels[i] = domain.ComebackLabels[i]
		counts[i] = fmt.Sprintf("%d", s.Comeback[i])
		pcts[i] = fmt.Sprintf("%.2f", float64(s.Comeback[i])/float64(s.Reconnections)*100)
	}

	fmt.Fprintf(w, "delay |%s|\n", joinPadded(labels, labels))
	fmt.Fprintf(w, "count |%s|\n", joinPadded(counts, labels))
	fmt.Fprintf(w, "pct %% |%s|\n", joinPadded(pcts, labels))
}

// joinPadded pads every cell to the width of its column label so the three
// histogram rows line up.
func joinPadded(cells, widths []string) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		width := len(widths[i])
		if len(cell) > width {
			width = len(cell)
		}
		padded[i] = fmt.Sprintf(" %-*s ", width, cell)
	}
	return strings.Join(padded, "|")
}

func writeBlockedCountries(w io.Writer, s *domain.Summary) {
	if s.BlockedClients == 0 {
		return
	}
	fmt.Fprintln(w, "\n=== Top 20 Countries of Blocked Clients ===")

	type countryCount struct {
		name  string
		count int64
	}
	countries := make([]countryCount, 0, len(s.BlockedCountries))
	for name, count := range s.BlockedCountries {
		countries = append(countries, countryCount{name: name, count: count})
	}
	sort.Slice(countries, func(i, j int) bool {
		if countries[i].count != countries[j].count {
			return countries[i].count > countries[j].count
		}
		return countries[i].name < countries[j].name
	})

	if len(countries) > topBlockedCountries {
		countries = countries[:topBlockedCountries]
	}
	for _, country := range countries {
		pct := float64(country.count) / float64(s.BlockedClients) * 100
		fmt.Fprintf(w, "%d (%5.2f%%) %s\n", country.count, pct, country.name)
	}
}

func sortedKinds(actions map[domain.ActionKind]int64) []domain.ActionKind {
	kinds := make([]domain.ActionKind, 0, len(actions))
	for kind, count := range actions {
		if count > 0 {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Name() < kinds[j].Name() })
	return kinds
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).Format("2006-01-02 15:04:05")
}
