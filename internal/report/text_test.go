package report

import (
	"strings"
	"testing"

	"mailsift/internal/domain"
	"mailsift/internal/filter"
)

func TestWriteReportSections(t *testing.T) {
	client := clientWithDelay(42)
	client.Geo = &domain.GeoRecord{CountryName: "Testland", CountryCode: "TL"}
	client.Actions[domain.KindDnsblTriggered] = 1
	client.DNSBLRanks = []int32{5}

	clients := map[string]*domain.ClientState{"1.2.3.4": client}
	s := Summarize(clients, filter.Compile(""), true)

	var out strings.Builder
	WriteReport(&out, s, true)
	text := out.String()

	for _, want := range []string{
		"=== unique clients/total postscreen actions ===",
		"1/2 CONNECT",
		"1/1 DNSBL",
		"=== clients statistics ===",
		"1 clients",
		"1 reconnections",
		"42.00 seconds avg. reco. delay",
		"1 blocked clients",
		"=== First reconnection delay (graylist) ===",
		"10s to 30s",
		"=== Top 20 Countries of Blocked Clients ===",
		"Testland",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestWriteReportSkipsEmptySections(t *testing.T) {
	client := domain.NewClientState(100)
	client.Counters[domain.CounterConnect] = 1
	clients := map[string]*domain.ClientState{"1.2.3.4": client}

	var out strings.Builder
	WriteReport(&out, Summarize(clients, filter.Compile(""), false), false)
	text := out.String()

	if strings.Contains(text, "First reconnection delay") {
		t.Fatal("histogram rendered without reconnections")
	}
	if strings.Contains(text, "Countries of Blocked Clients") {
		t.Fatal("country section rendered without geolocation")
	}
}

func TestWriteClientDetails(t *testing.T) {
	client := clientWithDelay(42)
	client.Actions[domain.KindDnsblTriggered] = 1
	client.DNSBLRanks = []int32{5}
	client.Geo = &domain.GeoRecord{CountryName: "Testland", CountryCode: "TL", City: "Testville"}

	var out strings.Builder
	WriteClientDetails(&out, map[string]*domain.ClientState{"1.2.3.4": client}, true)
	text := out.String()

	for _, want := range []string{
		"1.2.3.4",
		"CONNECT : 2",
		"RECONNECT_DELAY_GRAYLIST : 42",
		"--- postscreen actions ---",
		"DNSBL : 1",
		"DNSBL ranks: [5]",
		"GeoLoc: Testville, Testland (TL)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("details missing %q:\n%s", want, text)
		}
	}
}
