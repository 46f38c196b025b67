package report

import (
	"fmt"
	"html/template"
	"os"
	"sort"

	"mailsift/internal/domain"
)

// mapMarker is one blocked client pin on the map.
type mapMarker struct {
	IP        string
	Latitude  float64
	Longitude float64
	Lines     []string
}

type mapData struct {
	Markers []mapMarker
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Postscreen GeoMap of Blocked IPs</title>
    <script src="https://maps.google.com/maps/api/js?sensor=false"></script>
    <script>
      window.onload = function() {
        var map = new google.maps.Map(document.getElementById('map'), {
          zoom: 2,
          center: new google.maps.LatLng(0, 0),
          mapTypeId: google.maps.MapTypeId.TERRAIN
        });
{{- range $i, $m := .Markers}}
        var marker{{$i}} = new google.maps.Marker({
          position: new google.maps.LatLng({{$m.Latitude}}, {{$m.Longitude}}),
          map: map,
          title: "{{$m.IP}}"
        });
        var window{{$i}} = new google.maps.InfoWindow({
          maxWidth: 500,
          content: '<h2>{{$m.IP}}</h2>{{range $m.Lines}}<p>{{.}}</p>{{end}}'
        });
        google.maps.event.addListener(marker{{$i}}, 'click', function() {
          window{{$i}}.open(map, marker{{$i}});
        });
{{- end}}
      };
    </script>
    <style>
      #map { width: 100%; height: 800px; }
    </style>
  </head>
  <body>
    <h1>Postscreen Map of Blocked IPs</h1>
    <div id="map"></div>
    <p>mapping {{len .Markers}} blocked IPs</p>
  </body>
</html>
`))

// WriteMap renders the blocked clients of the summary onto an HTML map at
// path. minConn drops clients that connected fewer times than the threshold;
// clients without coordinates are skipped.
func WriteMap(path string, clients map[string]*domain.ClientState, s *domain.Summary, minConn int64) error {
	data := mapData{Markers: buildMarkers(clients, s.BlockedIPs, minConn)}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create map file: %w", err)
	}
	defer out.Close()

	if err := mapTemplate.Execute(out, data); err != nil {
		return fmt.Errorf("report: render map: %w", err)
	}
	return nil
}

func buildMarkers(clients map[string]*domain.ClientState, blockedIPs []string, minConn int64) []mapMarker {
	markers := make([]mapMarker, 0, len(blockedIPs))
	for _, ip := range blockedIPs {
		client, ok := clients[ip]
		if !ok || client.Geo == nil {
			continue
		}
		if client.Geo.Latitude == 0 && client.Geo.Longitude == 0 {
			continue
		}
		if minConn > 0 && client.Connects() < minConn {
			continue
		}
		markers = append(markers, mapMarker{
			IP:        ip,
			Latitude:  client.Geo.Latitude,
			Longitude: client.Geo.Longitude,
			Lines:     markerLines(client),
		})
	}
	return markers
}

func markerLines(client *domain.ClientState) []string {
	var lines []string

	counters := make([]string, 0, len(client.Counters))
	for name := range client.Counters {
		counters = append(counters, name)
	}
	sort.Strings(counters)
	for _, name := range counters {
		value := client.Counters[name]
		if name == domain.CounterFirstSeen || name == domain.CounterLastSeen {
			lines = append(lines, fmt.Sprintf("%s: %s", name, formatUnix(value)))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %d", name, value))
		}
	}

	for _, kind := range sortedKinds(client.Actions) {
		lines = append(lines, fmt.Sprintf("%s: %d", kind.Name(), client.Actions[kind]))
		if kind == domain.KindDnsblTriggered && len(client.DNSBLRanks) > 0 {
			lines = append(lines, fmt.Sprintf("DNSBL ranks: %v", client.DNSBLRanks))
		}
	}

	if client.Geo.City != "" || client.Geo.CountryCode != "" {
		lines = append(lines, fmt.Sprintf("Location: %s, %s", client.Geo.City, client.Geo.CountryCode))
	}
	return lines
}
