package geo

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
	"golang.org/x/sync/singleflight"

	"mailsift/internal/domain"
)

// MaxMind backs the Locator interface with a GeoLite2-City database file.
// Lookups for the same IP are deduplicated and cached, so concurrent shard
// workers hitting the same address pay for a single database read.
type MaxMind struct {
	reader *geoip2.Reader
	cache  sync.Map // ip -> *domain.GeoRecord (nil when unknown)
	group  singleflight.Group
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geo: open database %s: %w", path, err)
	}
	return &MaxMind{reader: reader}, nil
}

func (m *MaxMind) Close() error {
	return m.reader.Close()
}

func (m *MaxMind) Locate(ip string) (*domain.GeoRecord, bool) {
	if cached, ok := m.cache.Load(ip); ok {
		record, _ := cached.(*domain.GeoRecord)
		return record, record != nil
	}

	result, _, _ := m.group.Do(ip, func() (interface{}, error) {
		record := m.lookup(ip)
		m.cache.Store(ip, record)
		return record, nil
	})

	record, _ := result.(*domain.GeoRecord)
	return record, record != nil
}

func (m *MaxMind) lookup(ip string) *domain.GeoRecord {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil
	}

	city, err := m.reader.City(parsed)
	if err != nil {
		return nil
	}

	record := &domain.GeoRecord{
		CountryName: city.Country.Names["en"],
		CountryCode: city.Country.IsoCode,
		City:        city.City.Names["en"],
		Latitude:    city.Location.Latitude,
		Longitude:   city.Location.Longitude,
	}
	if record.CountryName == "" && record.CountryCode == "" {
		// The database has no entry for this address.
		return nil
	}
	return record
}
