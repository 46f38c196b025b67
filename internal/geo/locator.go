// Package geo provides the geolocation collaborator. The aggregation core
// only depends on the Locator interface; the MaxMind implementation is a
// deployment choice.
package geo

import "mailsift/internal/domain"

// Locator resolves a source IP to a geographic record. The bool is false when
// no data is available for the address; that is never an error.
type Locator interface {
	Locate(ip string) (*domain.GeoRecord, bool)
}
