// Package geo resolves client IP addresses to a coarse location.
package geo

import "context"

// Unknown fills every location field that could not be resolved.
const Unknown = "Unknown"

// Location is a coarse geographic position.
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

// UnknownLocation is returned when nothing is known about an address.
var UnknownLocation = Location{Country: Unknown, Region: Unknown, City: Unknown}

// Locator maps an IP address to a Location. Implementations never fail;
// unresolvable addresses map to UnknownLocation.
type Locator interface {
	Locate(ctx context.Context, ip string) Location
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, ip string) Location

func (f LocatorFunc) Locate(ctx context.Context, ip string) Location {
	return f(ctx, ip)
}

// Static returns a Locator that reports loc for every non-empty address.
// Empty fields of loc become Unknown.
func Static(loc Location) Locator {
	loc = loc.normalized()
	return LocatorFunc(func(_ context.Context, ip string) Location {
		if ip == "" {
			return UnknownLocation
		}
		return loc
	})
}

func (l Location) normalized() Location {
	if l.Country == "" {
		l.Country = Unknown
	}
	if l.Region == "" {
		l.Region = Unknown
	}
	if l.City == "" {
		l.City = Unknown
	}
	return l
}
