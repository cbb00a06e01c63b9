package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrNoDatabase is returned by lookups whose database was not configured.
var ErrNoDatabase = errors.New("geoip database not configured")

// Info holds the coarse location and network owner of an address.
type Info struct {
	CountryCode string `json:"country_code,omitempty"`
	CityName    string `json:"city,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	ASN         uint   `json:"asn,omitempty"`
	OrgName     string `json:"org,omitempty"`
}

// Service wraps the MaxMind City and ASN databases.
type Service struct {
	cityReader *geoip2.Reader
	asnReader  *geoip2.Reader
}

// Open opens the .mmdb files. Either path may be empty; lookups against a
// missing database return ErrNoDatabase.
func Open(cityDBPath, asnDBPath string) (*Service, error) {
	s := &Service{}

	if cityDBPath != "" {
		r, err := geoip2.Open(cityDBPath)
		if err != nil {
			return nil, fmt.Errorf("open city database: %w", err)
		}
		s.cityReader = r
	}

	if asnDBPath != "" {
		r, err := geoip2.Open(asnDBPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open asn database: %w", err)
		}
		s.asnReader = r
	}

	return s, nil
}

// Close closes the open databases.
func (s *Service) Close() {
	if s.cityReader != nil {
		s.cityReader.Close()
	}
	if s.asnReader != nil {
		s.asnReader.Close()
	}
}

func parseIP(ipAddress string) (net.IP, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip address: %q", ipAddress)
	}
	return ip, nil
}

// LookupASN returns the autonomous system number and organisation for ipAddress.
func (s *Service) LookupASN(ipAddress string) (uint, string, error) {
	if s == nil || s.asnReader == nil {
		return 0, "", ErrNoDatabase
	}
	ip, err := parseIP(ipAddress)
	if err != nil {
		return 0, "", err
	}

	record, err := s.asnReader.ASN(ip)
	if err != nil {
		return 0, "", err
	}
	return uint(record.AutonomousSystemNumber), record.AutonomousSystemOrganization, nil
}

// Lookup combines whatever the configured databases know about ipAddress.
// It fails only when neither database can answer.
func (s *Service) Lookup(ipAddress string) (Info, error) {
	if s == nil || (s.cityReader == nil && s.asnReader == nil) {
		return Info{}, ErrNoDatabase
	}
	ip, err := parseIP(ipAddress)
	if err != nil {
		return Info{}, err
	}

	var (
		info  Info
		found bool
	)
	if s.cityReader != nil {
		if record, err := s.cityReader.City(ip); err == nil {
			info.CountryCode = record.Country.IsoCode
			info.CityName = record.City.Names["en"]
			info.Timezone = record.Location.TimeZone
			found = true
		}
	}
	if asn, org, err := s.LookupASN(ipAddress); err == nil {
		info.ASN = asn
		info.OrgName = org
		found = true
	}

	if !found {
		return Info{}, fmt.Errorf("no geoip data for %s", ipAddress)
	}
	return info, nil
}
