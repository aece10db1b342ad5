// Package attack defines the attack event model shared by the generator,
// the animation scheduler, the analytics views and every renderer.
package attack

import (
	"image/color"
	"math"
	"time"
)

// Type is the categorical label of an attack.
type Type string

const (
	DDoS               Type = "DDoS"
	Phishing           Type = "Phishing"
	Malware            Type = "Malware"
	Ransomware         Type = "Ransomware"
	SQLi               Type = "SQLi"
	XSS                Type = "XSS"
	BruteForce         Type = "Brute Force"
	ZeroDay            Type = "Zero-Day"
	ManInTheMiddle     Type = "Man-in-the-Middle"
	CredentialStuffing Type = "Credential Stuffing"
)

// FilterAll matches every attack type.
const FilterAll = "All"

// Types is the closed set of attack types, in display order.
var Types = []Type{
	DDoS, Phishing, Malware, Ransomware, SQLi, XSS,
	BruteForce, ZeroDay, ManInTheMiddle, CredentialStuffing,
}

// Protocol is the categorical network protocol label.
type Protocol string

const (
	TCP    Protocol = "TCP"
	UDP    Protocol = "UDP"
	HTTP   Protocol = "HTTP"
	HTTPS  Protocol = "HTTPS"
	DNS    Protocol = "DNS"
	SMTP   Protocol = "SMTP"
	SSH    Protocol = "SSH"
	FTP    Protocol = "FTP"
	TELNET Protocol = "TELNET"
	SNMP   Protocol = "SNMP"
)

// TimeLayout is the wire format of Event.Datetime.
const TimeLayout = "2006-01-02T15:04:05.000-07:00"

// InvalidDate is shown wherever an event timestamp cannot be parsed.
const InvalidDate = "Invalid date"

// Coords is a (longitude, latitude) pair in degrees.
type Coords struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether c is a finite coordinate inside the geographic domain.
func (c Coords) Valid() bool {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Event is one observed attack. Events are treated as immutable once built.
type Event struct {
	ID            string   `json:"id"`
	Type          Type     `json:"type"`
	OriginCountry string   `json:"origin_country"`
	TargetCountry string   `json:"target_country"`
	OriginCoords  *Coords  `json:"origin_coords,omitempty"`
	TargetCoords  *Coords  `json:"target_coords,omitempty"`
	Datetime      string   `json:"datetime"`
	Protocol      Protocol `json:"proto"`
	SourcePort    int      `json:"spt"`
	DestPort      int      `json:"dpt"`
	Host          string   `json:"host"`

	SourceIP    string  `json:"src,omitempty"`
	ISP         string  `json:"srcstr,omitempty"`
	CountryCode string  `json:"cc,omitempty"`
	Locale      string  `json:"locale,omitempty"`
	LocaleAbbr  string  `json:"localeabbr,omitempty"`
	PostalCode  string  `json:"postalcode,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// Time parses Datetime. ok is false when the timestamp is missing or malformed.
func (e Event) Time() (t time.Time, ok bool) {
	if e.Datetime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(TimeLayout, e.Datetime)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, e.Datetime)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

// FormatTime renders the event time with layout, or InvalidDate.
func (e Event) FormatTime(layout string) string {
	t, ok := e.Time()
	if !ok {
		return InvalidDate
	}
	return t.Format(layout)
}

// Matches reports whether the event passes an attack-type filter.
func (e Event) Matches(filter string) bool {
	return filter == "" || filter == FilterAll || string(e.Type) == filter
}

// ValidFilter reports whether filter is FilterAll or a known attack type.
func ValidFilter(filter string) bool {
	if filter == FilterAll {
		return true
	}
	for _, t := range Types {
		if string(t) == filter {
			return true
		}
	}
	return false
}

var (
	ColorDefault = color.RGBA{0x5A, 0xC8, 0xFA, 0xFF}

	typeColors = map[Type]color.RGBA{
		DDoS:               {0xFF, 0x95, 0x00, 0xFF},
		Phishing:           {0xFF, 0x3B, 0x30, 0xFF},
		Malware:            {0xAF, 0x52, 0xDE, 0xFF},
		Ransomware:         {0xFF, 0x2D, 0x55, 0xFF},
		SQLi:               {0x34, 0xC7, 0x59, 0xFF},
		XSS:                {0x00, 0x7A, 0xFF, 0xFF},
		BruteForce:         {0xFF, 0xCC, 0x00, 0xFF},
		ZeroDay:            {0x58, 0x56, 0xD6, 0xFF},
		ManInTheMiddle:     {0xFF, 0x3B, 0x30, 0xFF},
		CredentialStuffing: {0x5A, 0xC8, 0xFA, 0xFF},
	}
)

// Color returns the trace colour for an attack type.
func Color(t Type) color.RGBA {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return ColorDefault
}
