// Package mockdata synthesises attack events for the dashboard.
package mockdata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/biter777/countries"
	"github.com/google/uuid"

	"github.com/sudorandom/attack-map/pkg/attack"
)

// Country is one entry of the origin/target table.
type Country struct {
	Name   string
	Code   string // ISO 3166-1 alpha-2
	Locale string
	Center attack.Coords
}

// Numeric returns the zero-padded ISO 3166-1 numeric code.
func (c Country) Numeric() string {
	code := countries.ByName(c.Code)
	if code == countries.Unknown {
		return ""
	}
	return fmt.Sprintf("%03d", int(code))
}

// Countries is the fixed table events are drawn from.
var Countries = []Country{
	{"United States", "US", "en_US", attack.Coords{Lon: -95.7129, Lat: 37.0902}},
	{"China", "CN", "zh_CN", attack.Coords{Lon: 104.1954, Lat: 35.8617}},
	{"Russia", "RU", "ru_RU", attack.Coords{Lon: 105.3188, Lat: 61.5240}},
	{"Germany", "DE", "de_DE", attack.Coords{Lon: 10.4515, Lat: 51.1657}},
	{"Brazil", "BR", "pt_BR", attack.Coords{Lon: -51.9253, Lat: -14.2350}},
	{"India", "IN", "hi_IN", attack.Coords{Lon: 78.9629, Lat: 20.5937}},
	{"United Kingdom", "GB", "en_GB", attack.Coords{Lon: -3.4360, Lat: 55.3781}},
	{"France", "FR", "fr_FR", attack.Coords{Lon: 2.2137, Lat: 46.2276}},
	{"Japan", "JP", "ja_JP", attack.Coords{Lon: 138.2529, Lat: 36.2048}},
	{"South Korea", "KR", "ko_KR", attack.Coords{Lon: 127.7669, Lat: 35.9078}},
	{"Australia", "AU", "en_AU", attack.Coords{Lon: 133.7751, Lat: -25.2744}},
	{"Canada", "CA", "en_CA", attack.Coords{Lon: -106.3468, Lat: 56.1304}},
	{"Mexico", "MX", "es_MX", attack.Coords{Lon: -102.5528, Lat: 23.6345}},
	{"Italy", "IT", "it_IT", attack.Coords{Lon: 12.5674, Lat: 41.8719}},
	{"Spain", "ES", "es_ES", attack.Coords{Lon: -3.7492, Lat: 40.4637}},
	{"Turkey", "TR", "tr_TR", attack.Coords{Lon: 35.2433, Lat: 38.9637}},
	{"Netherlands", "NL", "nl_NL", attack.Coords{Lon: 5.2913, Lat: 52.1326}},
	{"Switzerland", "CH", "de_CH", attack.Coords{Lon: 8.2275, Lat: 46.8182}},
	{"Sweden", "SE", "sv_SE", attack.Coords{Lon: 18.6435, Lat: 60.1282}},
	{"Singapore", "SG", "en_SG", attack.Coords{Lon: 103.8198, Lat: 1.3521}},
	{"Israel", "IL", "he_IL", attack.Coords{Lon: 34.8516, Lat: 31.0461}},
	{"Ukraine", "UA", "uk_UA", attack.Coords{Lon: 31.1656, Lat: 48.3794}},
}

type protocolPorts struct {
	proto attack.Protocol
	ports []int
}

var protocols = []protocolPorts{
	{attack.TCP, []int{80, 443, 22, 21, 25, 110, 143, 3389}},
	{attack.UDP, []int{53, 67, 68, 123, 161, 162, 1900, 5353}},
	{attack.HTTP, []int{80, 8080, 8000, 8008}},
	{attack.HTTPS, []int{443, 8443}},
	{attack.DNS, []int{53, 853}},
	{attack.SMTP, []int{25, 465, 587}},
	{attack.SSH, []int{22}},
	{attack.FTP, []int{20, 21}},
	{attack.TELNET, []int{23}},
	{attack.SNMP, []int{161, 162}},
}

// Hosts are the asset names attacks are aimed at.
var Hosts = []string{
	"apache-server", "nginx-01", "db-cluster", "auth-service", "payment-api",
	"web-frontend", "storage-node", "cdn-edge", "mail-relay", "monitoring",
	"fw-01", "lb-prod", "app-server-12", "dev-environment", "test-01",
	"vpn-gateway", "kubernetes-master", "docker-registry", "elastic-search",
	"redis-cache", "mysql-primary", "postgres-replica", "neo4j-db", "cassandra-node",
}

// DefaultStart is used when Generate is given a zero start time.
var DefaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

// PortsFor returns the destination ports used for a protocol.
func PortsFor(p attack.Protocol) []int {
	for _, pp := range protocols {
		if pp.proto == p {
			return pp.ports
		}
	}
	return nil
}

// Generate returns n events with timestamps uniform in [start, end]. Zero
// times fall back to DefaultStart and now, and a reversed range is
// swapped. A nil rng uses a time-seeded source.
func Generate(n int, start, end time.Time, rng *rand.Rand) []attack.Event {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if start.IsZero() {
		start = DefaultStart
	}
	if end.IsZero() {
		end = time.Now()
	}
	if start.After(end) {
		start, end = end, start
	}
	span := end.Sub(start)

	events := make([]attack.Event, 0, max(n, 0))
	for i := 0; i < n; i++ {
		oi := rng.Intn(len(Countries))
		ti := rng.Intn(len(Countries) - 1)
		if ti >= oi {
			ti++
		}
		origin, target := Countries[oi], Countries[ti]

		ts := start
		if span > 0 {
			ts = start.Add(time.Duration(rng.Int63n(int64(span) + 1)))
		}

		pp := protocols[rng.Intn(len(protocols))]
		oc, tc := origin.Center, target.Center
		jittered := jitter(origin.Center, rng)

		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			id = uuid.New()
		}

		events = append(events, attack.Event{
			ID:            id.String(),
			Type:          attack.Types[rng.Intn(len(attack.Types))],
			OriginCountry: origin.Name,
			TargetCountry: target.Name,
			OriginCoords:  &oc,
			TargetCoords:  &tc,
			Datetime:      ts.Format(attack.TimeLayout),
			Protocol:      pp.proto,
			SourcePort:    1024 + rng.Intn(64000),
			DestPort:      pp.ports[rng.Intn(len(pp.ports))],
			Host:          Hosts[rng.Intn(len(Hosts))],
			SourceIP:      randomIP(rng),
			ISP:           fmt.Sprintf("%s-ISP-%d", origin.Name, rng.Intn(100)),
			CountryCode:   origin.Numeric(),
			Locale:        origin.Locale,
			LocaleAbbr:    origin.Code,
			PostalCode:    postalCode(origin.Name, rng),
			Latitude:      jittered.Lat,
			Longitude:     jittered.Lon,
		})
	}
	return events
}

// jitter moves c by up to ±5° on each axis.
func jitter(c attack.Coords, rng *rand.Rand) attack.Coords {
	return attack.Coords{
		Lon: c.Lon + (rng.Float64()-0.5)*10,
		Lat: c.Lat + (rng.Float64()-0.5)*10,
	}
}

func randomIP(rng *rand.Rand) string {
	return fmt.Sprintf("%d.%d.%d.%d", rng.Intn(256), rng.Intn(256), rng.Intn(256), rng.Intn(256))
}

func letter(rng *rand.Rand) byte { return byte('A' + rng.Intn(26)) }

func postalCode(country string, rng *rand.Rand) string {
	switch country {
	case "Canada":
		return fmt.Sprintf("%c%d%c %d%c%d", letter(rng), rng.Intn(10), letter(rng), rng.Intn(10), letter(rng), rng.Intn(10))
	case "United Kingdom":
		return fmt.Sprintf("%c%c%d %d%c%c", letter(rng), letter(rng), rng.Intn(10), rng.Intn(10), letter(rng), letter(rng))
	default:
		return fmt.Sprintf("%d", 10000+rng.Intn(90000))
	}
}

// CountryByName looks up a table entry.
func CountryByName(name string) (Country, bool) {
	for _, c := range Countries {
		if c.Name == name {
			return c, true
		}
	}
	return Country{}, false
}
