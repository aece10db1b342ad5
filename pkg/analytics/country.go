package analytics

import (
	"strconv"

	"github.com/sudorandom/attack-map/pkg/attack"
)

// CountryDetail summarises the attacks a country sent or received.
type CountryDetail struct {
	Name      string   `json:"name"`
	Incoming  int      `json:"incoming"`
	Outgoing  int      `json:"outgoing"`
	Total     int      `json:"total"`
	Types     []Bucket `json:"types"`
	Protocols []Bucket `json:"protocols"`
	TopPorts  []Bucket `json:"topPorts"`
}

// Empty reports whether there is nothing to show.
func (d CountryDetail) Empty() bool {
	return d.Name == "" || d.Total == 0
}

// DetailFor builds the detail for name. An empty name yields an empty
// detail.
func DetailFor(events []attack.Event, name string) CountryDetail {
	d := CountryDetail{Name: name}
	if name == "" {
		return d
	}
	types, protos, ports := newCounter(), newCounter(), newCounter()
	for _, ev := range events {
		in := ev.TargetCountry == name
		out := ev.OriginCountry == name
		if !in && !out {
			continue
		}
		if in {
			d.Incoming++
		}
		if out {
			d.Outgoing++
		}
		d.Total++
		types.add(string(ev.Type))
		protos.add(string(ev.Protocol))
		ports.add(strconv.Itoa(ev.DestPort))
	}
	d.Types = types.buckets()
	d.Protocols = protos.buckets()
	d.TopPorts = topN(ports.buckets(), 5)
	return d
}
