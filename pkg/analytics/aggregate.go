// Package analytics aggregates attack events for the charts, the attack
// table and the country detail view.
package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
)

// Bucket is one labelled count.
type Bucket struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Point is one day of a time series.
type Point struct {
	Date  time.Time `json:"date"`
	Value int       `json:"value"`
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// counter counts labels and remembers first-seen order for stable output.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(label string) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label]++
}

func (c *counter) buckets() []Bucket {
	out := make([]Bucket, 0, len(c.order))
	for _, l := range c.order {
		out = append(out, Bucket{Label: l, Value: c.counts[l]})
	}
	return out
}

// topN sorts by descending count, first-seen order breaking ties, and keeps n.
func topN(b []Bucket, n int) []Bucket {
	sort.SliceStable(b, func(i, j int) bool { return b[i].Value > b[j].Value })
	if n > 0 && len(b) > n {
		b = b[:n]
	}
	return b
}

func countBy(events []attack.Event, key func(attack.Event) (string, bool)) []Bucket {
	c := newCounter()
	for _, ev := range events {
		if k, ok := key(ev); ok {
			c.add(k)
		}
	}
	return c.buckets()
}

// ByMonth counts events per calendar month, in month order. Events with an
// invalid timestamp are left out.
func ByMonth(events []attack.Event) []Bucket {
	var counts [12]int
	for _, ev := range events {
		if t, ok := ev.Time(); ok {
			counts[t.Month()-1]++
		}
	}
	var out []Bucket
	for i, n := range counts {
		if n > 0 {
			out = append(out, Bucket{Label: monthNames[i], Value: n})
		}
	}
	return out
}

// ByCountry returns the 15 most targeted countries.
func ByCountry(events []attack.Event) []Bucket {
	return topN(countBy(events, func(ev attack.Event) (string, bool) {
		return ev.TargetCountry, true
	}), 15)
}

// ByHour counts events per hour of day. All 24 hours are present.
func ByHour(events []attack.Event) []Bucket {
	var counts [24]int
	for _, ev := range events {
		if t, ok := ev.Time(); ok {
			counts[t.Hour()]++
		}
	}
	out := make([]Bucket, 24)
	for h := range out {
		out[h] = Bucket{Label: fmt.Sprintf("%02d:00", h), Value: counts[h]}
	}
	return out
}

// ByProtocol counts events per protocol in first-seen order.
func ByProtocol(events []attack.Event) []Bucket {
	return countBy(events, func(ev attack.Event) (string, bool) {
		return string(ev.Protocol), true
	})
}

// ByHost returns the 10 most attacked hosts.
func ByHost(events []attack.Event) []Bucket {
	return topN(countBy(events, func(ev attack.Event) (string, bool) {
		return ev.Host, true
	}), 10)
}

// ByType counts events per attack type in first-seen order.
func ByType(events []attack.Event) []Bucket {
	return countBy(events, func(ev attack.Event) (string, bool) {
		return string(ev.Type), true
	})
}

// ByPort returns the 10 most common destination ports.
func ByPort(events []attack.Event) []Bucket {
	return topN(countBy(events, func(ev attack.Event) (string, bool) {
		return strconv.Itoa(ev.DestPort), true
	}), 10)
}

// BySource returns the 10 most active source addresses.
func BySource(events []attack.Event) []Bucket {
	return topN(countBy(events, func(ev attack.Event) (string, bool) {
		return ev.SourceIP, ev.SourceIP != ""
	}), 10)
}

// ByYearMonth counts events per "YYYY-MM", sorted by label.
func ByYearMonth(events []attack.Event) []Bucket {
	b := countBy(events, func(ev attack.Event) (string, bool) {
		t, ok := ev.Time()
		if !ok {
			return "", false
		}
		return t.Format("2006-01"), true
	})
	sort.Slice(b, func(i, j int) bool { return b[i].Label < b[j].Label })
	return b
}

// TimeSeries counts events per UTC day in [start, end]. Every day in the
// range is present, zero-filled.
func TimeSeries(events []attack.Event, start, end time.Time) []Point {
	if start.After(end) {
		return nil
	}
	day := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	index := make(map[time.Time]int)
	var out []Point
	for d := day(start); !d.After(day(end)); d = d.AddDate(0, 0, 1) {
		index[d] = len(out)
		out = append(out, Point{Date: d})
	}
	for _, ev := range events {
		t, ok := ev.Time()
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		if i, ok := index[day(t)]; ok {
			out[i].Value++
		}
	}
	return out
}

// FilterByDate keeps events whose time falls in [start, end].
func FilterByDate(events []attack.Event, start, end time.Time) []attack.Event {
	var out []attack.Event
	for _, ev := range events {
		t, ok := ev.Time()
		if ok && !t.Before(start) && !t.After(end) {
			out = append(out, ev)
		}
	}
	return out
}

// Aggregations maps an aggregate name to the function computing it.
var Aggregations = map[string]func([]attack.Event) []Bucket{
	"month":     ByMonth,
	"country":   ByCountry,
	"hour":      ByHour,
	"protocol":  ByProtocol,
	"host":      ByHost,
	"type":      ByType,
	"port":      ByPort,
	"source":    BySource,
	"yearmonth": ByYearMonth,
}

// Total sums bucket values.
func Total(b []Bucket) int {
	n := 0
	for _, x := range b {
		n += x.Value
	}
	return n
}
