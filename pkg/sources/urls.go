// Package sources lists the remote assets the dashboard can download.
package sources

// BaseMapURL is a GeoJSON feature collection of country polygons.
const BaseMapURL = "https://raw.githubusercontent.com/datasets/geo-countries/master/data/countries.geojson"
