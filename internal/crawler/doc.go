// Package crawler implements the place-search extraction pipeline: results
// frame acquisition, stale-safe list pagination, detail and menu parsing,
// and the filter/dedup accumulator that turns them into store records.
package crawler
