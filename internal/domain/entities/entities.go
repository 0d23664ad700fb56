// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Record is one row of the license dataset: an opaque mapping of named
// fields. No schema is required beyond the few fields the aggregate engine
// and prompt assembler read by name; missing fields are treated as absent.
type Record map[string]any

// Subject fields the aggregate engine and classifier know by name.
const (
	FieldSoftware = "software"
	FieldServer   = "server"
	FieldLocation = "location"
	FieldLicense  = "license"
)

// numericFields are appended to the embedding text so usage questions can
// match on them.
var numericFields = []string{
	"latest_license_issued",
	"license_day_peak",
	"license_day_average",
	"license_work_peak",
	"license_work_average",
	"percentage_work_peak",
	"percentage_work_average",
}

// Field returns the named field rendered as a string, or "" when the field
// is absent or nil.
func (r Record) Field(name string) string {
	v, ok := r[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Text flattens a record into the summary string used for embedding.
func (r Record) Text() string {
	var parts []string
	for _, k := range []string{FieldSoftware, FieldServer, FieldLocation, FieldLicense} {
		if v := r.Field(k); v != "" {
			parts = append(parts, v)
		}
	}
	for _, k := range numericFields {
		if _, ok := r[k]; ok {
			parts = append(parts, fmt.Sprintf("%s:%s", k, r.Field(k)))
		}
	}
	return strings.Join(parts, " | ")
}

// SearchResult is one retrieved record with its distance to the query
// embedding. Smaller distance means more similar.
type SearchResult struct {
	Record   Record
	Distance float64
}

// IndexState is the lifecycle state of the vector index manager.
type IndexState int

const (
	IndexUninitialized IndexState = iota
	IndexLazyPending
	IndexBuilding
	IndexReady
	IndexRefreshing
)

func (s IndexState) String() string {
	switch s {
	case IndexUninitialized:
		return "uninitialized"
	case IndexLazyPending:
		return "lazy_pending"
	case IndexBuilding:
		return "building"
	case IndexReady:
		return "ready"
	case IndexRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// ConversationTurn is one message in a session's history.
type ConversationTurn struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// QueryKind is the classifier's routing decision.
type QueryKind int

const (
	QuerySemantic QueryKind = iota
	QueryAggregate
)

func (k QueryKind) String() string {
	if k == QueryAggregate {
		return "aggregate"
	}
	return "semantic"
}

// AggregateKind identifies the shape of an aggregate result.
type AggregateKind int

const (
	AggregateEmpty AggregateKind = iota // no data loaded yet
	AggregateList                       // distinct values of one subject field
	AggregateStats                      // general statistics
)

// AggregateResult is the outcome of an exact computation over all records.
type AggregateResult struct {
	Kind    AggregateKind
	Subject string   // set for AggregateList
	Count   int      // distinct count for AggregateList
	Items   []string // sorted ascending, original casing

	// General statistics, set for AggregateStats.
	TotalRecords    int
	UniqueSoftware  int
	UniqueServers   int
	UniqueLocations int
}

// ChatResponse is the answer to one submitted question.
type ChatResponse struct {
	Answer       string
	Retrieved    []Record
	SessionTurns int
}

// Status reports index readiness to the request layer.
type Status struct {
	Ready       bool
	RecordCount int
}

// SortedStrings returns a lexicographically sorted copy of values.
func SortedStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
