package usecases

import (
	"fmt"
	"strings"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

// licenseDisplayLimit caps how many license values the formatter enumerates.
// The reported count stays the true total.
const licenseDisplayLimit = 20

// ComputeAggregate answers an aggregate query exactly, over the full record
// collection. For a named subject it collects the distinct non-empty values
// of that field (original casing, sorted ascending); with no subject it
// computes general statistics. An empty collection yields an explicit
// no-data result, not an error.
func ComputeAggregate(records []entities.Record, subject string) entities.AggregateResult {
	if len(records) == 0 {
		return entities.AggregateResult{Kind: entities.AggregateEmpty}
	}

	if subject != "" {
		items := distinctValues(records, subject)
		return entities.AggregateResult{
			Kind:    entities.AggregateList,
			Subject: subject,
			Count:   len(items),
			Items:   items,
		}
	}

	return entities.AggregateResult{
		Kind:            entities.AggregateStats,
		TotalRecords:    len(records),
		UniqueSoftware:  len(distinctValues(records, entities.FieldSoftware)),
		UniqueServers:   len(distinctValues(records, entities.FieldServer)),
		UniqueLocations: len(distinctValues(records, entities.FieldLocation)),
	}
}

// distinctValues returns the sorted distinct non-empty values of a field.
func distinctValues(records []entities.Record, field string) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if v := r.Field(field); v != "" {
			seen[v] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	return entities.SortedStrings(values)
}

// FormatAggregate renders an aggregate result as deterministic text.
func FormatAggregate(result entities.AggregateResult) string {
	switch result.Kind {
	case entities.AggregateEmpty:
		return "No data loaded yet\n\nThe system is initializing. Please wait a moment and try again."

	case entities.AggregateList:
		var sb strings.Builder
		items := result.Items
		switch result.Subject {
		case entities.FieldSoftware:
			fmt.Fprintf(&sb, "There are %d unique software products in the license data:\n\n", result.Count)
		case entities.FieldServer:
			fmt.Fprintf(&sb, "There are %d unique license servers:\n\n", result.Count)
		case entities.FieldLocation:
			fmt.Fprintf(&sb, "There are %d unique locations:\n\n", result.Count)
		case entities.FieldLicense:
			if len(items) > licenseDisplayLimit {
				fmt.Fprintf(&sb, "There are %d unique licenses in the data (showing first %d):\n\n", result.Count, licenseDisplayLimit)
				items = items[:licenseDisplayLimit]
			} else {
				fmt.Fprintf(&sb, "There are %d unique licenses in the data:\n\n", result.Count)
			}
		default:
			fmt.Fprintf(&sb, "There are %d unique values of %s:\n\n", result.Count, result.Subject)
		}
		for i, item := range items {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
		}
		return strings.TrimRight(sb.String(), "\n")

	case entities.AggregateStats:
		return fmt.Sprintf(
			"Database Statistics:\n- Total Records: %d\n- Unique Software: %d\n- Unique Servers: %d\n- Unique Locations: %d",
			result.TotalRecords, result.UniqueSoftware, result.UniqueServers, result.UniqueLocations,
		)
	}
	return "Unable to format aggregate data."
}
