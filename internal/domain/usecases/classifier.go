// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"regexp"
	"strings"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

// Classification is the routing decision for one question.
type Classification struct {
	Kind    entities.QueryKind
	Subject string // "", or one of the subject field names
}

// aggregateIntents are the ordered intent rules that mark a question as an
// aggregate query: complete lists, distinct counts, or dataset summaries.
// Anything that matches none of them is answered by semantic retrieval.
var aggregateIntents = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(list|show|display|enumerate)\s+(all|me|the)?\s*(software|licenses|servers|locations)`),
	regexp.MustCompile(`(?i)\bhow many\s+(unique|different|distinct)?\s*(software|licenses|servers)`),
	regexp.MustCompile(`(?i)\bwhat\s+(software|licenses|servers|locations)\s+(are|do)\s+(available|exist)`),
	regexp.MustCompile(`(?i)\ball\s+(the\s+)?(software|licenses|servers|locations)`),
	regexp.MustCompile(`(?i)\btotal\s+(number\s+of\s+)?(software|licenses|servers)`),
	regexp.MustCompile(`(?i)\bcomplete\s+list`),
	regexp.MustCompile(`(?i)\bunique\s+(software|licenses|servers)`),
}

// subjectPriority resolves the aggregate subject by literal keyword
// presence, first match wins.
var subjectPriority = []string{
	entities.FieldSoftware,
	entities.FieldServer,
	entities.FieldLocation,
	entities.FieldLicense,
}

// Classify maps a question to a query kind and, for aggregate queries, the
// subject field being asked about. Pure and deterministic: identical input
// yields identical output across runs.
func Classify(question string) Classification {
	for _, intent := range aggregateIntents {
		if intent.MatchString(question) {
			lower := strings.ToLower(question)
			for _, subject := range subjectPriority {
				if strings.Contains(lower, subject) {
					return Classification{Kind: entities.QueryAggregate, Subject: subject}
				}
			}
			// Aggregate intent with no recognizable subject: general stats.
			return Classification{Kind: entities.QueryAggregate}
		}
	}
	return Classification{Kind: entities.QuerySemantic}
}
