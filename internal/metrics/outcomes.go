package metrics

import "sort"

// OutcomeBucket is the count of one outcome for one subject.
type OutcomeBucket struct {
	Subject string
	Outcome string
	Count   int
}

// FlattenOutcomes turns per-subject outcome counts into rows sorted by
// descending count, then subject and outcome for stability.
func FlattenOutcomes(subjects []SubjectStats) []OutcomeBucket {
	var rows []OutcomeBucket
	for _, s := range subjects {
		for outcome, count := range s.Outcomes {
			rows = append(rows, OutcomeBucket{Subject: s.Name, Outcome: outcome, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			if rows[i].Subject == rows[j].Subject {
				return rows[i].Outcome < rows[j].Outcome
			}
			return rows[i].Subject < rows[j].Subject
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
