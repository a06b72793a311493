package records

import "github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"

// Reconcile merges list results fetched independently, for example a stale
// flagged page and a fresh approved page. Each record appears once, as its
// most recently updated copy, in order of first appearance.
func Reconcile(lists ...[]models.Record) []models.Record {
	out := []models.Record{}
	index := make(map[string]int)

	for _, list := range lists {
		for _, rec := range list {
			key := rec.ID
			if key == "" {
				key = rec.RecordID
			}

			i, seen := index[key]
			if !seen {
				index[key] = len(out)
				out = append(out, rec)
				continue
			}
			if rec.UpdatedAt.After(out[i].UpdatedAt) {
				out[i] = rec
			}
		}
	}
	return out
}

// FilterByStatus drops records whose status is not in statuses. An empty
// statuses list keeps everything.
func FilterByStatus(recs []models.Record, statuses ...models.Status) []models.Record {
	if len(statuses) == 0 {
		return recs
	}
	out := make([]models.Record, 0, len(recs))
	for _, rec := range recs {
		for _, s := range statuses {
			if rec.Status == s {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
