package search

import (
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// Digest summarizes one member of an Aggregate.
type Digest struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Date      time.Time `json:"date"`
	CreatedBy *string   `json:"created_by,omitempty"`
}

// Aggregate is a cluster of entries sharing one (address, job number)
// identity. Members are newest first; Contributors are unique by id, in the
// order first seen while walking members newest first. ID is an opaque,
// URL-safe form of Key.
type Aggregate struct {
	ID           string        `json:"id"`
	Key          string        `json:"key"`
	Address      string        `json:"address"`
	JobNumber    *string       `json:"job_number,omitempty"`
	Members      []Digest      `json:"members"`
	Contributors []Contributor `json:"contributors"`
}

// Count is the number of clustered members.
func (a Aggregate) Count() int { return len(a.Members) }

// Newest returns the date of the newest member (zero when empty).
func (a Aggregate) Newest() time.Time {
	if len(a.Members) == 0 {
		return time.Time{}
	}
	return a.Members[0].Date
}

// GroupKey is the aggregate identity for an address and optional job number.
// A nil job number and an empty one produce the same key.
func GroupKey(address string, jobNumber *string) string {
	num := ""
	if jobNumber != nil {
		num = *jobNumber
	}
	return strings.ToLower(strings.TrimSpace(address)) + "|#" + strings.ToLower(strings.TrimSpace(num))
}

// AggregateID derives the public id of the aggregate with the given
// GroupKey. Addresses may contain "/" or "#", so the key is hashed.
func AggregateID(key string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return "agg-" + strconv.FormatUint(h.Sum64(), 16)
}

// Aggregate groups entries by GroupKey and returns the clusters in rank
// order. The input is not modified.
func (r *Ranker) Aggregate(entries []IndexEntry, dir Directory) []Aggregate {
	if len(entries) == 0 {
		return []Aggregate{}
	}

	groups := make(map[string][]IndexEntry)
	order := make([]string, 0)
	for _, e := range entries {
		k := GroupKey(e.Address, e.JobNumber)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	out := make([]Aggregate, 0, len(order))
	for _, k := range order {
		members := groups[k]
		r.SortEntries(members)

		rep := members[0]
		agg := Aggregate{
			ID:           AggregateID(k),
			Key:          k,
			Address:      rep.Address,
			JobNumber:    cloneString(rep.JobNumber),
			Members:      make([]Digest, 0, len(members)),
			Contributors: make([]Contributor, 0, 1),
		}

		seenMember := make(map[string]struct{}, len(members))
		seenCreator := make(map[string]struct{}, len(members))
		for _, m := range members {
			if _, dup := seenMember[m.ID]; dup {
				continue
			}
			seenMember[m.ID] = struct{}{}
			agg.Members = append(agg.Members, Digest{
				ID:        m.ID,
				Status:    m.Status,
				Date:      m.Date,
				CreatedBy: cloneString(m.CreatedBy),
			})

			c, ok := dir.Lookup(m.CreatedBy)
			if !ok {
				continue
			}
			key := strings.TrimSpace(*m.CreatedBy)
			if _, dup := seenCreator[key]; dup {
				continue
			}
			seenCreator[key] = struct{}{}
			if c.ID == "" {
				c.ID = key
			}
			agg.Contributors = append(agg.Contributors, c)
		}
		out = append(out, agg)
	}

	r.SortAggregates(out)
	return out
}

// AggregateEntries groups entries using English collation for ordering.
func AggregateEntries(entries []IndexEntry, dir Directory) []Aggregate {
	return defaultRanker().Aggregate(entries, dir)
}
