// Package reducer applies realtime events to in-memory flight collections.
//
// Every function here is pure: inputs are never modified and the result is
// a fresh value. Views own the state and call into this package under their
// own lock.
package reducer

import "github.com/Domenick1991/airdash/internal/domain"

// Board holds one list per bucket a flight can be routed to by status.
type Board struct {
	Pending    []domain.Flight `json:"pending"`
	Upcoming   []domain.Flight `json:"upcoming"`
	InProgress []domain.Flight `json:"in_progress"`
	Finished   []domain.Flight `json:"finished"`
}

func (b Board) Bucket(bk domain.Bucket) []domain.Flight {
	switch bk {
	case domain.BucketPending:
		return b.Pending
	case domain.BucketUpcoming:
		return b.Upcoming
	case domain.BucketInProgress:
		return b.InProgress
	case domain.BucketFinished:
		return b.Finished
	}
	return nil
}

// With returns a copy of b with bucket bk replaced by flights.
func (b Board) With(bk domain.Bucket, flights []domain.Flight) Board {
	list := append([]domain.Flight{}, flights...)
	switch bk {
	case domain.BucketPending:
		b.Pending = list
	case domain.BucketUpcoming:
		b.Upcoming = list
	case domain.BucketInProgress:
		b.InProgress = list
	case domain.BucketFinished:
		b.Finished = list
	}
	return b
}

// Locate returns the copy of a flight held in any bucket.
func (b Board) Locate(id int64) (domain.Flight, domain.Bucket, bool) {
	for _, bk := range domain.BoardBuckets {
		if i := indexOf(b.Bucket(bk), id); i >= 0 {
			return b.Bucket(bk)[i], bk, true
		}
	}
	return domain.Flight{}, "", false
}

// Count returns how many buckets hold flight id.
func (b Board) Count(id int64) int {
	n := 0
	for _, bk := range domain.BoardBuckets {
		for _, f := range b.Bucket(bk) {
			if f.ID == id {
				n++
			}
		}
	}
	return n
}

// RemoveFlightFromAll drops id from every bucket.
func RemoveFlightFromAll(b Board, id int64) Board {
	return Board{
		Pending:    without(b.Pending, id),
		Upcoming:   without(b.Upcoming, id),
		InProgress: without(b.InProgress, id),
		Finished:   without(b.Finished, id),
	}
}

// Route removes f from every bucket and prepends it to the bucket its
// status maps to. Flights whose status maps to no bucket end up nowhere.
func Route(b Board, f domain.Flight) Board {
	b = RemoveFlightFromAll(b, f.ID)
	bk, ok := f.Status.Bucket()
	if !ok {
		return b
	}
	return b.With(bk, Prepend(b.Bucket(bk), f))
}

func Prepend(list []domain.Flight, f domain.Flight) []domain.Flight {
	out := make([]domain.Flight, 0, len(list)+1)
	out = append(out, f)
	return append(out, list...)
}

// Upsert replaces the entry with f's id in place, or prepends f.
func Upsert(list []domain.Flight, f domain.Flight) []domain.Flight {
	if i := indexOf(list, f.ID); i >= 0 {
		out := append([]domain.Flight{}, list...)
		out[i] = f
		return out
	}
	return Prepend(list, f)
}

// InsertIfAbsent prepends f unless its id is already present.
func InsertIfAbsent(list []domain.Flight, f domain.Flight) ([]domain.Flight, bool) {
	if indexOf(list, f.ID) >= 0 {
		return list, false
	}
	return Prepend(list, f), true
}

// ReplaceIfPresent swaps in f where its id is found; otherwise list is
// returned unchanged.
func ReplaceIfPresent(list []domain.Flight, f domain.Flight) ([]domain.Flight, bool) {
	i := indexOf(list, f.ID)
	if i < 0 {
		return list, false
	}
	out := append([]domain.Flight{}, list...)
	out[i] = f
	return out, true
}

func without(list []domain.Flight, id int64) []domain.Flight {
	out := make([]domain.Flight, 0, len(list))
	for _, f := range list {
		if f.ID != id {
			out = append(out, f)
		}
	}
	return out
}

func indexOf(list []domain.Flight, id int64) int {
	for i, f := range list {
		if f.ID == id {
			return i
		}
	}
	return -1
}
