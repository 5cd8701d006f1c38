package periods

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/domain/orders"
)

type Granularity string

const (
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
)

func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month", "monthly":
		return Month, nil
	case "quarter", "quarterly":
		return Quarter, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// Key is the canonical string form of a calendar bucket: "2025-01" for months,
// "2025-Q1" for quarters.
type Key string

func KeyFor(t time.Time, g Granularity) Key {
	switch g {
	case Quarter:
		q := (int(t.Month()) + 2) / 3
		return Key(fmt.Sprintf("%04d-Q%d", t.Year(), q))
	default:
		return Key(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
	}
}

// Parse returns the year and bucket index (month 1-12 or quarter 1-4).
func (k Key) Parse() (year int, bucket int, err error) {
	s := string(k)
	if len(s) < 6 || s[4] != '-' {
		return 0, 0, fmt.Errorf("malformed period key %q", s)
	}
	year, err = strconv.Atoi(s[:4])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed period key %q", s)
	}
	rest := s[5:]
	if strings.HasPrefix(rest, "Q") {
		bucket, err = strconv.Atoi(rest[1:])
		if err != nil || bucket < 1 || bucket > 4 {
			return 0, 0, fmt.Errorf("malformed quarter key %q", s)
		}
		return year, bucket, nil
	}
	bucket, err = strconv.Atoi(rest)
	if err != nil || bucket < 1 || bucket > 12 {
		return 0, 0, fmt.Errorf("malformed month key %q", s)
	}
	return year, bucket, nil
}

// Before orders keys chronologically within one granularity. Malformed keys
// sort last.
func (k Key) Before(other Key) bool {
	y1, b1, err1 := k.Parse()
	y2, b2, err2 := other.Parse()
	if err1 != nil || err2 != nil {
		return err1 == nil
	}
	if y1 != y2 {
		return y1 < y2
	}
	return b1 < b2
}

// OfficialShare is one official's presence in a bucket, ordered by that
// official's earliest order inside the bucket.
type OfficialShare struct {
	OfficialID   uuid.UUID
	OfficialName string
	Count        int

	earliest time.Time
}

// Bucket is a calendar-aligned grouping of orders, independent of any term.
type Bucket struct {
	Key         Key
	Granularity Granularity
	Orders      []orders.Order
	Officials   []OfficialShare
}

// Transition reports whether the bucket spans more than one issuing official.
func (b Bucket) Transition() bool { return len(b.Officials) > 1 }

// Bucketize groups orders into calendar buckets, most recent first. Official
// ordering inside a bucket is deterministic: ascending by the official's
// earliest order timestamp, so the outgoing official comes first in a
// transition bucket.
func Bucketize(ords []orders.Order, g Granularity) []Bucket {
	byKey := map[Key][]orders.Order{}
	for _, o := range ords {
		k := KeyFor(o.SignedAt, g)
		byKey[k] = append(byKey[k], o)
	}

	out := make([]Bucket, 0, len(byKey))
	for k, group := range byKey {
		sort.Slice(group, func(i, j int) bool { return group[i].SignedAt.Before(group[j].SignedAt) })

		shares := map[uuid.UUID]*OfficialShare{}
		var order []uuid.UUID
		for _, o := range group {
			s, ok := shares[o.OfficialID]
			if !ok {
				s = &OfficialShare{OfficialID: o.OfficialID, OfficialName: o.OfficialName, earliest: o.SignedAt}
				shares[o.OfficialID] = s
				order = append(order, o.OfficialID)
			}
			s.Count++
		}

		officials := make([]OfficialShare, 0, len(order))
		for _, id := range order {
			officials = append(officials, *shares[id])
		}
		sort.SliceStable(officials, func(i, j int) bool {
			return officials[i].earliest.Before(officials[j].earliest)
		})

		out = append(out, Bucket{Key: k, Granularity: g, Orders: group, Officials: officials})
	}

	sort.Slice(out, func(i, j int) bool { return out[j].Key.Before(out[i].Key) })
	return out
}
