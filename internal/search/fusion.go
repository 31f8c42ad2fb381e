package search

import (
	"sort"

	"github.com/kapillamba4/codememory/internal/store"
)

// hybridHit is one fused result of a BM25+vector search, before it is resolved against the
// store into a caller-facing record.
type hybridHit struct {
	id          int64
	score       float64
	bm25Rank    int // 1-indexed, 0 if absent
	vecRank     int // 1-indexed, 0 if absent
	confidence  float64
	matchReason MatchReason
}

// fuse combines independently-ranked BM25 and vector result lists with reciprocal rank fusion
// (k=DefaultRRFConstant), then assigns each hit a normalized confidence and match reason, and
// returns the top n hits sorted by descending fused score.
func fuse(bm25 []store.BM25Row, vec []store.VectorRow, n int) []*hybridHit {
	const k = DefaultRRFConstant

	hits := make(map[int64]*hybridHit)
	get := func(id int64) *hybridHit {
		h, ok := hits[id]
		if !ok {
			h = &hybridHit{id: id}
			hits[id] = h
		}
		return h
	}

	for i, r := range bm25 {
		h := get(r.ID)
		h.bm25Rank = i + 1
		h.score += 1.0 / float64(k+i+1)
	}
	for i, r := range vec {
		h := get(r.ID)
		h.vecRank = i + 1
		h.score += 1.0 / float64(k+i+1)
	}

	maxHybrid := 2.0 / float64(k+1)
	maxSingle := 1.0 / float64(k+1)

	out := make([]*hybridHit, 0, len(hits))
	for _, h := range hits {
		switch {
		case h.bm25Rank > 0 && h.vecRank > 0:
			h.matchReason = MatchHybrid
			h.confidence = h.score / maxHybrid
		case h.bm25Rank > 0:
			h.matchReason = MatchBM25
			h.confidence = min(h.score/maxSingle, singleSourceConfidenceCap)
		default:
			h.matchReason = MatchVector
			h.confidence = min(h.score/maxSingle, singleSourceConfidenceCap)
		}
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
