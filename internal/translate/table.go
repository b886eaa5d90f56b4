package translate

import (
	"context"
	"fmt"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
)

// PairTable is the set of directed language pairs the translation backend
// can serve. The router consults it before issuing requests so missing
// models degrade routing decisions instead of producing request errors.
//
// A PairTable is immutable after construction and safe for concurrent use.
type PairTable struct {
	pairs map[mt.Pair]bool
}

// NewPairTable builds a table from an explicit pair list.
func NewPairTable(pairs []mt.Pair) *PairTable {
	t := &PairTable{pairs: make(map[mt.Pair]bool, len(pairs))}
	for _, p := range pairs {
		t.pairs[p] = true
	}
	return t
}

// DefaultPairTable returns the pairs covered by the stock model set:
// English paired both ways with Spanish, French, and Chinese. Anything
// else routes through English.
func DefaultPairTable() *PairTable {
	var pairs []mt.Pair
	for _, other := range []string{"es", "fr", "zh"} {
		pairs = append(pairs,
			mt.Pair{Source: "en", Target: other},
			mt.Pair{Source: other, Target: "en"},
		)
	}
	return NewPairTable(pairs)
}

// PairTableFromTranslator queries tr for its served pairs. Use this at
// startup so the table reflects the models the backend actually loaded.
func PairTableFromTranslator(ctx context.Context, tr mt.Translator) (*PairTable, error) {
	pairs, err := tr.Pairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("translate: query served pairs: %w", err)
	}
	return NewPairTable(pairs), nil
}

// Has reports whether the directed pair source->target is served.
func (t *PairTable) Has(source, target string) bool {
	return t.pairs[mt.Pair{Source: source, Target: target}]
}

// Len returns the number of served pairs.
func (t *PairTable) Len() int {
	return len(t.pairs)
}
