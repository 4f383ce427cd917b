package token

import (
	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used when none is specified.
const DefaultEncoding = "cl100k_base"

// TiktokenEstimator counts tokens with a real BPE encoding. It satisfies
// Estimator so it can replace the heuristic wherever exact counts matter,
// at the cost of loading the encoding tables.
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the named encoding (DefaultEncoding if empty).
func NewTiktokenEstimator(name string) (*TiktokenEstimator, error) {
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, errors.Wrapf(err, "load tiktoken encoding %q", name)
	}
	return &TiktokenEstimator{encoding: enc}, nil
}

// Estimate returns the exact token count under the loaded encoding.
func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.encoding.Encode(text, nil, nil))
}
