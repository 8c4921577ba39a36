package model

import (
	"fmt"
	"strings"
)

// OptionKind is call or put.
type OptionKind string

const (
	Call OptionKind = "call"
	Put  OptionKind = "put"
)

// ParseOptionKind accepts "call"/"put" in any case.
func ParseOptionKind(s string) (OptionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call":
		return Call, nil
	case "put":
		return Put, nil
	default:
		return "", fmt.Errorf("unknown option type %q", s)
	}
}

// OptionQuote is a single contract quote as reported by the chain provider.
type OptionQuote struct {
	ContractID        string
	Symbol            string
	Expiration        Date
	Strike            float64
	Kind              OptionKind
	ObservationDate   Date
	LastPrice         float64
	ImpliedVolatility float64
}

// SelectedContract is the quote chosen for one anchor date.
type SelectedContract struct {
	AnchorDate        Date
	ContractID        string
	Symbol            string
	Kind              OptionKind
	Expiration        Date
	Strike            float64
	ObservationDate   Date
	LastPrice         float64
	ImpliedVolatility float64
}

// Select tags the quote with the anchor date that produced it.
func (q OptionQuote) Select(anchor Date) SelectedContract {
	return SelectedContract{
		AnchorDate:        anchor,
		ContractID:        q.ContractID,
		Symbol:            q.Symbol,
		Kind:              q.Kind,
		Expiration:        q.Expiration,
		Strike:            q.Strike,
		ObservationDate:   q.ObservationDate,
		LastPrice:         q.LastPrice,
		ImpliedVolatility: q.ImpliedVolatility,
	}
}
