package model

import "time"

// Estimate is an optional volatility value.
type Estimate struct {
	Value   float64
	Defined bool
}

// VolatilitySeries is index-aligned with the price series it was computed from.
type VolatilitySeries []Estimate

// Defined reports how many positions carry a value.
func (s VolatilitySeries) Defined() int {
	n := 0
	for _, e := range s {
		if e.Defined {
			n++
		}
	}
	return n
}

// AccuracySample is the signed prediction error (actual move - expected move) at an anchor date.
type AccuracySample struct {
	Date  Date
	Error float64
}

// AccuracySeries is a named sequence of samples handed to sinks (renderer, exporter).
type AccuracySeries struct {
	Name    string
	Samples []AccuracySample
}

// Stat is an optional aggregate.
type Stat struct {
	Value   float64
	Defined bool
}

// Report is the output of one analysis run.
type Report struct {
	RunID        string
	Symbol       string
	From         Date
	To           Date
	PricePoints  int
	RequestsMade int
	MaxRequests  int
	Contracts    []SelectedContract
	IV           []AccuracySample
	HVFull       []AccuracySample
	HV           []AccuracySample // HVFull restricted to the dates present in IV
	IVMAE        Stat
	HVMAE        Stat
	Correlation  Stat
	GeneratedAt  time.Time
}
