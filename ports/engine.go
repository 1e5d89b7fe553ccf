package ports

import (
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
)

// EnginePort answers the two engine contracts. Implementations are pure and
// safe for concurrent use.
type EnginePort interface {
	Reduce(req contracts.ReduceRequest) contracts.ReduceResponse
	Reconstruct(req contracts.ReconstructRequest) contracts.ReconstructResponse
}

// RawEnginePort accepts unnormalized tokens.
type RawEnginePort interface {
	ReduceRaw(req contracts.RawReduceRequest) contracts.ReduceResponse
	ReconstructRaw(req contracts.RawReconstructRequest) contracts.ReconstructResponse
}

// SeriesReaderPort loads raw timestamp and value tokens from a source.
type SeriesReaderPort interface {
	ReadColumns(timeColumn, valueColumn string) (timestamps, values []any, err error)
}
