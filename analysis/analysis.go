package analysis

import (
	"context"
	"errors"
)

var (
	// ErrStatus is returned when the service answers with a non-2xx status.
	ErrStatus = errors.New("analysis service returned an error status")
	// ErrMalformed is returned when the response body cannot be understood.
	ErrMalformed = errors.New("malformed analysis response")
	// ErrRejected is returned when the service reports a failure in the body.
	ErrRejected = errors.New("analysis rejected by service")
)

// Analyzer submits one recording for analysis.
type Analyzer interface {
	// Submit sends audio in exactly one request and blocks until a result,
	// an error or the end of ctx.
	Submit(ctx context.Context, audio []byte) (*Result, error)
}

// Word is one recognised word with its offsets in seconds.
type Word struct {
	Word      string  `json:"word"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Result is the outcome of a successful analysis.
type Result struct {
	Transcript     string
	FluencyScore   float64
	WordsPerMinute float64

	WordCount       int
	Words           []Word
	AverageWordTime float64
	FillerRate      float64
	PauseFrequency  float64
	LongPauses      int
}
