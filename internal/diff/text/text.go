package text

type DiffResult struct {
	Diff []byte
	// DiffAmount is the share of changed lines in [0, 1].
	DiffAmount float64
}

type Differ interface {
	Calculate(baseline []byte, target []byte) (*DiffResult, error)
}
