package text

import (
	"bytes"
	"encoding/json"
)

// StructureDiff line-diffs two node structure snapshots. Valid JSON is
// re-indented first so that every property lands on its own line; anything
// else is compared as-is.
type StructureDiff struct {
	lines *LineDiff
}

func NewStructureDiff() *StructureDiff {
	return &StructureDiff{
		lines: NewLineDiff(),
	}
}

func (s *StructureDiff) Calculate(baseline []byte, target []byte) (*DiffResult, error) {
	return s.lines.Calculate(normalize(baseline), normalize(target))
}

func normalize(data []byte) []byte {
	var buffer bytes.Buffer
	if err := json.Indent(&buffer, bytes.TrimSpace(data), "", "  "); err != nil {
		return data
	}
	return buffer.Bytes()
}
