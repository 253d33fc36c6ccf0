package text

import (
	"bytes"
)

const (
	prefixUnchanged = "  "
	prefixAdded     = "+ "
	prefixRemoved   = "- "
)

type LineDiff struct{}

func NewLineDiff() *LineDiff {
	return &LineDiff{}
}

func (h *LineDiff) Calculate(baseline []byte, target []byte) (*DiffResult, error) {
	beforeLines := h.splitLines(baseline)
	afterLines := h.splitLines(target)

	lcs := h.calculateLCS(beforeLines, afterLines)
	diff, addedCount, removedCount := h.generateDiff(beforeLines, afterLines, lcs)

	totalLines := len(beforeLines) + len(afterLines)

	diffAmount := 0.0
	if totalLines > 0 {
		diffAmount = min(float64(addedCount+removedCount)/float64(totalLines), 1.0)
	}

	return &DiffResult{
		Diff:       diff,
		DiffAmount: diffAmount,
	}, nil
}

func (h *LineDiff) splitLines(data []byte) [][]byte {
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return [][]byte{}
	}
	return bytes.Split(data, []byte("\n"))
}

// calculateLCS fills lcs[i][j] with the LCS length of before[i:] and after[j:].
func (h *LineDiff) calculateLCS(before, after [][]byte) [][]int {
	m, n := len(before), len(after)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}

	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if bytes.Equal(before[i], after[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	return lcs
}

func (h *LineDiff) generateDiff(before, after [][]byte, lcs [][]int) ([]byte, int, int) {
	var result bytes.Buffer
	addedCount := 0
	removedCount := 0

	writeLine := func(prefix string, line []byte) {
		if result.Len() > 0 {
			result.WriteByte('\n')
		}
		result.WriteString(prefix)
		result.Write(line)
	}

	i, j := 0, 0
	for i < len(before) || j < len(after) {
		switch {
		case i < len(before) && j < len(after) && bytes.Equal(before[i], after[j]):
			writeLine(prefixUnchanged, before[i])
			i++
			j++
		case i < len(before) && (j == len(after) || lcs[i+1][j] >= lcs[i][j+1]):
			writeLine(prefixRemoved, before[i])
			i++
			removedCount++
		default:
			writeLine(prefixAdded, after[j])
			j++
			addedCount++
		}
	}

	return result.Bytes(), addedCount, removedCount
}
