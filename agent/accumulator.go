package agent

import "github.com/gliderlab/planact/pkg/llm"

// ToolCallAccumulator merges streamed tool-call fragments into records
type ToolCallAccumulator struct {
	records []ToolCallRecord
}

// Add merges fragments in arrival order. An index beyond the current length
// starts a new record; otherwise the name is replaced only when the fragment
// carries one and arguments are always appended.
func (a *ToolCallAccumulator) Add(fragments ...llm.ToolCallFragment) {
	for _, f := range fragments {
		if f.Index < 0 || f.Index >= len(a.records) {
			a.records = append(a.records, ToolCallRecord{
				ID:        f.ID,
				Name:      f.Name,
				Arguments: f.ArgumentsDelta,
			})
			continue
		}
		rec := &a.records[f.Index]
		if f.Name != "" {
			rec.Name = f.Name
		}
		if rec.ID == "" && f.ID != "" {
			rec.ID = f.ID
		}
		rec.Arguments += f.ArgumentsDelta
	}
}

// Records returns a copy of the accumulated records
func (a *ToolCallAccumulator) Records() []ToolCallRecord {
	out := make([]ToolCallRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Len returns the number of records
func (a *ToolCallAccumulator) Len() int { return len(a.records) }

// Reset drops all records
func (a *ToolCallAccumulator) Reset() { a.records = nil }
