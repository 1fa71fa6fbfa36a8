package injector

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Change is one inserted or removed run of text between the previous and
// the new element content.
type Change struct {
	Type string `json:"type"` // "added" | "removed"
	Text string `json:"text"`
}

// ChangeSummary describes how an injection altered an element.
type ChangeSummary struct {
	Added   int      `json:"added"`
	Removed int      `json:"removed"`
	Changes []Change `json:"changes,omitempty"`
}

// maxChanges caps the number of chunks kept on a summary.
const maxChanges = 64

// summarize computes a semantic diff between before and after.
func summarize(before, after string) ChangeSummary {
	if before == after {
		return ChangeSummary{}
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var s ChangeSummary
	for _, d := range diffs {
		var typ string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = "added"
			s.Added += len(d.Text)
		case diffmatchpatch.DiffDelete:
			typ = "removed"
			s.Removed += len(d.Text)
		default:
			continue
		}
		if len(s.Changes) < maxChanges {
			s.Changes = append(s.Changes, Change{Type: typ, Text: d.Text})
		}
	}
	return s
}
