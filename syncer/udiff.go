package syncer

import (
	"fmt"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 3

type diffLine struct {
	op   diffpatch.Operation
	text string
}

// UnifiedDiff renders a line diff of two documents in unified format with
// three lines of context. It returns "" when the documents are equal.
func UnifiedDiff(fromName, toName, from, to string) string {
	if from == to {
		return ""
	}
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToRunes(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), lines)

	var all []diffLine
	for _, d := range diffs {
		for _, l := range splitLines(d.Text) {
			all = append(all, diffLine{op: d.Type, text: l})
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", fromName, toName)

	// Line numbers at the start of all[i], 1-based.
	oldNo := make([]int, len(all)+1)
	newNo := make([]int, len(all)+1)
	oldNo[0], newNo[0] = 1, 1
	for i, l := range all {
		oldNo[i+1], newNo[i+1] = oldNo[i], newNo[i]
		if l.op != diffpatch.DiffInsert {
			oldNo[i+1]++
		}
		if l.op != diffpatch.DiffDelete {
			newNo[i+1]++
		}
	}

	for i := 0; i < len(all); {
		if all[i].op == diffpatch.DiffEqual {
			i++
			continue
		}
		start := max(i-diffContext, 0)
		end := i
		// Extend the hunk while changes are within 2*context of each other.
		for end < len(all) {
			if all[end].op != diffpatch.DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(all) && all[run].op == diffpatch.DiffEqual {
				run++
			}
			if run == len(all) || run-end > 2*diffContext {
				end = min(end+diffContext, len(all))
				break
			}
			end = run
		}

		oldLen, newLen := 0, 0
		for _, l := range all[start:end] {
			if l.op != diffpatch.DiffInsert {
				oldLen++
			}
			if l.op != diffpatch.DiffDelete {
				newLen++
			}
		}
		fmt.Fprintf(&sb, "@@ -%s +%s @@\n", hunkRange(oldNo[start], oldLen), hunkRange(newNo[start], newLen))
		for _, l := range all[start:end] {
			switch l.op {
			case diffpatch.DiffInsert:
				sb.WriteByte('+')
			case diffpatch.DiffDelete:
				sb.WriteByte('-')
			default:
				sb.WriteByte(' ')
			}
			sb.WriteString(l.text)
			sb.WriteByte('\n')
		}
		i = end
	}
	return sb.String()
}

func hunkRange(start, n int) string {
	if n == 0 {
		return fmt.Sprintf("%d,0", start-1)
	}
	if n == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, n)
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}
