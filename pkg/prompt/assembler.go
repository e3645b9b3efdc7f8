// Package prompt builds the bounded generation context handed to the
// responder from a role's knowledge base.
package prompt

// KnowledgeReader is the slice of the knowledge store the assembler
// needs: a role's entry contents, newest first.
type KnowledgeReader interface {
	TextByRole(roleID string) []string
}

// Assembler produces a deterministic, budgeted context window. It has no
// side effects; given the same knowledge snapshot it always returns the
// same sequence.
type Assembler struct {
	source KnowledgeReader
	// budget is the maximum total context size in bytes; 0 means
	// unlimited.
	budget int
}

// New returns an assembler reading from source with the given byte
// budget.
func New(source KnowledgeReader, budgetBytes int) *Assembler {
	return &Assembler{source: source, budget: budgetBytes}
}

// Assemble returns the role's knowledge contents newest-first, truncated
// to the byte budget. Entries are kept whole: the first entry that would
// cross the budget is dropped along with everything older than it.
func (a *Assembler) Assemble(roleID string) []string {
	entries := a.source.TextByRole(roleID)
	if a.budget <= 0 {
		return entries
	}
	var out []string
	total := 0
	for _, e := range entries {
		if total+len(e) > a.budget {
			break
		}
		total += len(e)
		out = append(out, e)
	}
	return out
}
