package docindex

import (
	"fmt"
	"strings"
)

// Markdown renders the index as a Markdown listing: one section per owner,
// one subsection per repository, one bullet per component.
func (ix *Index) Markdown(title string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	s := ix.Stats()
	fmt.Fprintf(&b, "%d repositories, %d documented components, %d missing.\n", s.Repositories, s.Documented, s.Missing)

	for _, owner := range ix.Owners() {
		fmt.Fprintf(&b, "\n## %s\n", escape(owner))
		for _, repo := range ix.Repos(owner) {
			fmt.Fprintf(&b, "\n### %s/%s\n\n", escape(owner), escape(repo))
			for _, c := range ix.Components(owner, repo) {
				if c.Outcome.Present {
					fmt.Fprintf(&b, "- [%s](%s)\n", escape(c.Name), c.Outcome.URL)
				} else {
					fmt.Fprintf(&b, "- %s *(missing)*\n", escape(c.Name))
				}
			}
		}
	}
	return b.String()
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`, "`", "\\`")

func escape(s string) string { return mdEscaper.Replace(s) }
