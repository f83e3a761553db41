// Package pathmap rewrites library-reported file paths into locally
// resolvable ones using an ordered list of prefix substitution rules.
package pathmap

import (
	"path/filepath"
	"strings"
)

// Rule maps a path fragment as the library service reports it to the
// fragment under which the same file is mounted locally.
type Rule struct {
	Orig  string
	Local string
}

// Translator applies an ordered rule list to reported paths.
type Translator struct {
	rules []Rule
}

// New returns a Translator over the given rules. Rules apply in order,
// each at most once per path.
func New(rules []Rule) *Translator {
	return &Translator{rules: rules}
}

// Translate rewrites a reported path for the local filesystem. For each
// rule, the first occurrence of Orig is replaced with Local; a path
// matching no rule is returned unchanged apart from normalization.
func (t *Translator) Translate(path string) string {
	for _, r := range t.rules {
		path = strings.Replace(path, r.Orig, r.Local, 1)
	}
	return filepath.Clean(path)
}
