package vfs

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "then": {}, "this": {},
	"to": {}, "with": {}, "will": {}, "your": {}, "you": {}, "should": {},
	"using": {}, "use": {}, "file": {}, "create": {}, "make": {}, "new": {},
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Tokenize lowercases text, splits on non-alphanumeric runes, and
// drops stopwords and single characters. The result is deduplicated
// but keeps first-seen order.
func Tokenize(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range splitWords(s) {
		if len(w) < 2 || isStopword(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
