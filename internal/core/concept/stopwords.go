package concept

// stopwords used to filter extracted phrases. A phrase consisting only of
// stopwords is discarded entirely; stopwords inside a kept phrase stay in it.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "any": true, "are": true,
	"as": true, "at": true, "be": true, "but": true, "by": true,
	"for": true, "from": true, "has": true, "have": true, "in": true,
	"is": true, "it": true, "its": true, "may": true, "no": true,
	"not": true, "of": true, "on": true, "or": true, "shall": true,
	"such": true, "that": true, "the": true, "their": true, "this": true,
	"to": true, "under": true, "upon": true, "was": true, "were": true,
	"which": true, "will": true, "with": true,
}

func isStopword(token string) bool {
	return stopwords[token]
}
