package index

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
		"can", "do", "does", "for", "from", "had", "has", "have", "he",
		"her", "his", "how", "i", "if", "in", "into", "is", "it", "its",
		"may", "more", "most", "no", "not", "of", "on", "or", "our",
		"she", "so", "such", "than", "that", "the", "their", "them",
		"then", "there", "these", "they", "this", "to", "was", "we",
		"were", "what", "when", "where", "which", "while", "who", "will",
		"with", "you", "your",
	} {
		stopwords[w] = struct{}{}
	}
}

func isStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
