package semdict

// seedGroups are well-known synonym groups across common technical domains.
// Every pair within a group is seeded symmetrically at confidence 1.0 and is
// never evicted.
var seedGroups = [][]string{
	// AI / ML
	{"machine learning", "ml"},
	{"artificial intelligence", "ai"},
	{"deep learning", "neural networks", "neural network"},
	{"natural language processing", "nlp"},
	{"large language model", "llm", "large language models"},
	{"computer vision", "cv"},

	// Web
	{"javascript", "js", "ecmascript"},
	{"typescript", "ts"},
	{"node", "nodejs", "node.js"},
	{"react", "reactjs", "react.js"},
	{"vue", "vuejs", "vue.js"},
	{"rest", "rest api", "restful"},
	{"graphql", "gql"},

	// Databases
	{"postgresql", "postgres", "pg"},
	{"mysql", "mariadb"},
	{"mongodb", "mongo"},
	{"elasticsearch", "elastic", "es"},
	{"redis", "valkey"},
	{"sqlite", "sqlite3"},

	// Cloud / DevOps
	{"kubernetes", "k8s"},
	{"docker", "containers", "containerization"},
	{"amazon web services", "aws"},
	{"google cloud platform", "gcp", "google cloud"},
	{"continuous integration", "ci", "ci/cd"},
	{"infrastructure as code", "iac", "terraform"},

	// Languages
	{"golang", "go"},
	{"python", "py"},
	{"c#", "csharp", "dotnet", ".net"},
	{"rust", "rustlang"},
}

func (d *Dictionary) applySeeds() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, group := range seedGroups {
		for _, a := range group {
			for _, b := range group {
				if a == b {
					continue
				}
				d.putLocked(normalize(a), Synonym{
					Name:       normalize(b),
					Confidence: 1.0,
					Source:     SourceSeed,
				})
			}
		}
	}
}
