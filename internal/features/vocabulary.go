package features

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Vocabulary holds the curated skills list, synonym folding table and
// achievement keyword list used by the extractor. Instances are immutable
// after construction; hot reload swaps the whole vocabulary atomically.
type Vocabulary struct {
	// canonical skill name -> category
	skills map[string]string
	// synonym -> canonical skill name
	synonyms map[string]string
	// leadership/impact keywords, lower-cased
	achievements []string
}

// defaultSkills is the built-in vocabulary, organized by category. A
// deployment can extend it with engine.vocabularyFile.
var defaultSkills = map[string][]string{
	"languages": {
		"python", "java", "javascript", "typescript", "go", "rust", "c", "c++",
		"c#", "ruby", "php", "kotlin", "swift", "scala", "perl", "r", "matlab",
		"objective-c", "dart", "elixir", "erlang", "haskell", "clojure", "lua",
		"groovy", "julia", "fortran", "cobol", "bash", "powershell", "sql",
	},
	"frontend": {
		"react", "angular", "vue", "svelte", "next.js", "nuxt", "jquery",
		"html", "css", "sass", "less", "tailwind", "bootstrap", "webpack",
		"vite", "redux", "graphql", "storybook",
	},
	"backend": {
		"node.js", "express", "django", "flask", "fastapi", "spring",
		"spring boot", "rails", "laravel", "symfony", "gin", "echo", "fiber",
		"asp.net", "phoenix", "grpc", "rest", "soap", "websocket",
	},
	"data": {
		"postgresql", "mysql", "sqlite", "mariadb", "oracle", "sql server",
		"mongodb", "cassandra", "redis", "memcached", "elasticsearch",
		"kafka", "rabbitmq", "spark", "hadoop", "airflow", "dbt", "snowflake",
		"bigquery", "redshift", "clickhouse", "dynamodb", "neo4j", "etl",
	},
	"ml": {
		"machine learning", "deep learning", "tensorflow", "pytorch", "keras",
		"scikit-learn", "pandas", "numpy", "nlp", "computer vision", "llm",
		"langchain", "hugging face", "xgboost", "mlops", "data science",
	},
	"cloud": {
		"aws", "azure", "gcp", "google cloud", "heroku", "digitalocean",
		"cloudflare", "lambda", "s3", "ec2", "kubernetes", "docker", "helm",
		"terraform", "ansible", "puppet", "chef", "serverless", "openshift",
	},
	"devops": {
		"ci/cd", "jenkins", "gitlab ci", "github actions", "circleci",
		"prometheus", "grafana", "datadog", "splunk", "nagios", "linux",
		"nginx", "apache", "git", "svn", "vault", "consul", "istio",
	},
	"mobile": {
		"android", "ios", "react native", "flutter", "xamarin", "ionic",
	},
	"practices": {
		"agile", "scrum", "kanban", "tdd", "bdd", "pair programming",
		"code review", "microservices", "domain-driven design",
		"event sourcing", "distributed systems", "system design",
		"unit testing", "integration testing", "security", "oauth", "saml",
	},
	"management": {
		"project management", "product management", "team leadership",
		"mentoring", "stakeholder management", "roadmap planning", "hiring",
	},
}

// defaultSynonyms folds common abbreviations and variants to their
// canonical skill name.
var defaultSynonyms = map[string]string{
	"js":              "javascript",
	"ts":              "typescript",
	"golang":          "go",
	"py":              "python",
	"node":            "node.js",
	"nodejs":          "node.js",
	"reactjs":         "react",
	"react.js":        "react",
	"vuejs":           "vue",
	"vue.js":          "vue",
	"angularjs":       "angular",
	"nextjs":          "next.js",
	"k8s":             "kubernetes",
	"postgres":        "postgresql",
	"psql":            "postgresql",
	"mongo":           "mongodb",
	"es":              "elasticsearch",
	"elastic":         "elasticsearch",
	"amazon web services": "aws",
	"google cloud platform": "gcp",
	"ml":              "machine learning",
	"dl":              "deep learning",
	"sklearn":         "scikit-learn",
	"tf":              "tensorflow",
	"cpp":             "c++",
	"csharp":          "c#",
	"dotnet":          "asp.net",
	".net":            "asp.net",
	"springboot":      "spring boot",
	"ror":             "rails",
	"ruby on rails":   "rails",
	"rn":              "react native",
	"gha":             "github actions",
	"tailwindcss":     "tailwind",
	"ddd":             "domain-driven design",
	"natural language processing": "nlp",
}

// defaultAchievements are the leadership/impact keywords counted as
// achievement signals. Matched case-insensitively on word boundaries.
var defaultAchievements = []string{
	"led", "lead", "managed", "launched", "optimized", "improved", "built",
	"designed", "architected", "delivered", "scaled", "reduced", "increased",
	"founded", "mentored", "automated", "migrated", "shipped", "drove",
	"spearheaded", "initiated", "achieved", "established", "grew",
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	return buildVocabulary(defaultSkills, defaultSynonyms, defaultAchievements)
}

// LoadVocabulary reads a YAML vocabulary file and merges it over the
// built-in vocabulary. Expected keys: skills (category -> list), synonyms
// (variant -> canonical), achievements (list).
func LoadVocabulary(path string) (*Vocabulary, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file %s: %w", path, err)
	}

	skills := make(map[string][]string, len(defaultSkills))
	for category, names := range defaultSkills {
		skills[category] = names
	}
	for category, raw := range v.GetStringMapStringSlice("skills") {
		skills[category] = append(skills[category], raw...)
	}

	synonyms := make(map[string]string, len(defaultSynonyms))
	for variant, canonical := range defaultSynonyms {
		synonyms[variant] = canonical
	}
	for variant, canonical := range v.GetStringMapString("synonyms") {
		synonyms[strings.ToLower(variant)] = strings.ToLower(canonical)
	}

	achievements := defaultAchievements
	if extra := v.GetStringSlice("achievements"); len(extra) > 0 {
		achievements = append(append([]string{}, defaultAchievements...), extra...)
	}

	return buildVocabulary(skills, synonyms, achievements), nil
}

func buildVocabulary(byCategory map[string][]string, synonyms map[string]string, achievements []string) *Vocabulary {
	vocab := &Vocabulary{
		skills:       make(map[string]string),
		synonyms:     make(map[string]string, len(synonyms)),
		achievements: make([]string, 0, len(achievements)),
	}

	for category, names := range byCategory {
		for _, name := range names {
			vocab.skills[strings.ToLower(name)] = category
		}
	}
	for variant, canonical := range synonyms {
		vocab.synonyms[strings.ToLower(variant)] = strings.ToLower(canonical)
	}
	for _, keyword := range achievements {
		vocab.achievements = append(vocab.achievements, strings.ToLower(keyword))
	}

	return vocab
}

// Canonical maps a token to its canonical skill name, following the
// synonym table. The second return reports whether the token is a known
// skill at all.
func (v *Vocabulary) Canonical(token string) (string, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if canonical, ok := v.synonyms[token]; ok {
		token = canonical
	}
	if _, ok := v.skills[token]; ok {
		return token, true
	}
	return token, false
}

// Category returns the category of a canonical skill name.
func (v *Vocabulary) Category(skill string) (string, bool) {
	category, ok := v.skills[strings.ToLower(skill)]
	return category, ok
}

// SkillCount returns the number of canonical skills known.
func (v *Vocabulary) SkillCount() int {
	return len(v.skills)
}
