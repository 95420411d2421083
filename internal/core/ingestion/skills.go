package ingestion

import (
	"regexp"
	"sort"
	"strings"
)

// skillVocabulary は統制済みスキル語彙
// 正準名 → 求人票で現れる表記ゆれのリスト
var skillVocabulary = map[string][]string{
	"Python":        {"python"},
	"JavaScript":    {"javascript", "js"},
	"TypeScript":    {"typescript", "ts"},
	"Java":          {"java"},
	"Go":            {"go", "golang"},
	"Rust":          {"rust"},
	"Ruby":          {"ruby"},
	"PHP":           {"php"},
	"C++":           {"c\\+\\+", "cpp"},
	"C#":            {"c#", "csharp"},
	"Swift":         {"swift"},
	"Kotlin":        {"kotlin"},
	"Scala":         {"scala"},
	"SQL":           {"sql"},
	"React":         {"react", "reactjs", "react\\.js"},
	"Angular":       {"angular", "angularjs"},
	"Vue":           {"vue", "vue\\.js", "vuejs"},
	"Next.js":       {"next\\.js", "nextjs"},
	"Django":        {"django"},
	"Flask":         {"flask"},
	"FastAPI":       {"fastapi"},
	"Rails":         {"rails", "ruby on rails"},
	"Spring":        {"spring", "spring boot"},
	"Node.js":       {"node\\.js", "nodejs", "node"},
	"GraphQL":       {"graphql"},
	"gRPC":          {"grpc"},
	"REST":          {"rest", "rest api", "restful"},
	"AWS":           {"aws", "amazon web services"},
	"Azure":         {"azure", "microsoft azure"},
	"GCP":           {"gcp", "google cloud", "google cloud platform"},
	"Docker":        {"docker"},
	"Kubernetes":    {"kubernetes", "k8s"},
	"Terraform":     {"terraform"},
	"Ansible":       {"ansible"},
	"CI/CD":         {"ci/cd", "cicd"},
	"Linux":         {"linux"},
	"Git":           {"git"},
	"PostgreSQL":    {"postgresql", "postgres"},
	"MySQL":         {"mysql"},
	"MongoDB":       {"mongodb", "mongo"},
	"Redis":         {"redis"},
	"Elasticsearch": {"elasticsearch"},
	"Kafka":         {"kafka", "apache kafka"},
	"RabbitMQ":      {"rabbitmq"},
	"Spark":         {"spark", "apache spark"},
	"Airflow":       {"airflow"},
	"Snowflake":     {"snowflake"},
	"BigQuery":      {"bigquery"},
	"Pandas":        {"pandas"},
	"NumPy":         {"numpy"},
	"PyTorch":       {"pytorch"},
	"TensorFlow":    {"tensorflow"},
	"Scikit-learn":  {"scikit-learn", "sklearn"},
	"NLP":           {"nlp", "natural language processing"},
	"Machine Learning": {"machine learning", "ml"},
	"Deep Learning":    {"deep learning"},
	"Computer Vision":  {"computer vision"},
	"LLM":              {"llm", "large language model", "large language models"},
	"RAG":              {"rag", "retrieval augmented generation"},
	"ETL":              {"etl"},
	"Microservices":    {"microservices", "micro-services"},
	"Agile":            {"agile", "scrum"},
	"TDD":              {"tdd", "test-driven development"},
}

// skillPattern はスキル1語彙分の検出パターン
type skillPattern struct {
	canonical string
	re        *regexp.Regexp
}

// compileSkillPatterns は語彙から単語境界付きの検出パターンを構築する
// 出力順を安定させるため正準名でソートする
func compileSkillPatterns() []skillPattern {
	names := make([]string, 0, len(skillVocabulary))
	for name := range skillVocabulary {
		names = append(names, name)
	}
	sort.Strings(names)

	patterns := make([]skillPattern, 0, len(names))
	for _, name := range names {
		alts := strings.Join(skillVocabulary[name], "|")
		re := regexp.MustCompile(`(?i)(^|[^a-z0-9+#.])(` + alts + `)($|[^a-z0-9+#])`)
		patterns = append(patterns, skillPattern{canonical: name, re: re})
	}
	return patterns
}

// CanonicalSkill は表記ゆれを正準名に解決する。未知の語彙は見つからなかったことを返す
func CanonicalSkill(s string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for name, aliases := range skillVocabulary {
		if strings.EqualFold(name, needle) {
			return name, true
		}
		for _, alias := range aliases {
			// エイリアスは正規表現エスケープ済みのものがあるため戻して比較する
			plain := strings.ReplaceAll(alias, `\`, "")
			if plain == needle {
				return name, true
			}
		}
	}
	return "", false
}
