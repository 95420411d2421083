package ingestion

import (
	"sort"
	"strings"
	"time"
)

// seniorKeywords / juniorKeywords はタイトルからの経験レベル推定に使う
var (
	seniorKeywords    = []string{"senior", "sr.", "sr ", "staff", "principal"}
	leadKeywords      = []string{"lead", "head of", "manager"}
	juniorKeywords    = []string{"junior", "jr.", "jr ", "entry", "intern", "associate", "graduate"}
	executiveKeywords = []string{"director", "vp ", "vice president", "cto", "chief"}
)

// Normalizer は生ペイロードを正準的な Job レコードへ変換する
// 純粋関数であり、同一入力に対して（タイムスタンプとIDを除き）常に同一の結果を返す
type Normalizer struct {
	patterns []skillPattern
}

// NewNormalizer は新しい Normalizer を作成する
func NewNormalizer() *Normalizer {
	return &Normalizer{
		patterns: compileSkillPatterns(),
	}
}

// Normalize は RawJob から構造化された Job を導出する
// 欠けているフィールドは推測せず nil のまま残し、必須フィールド（title, company,
// description）が欠けている場合は NeedsReview を立てる。ID とタイムスタンプの
// 採番は呼び出し側の責務
func (n *Normalizer) Normalize(raw *RawJob) *Job {
	payload := raw.Payload

	title := collapseWhitespace(stringField(payload, "title"))
	company := collapseWhitespace(stringField(payload, "company"))
	description := collapseWhitespace(stringField(payload, "description"))

	rawJobID := raw.ID
	job := &Job{
		RawJobID:       &rawJobID,
		Title:          title,
		Company:        company,
		Description:    description,
		SalaryCurrency: currencyOrDefault(payload),
		Platform:       raw.Platform,
		PlatformURL:    raw.URL,
		Status:         JobStatusActive,
		NeedsReview:    title == "" || company == "" || description == "",
	}

	if loc := collapseWhitespace(stringField(payload, "location")); loc != "" {
		job.Location = &loc
	}
	job.LocType = inferLocationType(payload, job.Location, description)

	job.SalaryMin = intField(payload, "salary_min")
	job.SalaryMax = intField(payload, "salary_max")
	if period := stringField(payload, "salary_period"); period != "" {
		job.SalaryPeriod = &period
	}

	job.EmpType = parseEmploymentType(stringField(payload, "employment_type"))
	job.ExpLevel = parseExperienceLevel(stringField(payload, "experience_level"), title)
	job.PostedAt = parseTimeField(payload, "posted_date", "created")

	if size := strings.ToLower(strings.TrimSpace(stringField(payload, "company_size"))); size != "" {
		job.CompanySize = &size
	}
	if industry := strings.ToLower(strings.TrimSpace(stringField(payload, "industry"))); industry != "" {
		job.Industry = &industry
	}

	job.Skills = n.extractSkills(payload, title, description)

	return job
}

// extractSkills は統制語彙に対するキーワード抽出と、ペイロードに列挙された
// スキルの正準化を統合する
func (n *Normalizer) extractSkills(payload map[string]any, title, description string) []string {
	found := make(map[string]struct{})

	text := title + "\n" + description
	for _, p := range n.patterns {
		if p.re.MatchString(text) {
			found[p.canonical] = struct{}{}
		}
	}

	if listed, ok := payload["skills"].([]any); ok {
		for _, v := range listed {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if canonical, ok := CanonicalSkill(s); ok {
				found[canonical] = struct{}{}
			}
		}
	}

	skills := make([]string, 0, len(found))
	for s := range found {
		skills = append(skills, s)
	}
	sort.Strings(skills)
	return skills
}

// Changed は再正規化の結果が既存 Job と実質的に異なるかを判定する
// last_updated などのタイムスタンプ類は比較しない
func Changed(prev, next *Job) bool {
	return prev.Title != next.Title ||
		prev.Company != next.Company ||
		!equalStrPtr(prev.Location, next.Location) ||
		!equalLocType(prev.LocType, next.LocType) ||
		prev.Description != next.Description ||
		!equalIntPtr(prev.SalaryMin, next.SalaryMin) ||
		!equalIntPtr(prev.SalaryMax, next.SalaryMax) ||
		prev.SalaryCurrency != next.SalaryCurrency ||
		!equalStrPtr(prev.SalaryPeriod, next.SalaryPeriod) ||
		!equalEmpType(prev.EmpType, next.EmpType) ||
		!equalExpLevel(prev.ExpLevel, next.ExpLevel) ||
		!equalStrPtr(prev.CompanySize, next.CompanySize) ||
		!equalStrPtr(prev.Industry, next.Industry) ||
		!equalStrings(prev.Skills, next.Skills)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func currencyOrDefault(payload map[string]any) string {
	if c := strings.ToUpper(strings.TrimSpace(stringField(payload, "salary_currency"))); c != "" {
		return c
	}
	return "USD"
}

// inferLocationType は明示フィールド → 所在地文字列 → 説明文の順で勤務形態を推定する
func inferLocationType(payload map[string]any, location *string, description string) *LocationType {
	if v := strings.ToLower(stringField(payload, "location_type")); v != "" {
		switch {
		case strings.Contains(v, "remote"):
			return locTypePtr(LocationRemote)
		case strings.Contains(v, "hybrid"):
			return locTypePtr(LocationHybrid)
		default:
			return locTypePtr(LocationOnsite)
		}
	}

	if location != nil {
		loc := strings.ToLower(*location)
		switch {
		case strings.Contains(loc, "remote"):
			return locTypePtr(LocationRemote)
		case strings.Contains(loc, "hybrid"):
			return locTypePtr(LocationHybrid)
		}
	}

	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "fully remote"), strings.Contains(desc, "100% remote"):
		return locTypePtr(LocationRemote)
	case strings.Contains(desc, "hybrid"):
		return locTypePtr(LocationHybrid)
	}

	return nil
}

func parseEmploymentType(v string) *EmploymentType {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v), "_", "-")) {
	case "full-time", "fulltime", "permanent":
		return empTypePtr(EmploymentFullTime)
	case "part-time", "parttime":
		return empTypePtr(EmploymentPartTime)
	case "contract", "freelance":
		return empTypePtr(EmploymentContract)
	case "temporary":
		return empTypePtr(EmploymentTemporary)
	case "internship", "intern":
		return empTypePtr(EmploymentInternship)
	}
	return nil
}

// parseExperienceLevel は明示フィールドを優先し、無ければタイトルから推定する
func parseExperienceLevel(v, title string) *ExperienceLevel {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "entry", "junior":
		return expLevelPtr(ExperienceEntry)
	case "mid", "middle", "intermediate":
		return expLevelPtr(ExperienceMid)
	case "senior":
		return expLevelPtr(ExperienceSenior)
	case "lead":
		return expLevelPtr(ExperienceLead)
	case "executive":
		return expLevelPtr(ExperienceExecutive)
	}

	t := strings.ToLower(title)
	switch {
	case containsAny(t, executiveKeywords):
		return expLevelPtr(ExperienceExecutive)
	case containsAny(t, leadKeywords):
		return expLevelPtr(ExperienceLead)
	case containsAny(t, seniorKeywords):
		return expLevelPtr(ExperienceSenior)
	case containsAny(t, juniorKeywords):
		return expLevelPtr(ExperienceEntry)
	}
	return nil
}

func parseTimeField(payload map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		s := stringField(payload, key)
		if s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

func intField(payload map[string]any, key string) *int {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		// encoding/json は数値を float64 で復元する
		i := int(n)
		if i <= 0 {
			return nil
		}
		return &i
	case int:
		if n <= 0 {
			return nil
		}
		return &n
	}
	return nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func locTypePtr(v LocationType) *LocationType        { return &v }
func empTypePtr(v EmploymentType) *EmploymentType    { return &v }
func expLevelPtr(v ExperienceLevel) *ExperienceLevel { return &v }

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalLocType(a, b *LocationType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalEmpType(a, b *EmploymentType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalExpLevel(a, b *ExperienceLevel) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
