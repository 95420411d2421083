package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jinford/jobmatch/internal/core/ingestion"
	"github.com/jinford/jobmatch/internal/core/profile"
)

// payloadToJSON は生ペイロードを JSONB カラム用のバイト列へ変換する
func payloadToJSON(payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

// jsonToPayload は JSONB カラムの値を生ペイロードへ復元する
func jsonToPayload(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// sectionsToJSON はレジュメセクションを JSONB カラム用のバイト列へ変換する
func sectionsToJSON(sections profile.ResumeSections) ([]byte, error) {
	data, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume sections: %w", err)
	}
	return data, nil
}

// jsonToSections は JSONB カラムの値をレジュメセクションへ復元する
func jsonToSections(data []byte) (profile.ResumeSections, error) {
	var sections profile.ResumeSections
	if len(data) == 0 {
		return sections, nil
	}
	if err := json.Unmarshal(data, &sections); err != nil {
		return sections, fmt.Errorf("failed to unmarshal resume sections: %w", err)
	}
	return sections, nil
}

// 列挙型ポインタは text カラムと *string で受け渡しする

func locTypeToText(v *ingestion.LocationType) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func textToLocType(s *string) *ingestion.LocationType {
	if s == nil {
		return nil
	}
	v := ingestion.LocationType(*s)
	return &v
}

func empTypeToText(v *ingestion.EmploymentType) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func textToEmpType(s *string) *ingestion.EmploymentType {
	if s == nil {
		return nil
	}
	v := ingestion.EmploymentType(*s)
	return &v
}

func expLevelToText(v *ingestion.ExperienceLevel) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func textToExpLevel(s *string) *ingestion.ExperienceLevel {
	if s == nil {
		return nil
	}
	v := ingestion.ExperienceLevel(*s)
	return &v
}

func profLevelToText(v *profile.ExperienceLevel) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func textToProfLevel(s *string) *profile.ExperienceLevel {
	if s == nil {
		return nil
	}
	v := profile.ExperienceLevel(*s)
	return &v
}
