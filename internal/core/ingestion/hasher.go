package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// descriptionHashPrefix は content_hash 計算に用いる説明文の先頭文字数
// 末尾のトラッキング文言などの揺れで同一求人が別ハッシュにならないようにする
const descriptionHashPrefix = 500

// ContentHash は生ペイロードから重複排除用のハッシュを計算する
// 空白の揺れとキー順序に依存しない決定的な SHA-256 ダイジェストを返す
func ContentHash(payload map[string]any) string {
	normalized := map[string]string{
		"title":       normalizeForHash(stringField(payload, "title")),
		"company":     normalizeForHash(stringField(payload, "company")),
		"location":    normalizeForHash(stringField(payload, "location")),
		"description": truncate(normalizeForHash(stringField(payload, "description")), descriptionHashPrefix),
	}

	// encoding/json はマップのキーをソートして出力するため順序は安定する
	data, _ := json.Marshal(normalized)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// normalizeForHash は小文字化し、連続する空白を1つに畳む
func normalizeForHash(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// stringField はペイロードから文字列フィールドを取り出す（欠損時は空文字）
func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
