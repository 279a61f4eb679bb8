package utils

import (
	"encoding/json"

	"k8s.io/klog/v2"
)

// ExtractJSON 从文本中提取第一个完整的 JSON 对象，找不到时原样返回
func ExtractJSON(content string) string {
	start := -1
	end := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range content {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start != -1 {
				end = i + 1
			}
		}
		if end != -1 {
			break
		}
	}

	if start >= 0 && end > start {
		return content[start:end]
	}

	return content
}

func ToJSON(v any) string {
	jsonData, err := json.Marshal(v)
	if err != nil {
		klog.Errorf("JSON序列化失败: %v", err)
		return ""
	}
	return string(jsonData)
}
