package node

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```[ \t]*(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

// maxBalancedScans 限制对未闭合 { 的重复扫描次数
const maxBalancedScans = 32

// JSONCandidates 按优先级返回模型输出中可能的 JSON 对象片段：
// 先是 ``` 围栏代码块中以 { 开头的内容，其后依次是正文中互不重叠的平衡花括号区间，
// 第一个区间从第一个 { 开始
func JSONCandidates(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	for _, m := range fencePattern.FindAllStringSubmatch(s, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") {
			add(body)
		}
	}

	pos := 0
	for scans := 0; scans < maxBalancedScans; scans++ {
		i := strings.IndexByte(s[pos:], '{')
		if i < 0 {
			break
		}
		start := pos + i
		end, ok := balancedEnd(s, start)
		if !ok {
			pos = start + 1
			continue
		}
		add(s[start:end])
		pos = end
	}
	return out
}

// ExtractJSONObject 返回优先级最高的 JSON 对象片段
func ExtractJSONObject(s string) (string, bool) {
	c := JSONCandidates(s)
	if len(c) == 0 {
		return "", false
	}
	return c[0], true
}

// BalancedObject 从第一个 { 开始截取花括号平衡的区间，字符串字面量内的括号与转义会被跳过
func BalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end, ok := balancedEnd(s, start)
	if !ok {
		return "", false
	}
	return s[start:end], true
}

// balancedEnd 返回从 s[start] 处的 { 开始的平衡区间的结束位置（不含）
func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
