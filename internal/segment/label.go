package segment

import (
	"strings"
)

// LabelKind 标签类型
type LabelKind string

const (
	// NumericLabel 数字题号（如 Q1、12)、(3)）
	NumericLabel LabelKind = "numeric"
	// AlphabeticLabel 字母或罗马数字小题号（如 a)、(ii)）
	AlphabeticLabel LabelKind = "alphabetic"
)

// Candidate 行首识别出的题号候选
// 由识别器按行临时创建，不做持久化
type Candidate struct {
	Raw       string    // 原始标签文本（如 "Q1."、"(a)"、"06)"）
	Kind      LabelKind // 标签类型
	Value     int       // 数字标签的字面值，或字母/罗马标签的序数
	Remainder string    // 标签之后同一行的剩余内容（可以为空）
}

// 数字标签允许的结尾分隔符
const numericSeparators = ".):-"

// Recognize 判断一行转录文本是否开启新的答题块
// 按固定优先级依次尝试三条规则，任何一条命中即返回候选：
//  1. Q/Question 前缀 + 数字序列 + 可选分隔符
//  2. 单个字母或罗马数字 + ")" 或 "."
//  3. 裸数字序列 + ")" 或 "."（题目卷风格，如 "12."）
//
// 三条规则都不命中时返回 false，该行视为当前答题块的续行内容。
// 调用方应传入已去除首尾空白的非空行。
func Recognize(line string) (Candidate, bool) {
	if c, ok := matchMarkedNumeric(line); ok {
		return c, ok
	}
	if c, ok := matchAlphabetic(line); ok {
		return c, ok
	}
	return matchBareNumeric(line)
}

// matchMarkedNumeric 匹配带 Q/Question 前缀的数字标签
// 前缀存在时分隔符可以省略（如 "Q1 answer"）
func matchMarkedNumeric(line string) (Candidate, bool) {
	lower := strings.ToLower(line)

	var pos int
	switch {
	case strings.HasPrefix(lower, "question"):
		pos = len("question")
	case strings.HasPrefix(lower, "q"):
		pos = 1
	default:
		return Candidate{}, false
	}

	// 前缀和数字之间允许空格
	for pos < len(line) && line[pos] == ' ' {
		pos++
	}

	// 数字可能被 OCR 连同括号一起转录，如 "Q(1)"
	openParen := false
	if pos < len(line) && line[pos] == '(' {
		openParen = true
		pos++
	}

	value, width := scanDigits(line[pos:])
	if width == 0 {
		return Candidate{}, false
	}
	pos += width

	if openParen && pos < len(line) && line[pos] == ')' {
		pos++
	}

	// 可选分隔符
	if pos < len(line) && strings.IndexByte(numericSeparators, line[pos]) >= 0 {
		pos++
	}

	return Candidate{
		Raw:       strings.TrimSpace(line[:pos]),
		Kind:      NumericLabel,
		Value:     value,
		Remainder: strings.TrimSpace(line[pos:]),
	}, true
}

// matchAlphabetic 匹配字母或罗马数字小题号
// 接受 "a)"、"a."、"(a)"、"ii)"、"(iv)" 等形式，标记后必须有 ")" 或 "."
func matchAlphabetic(line string) (Candidate, bool) {
	pos := 0

	openParen := false
	if pos < len(line) && line[pos] == '(' {
		openParen = true
		pos++
	}

	// 取出连续字母组成的标记
	start := pos
	for pos < len(line) && isLetter(line[pos]) {
		pos++
	}
	token := strings.ToLower(line[start:pos])
	if token == "" || len(token) > 4 {
		return Candidate{}, false
	}

	// 标记后必须紧跟 ")" 或 "."（带括号形式由 ")" 收尾）
	if pos >= len(line) {
		return Candidate{}, false
	}
	sep := line[pos]
	if sep != ')' && sep != '.' {
		return Candidate{}, false
	}
	if openParen && sep != ')' {
		return Candidate{}, false
	}
	pos++

	ordinal, ok := alphabeticOrdinal(token)
	if !ok {
		return Candidate{}, false
	}

	return Candidate{
		Raw:       strings.TrimSpace(line[:pos]),
		Kind:      AlphabeticLabel,
		Value:     ordinal,
		Remainder: strings.TrimSpace(line[pos:]),
	}, true
}

// matchBareNumeric 匹配不带前缀的数字标签
// 没有 Q 前缀时必须有 ")" 或 "." 收尾，否则普通的数字开头内容行会被误判
func matchBareNumeric(line string) (Candidate, bool) {
	pos := 0

	openParen := false
	if pos < len(line) && line[pos] == '(' {
		openParen = true
		pos++
	}

	value, width := scanDigits(line[pos:])
	if width == 0 {
		return Candidate{}, false
	}
	pos += width

	if pos >= len(line) {
		return Candidate{}, false
	}
	sep := line[pos]
	if openParen {
		if sep != ')' {
			return Candidate{}, false
		}
	} else if sep != ')' && sep != '.' {
		return Candidate{}, false
	}
	pos++

	// "1.)" 这类 OCR 产物再多吃一个分隔符
	if pos < len(line) && (line[pos] == ')' || line[pos] == '.') {
		pos++
	}

	return Candidate{
		Raw:       strings.TrimSpace(line[:pos]),
		Kind:      NumericLabel,
		Value:     value,
		Remainder: strings.TrimSpace(line[pos:]),
	}, true
}

// alphabeticOrdinal 计算字母/罗马标记在其序列中的1基序数
// 纯罗马字符组成的标记按罗马数字解释（i→1、iv→4），
// 其余单字母按字母表序数解释（a→1、b→2）
func alphabeticOrdinal(token string) (int, bool) {
	if isRomanToken(token) {
		if v, ok := romanValue(token); ok {
			return v, true
		}
	}
	if len(token) == 1 {
		c := token[0]
		if c >= 'a' && c <= 'z' {
			return int(c-'a') + 1, true
		}
	}
	return 0, false
}

// isRomanToken 判断标记是否完全由小写罗马数字字符组成
func isRomanToken(token string) bool {
	for i := 0; i < len(token); i++ {
		switch token[i] {
		case 'i', 'v', 'x':
		default:
			return false
		}
	}
	return token != ""
}

// romanValue 解析小写罗马数字（支持到 xxxix 足够覆盖试卷小题）
func romanValue(token string) (int, bool) {
	values := map[byte]int{'i': 1, 'v': 5, 'x': 10}

	total := 0
	for i := 0; i < len(token); i++ {
		cur := values[token[i]]
		if i+1 < len(token) && values[token[i+1]] > cur {
			total -= cur
		} else {
			total += cur
		}
	}
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// scanDigits 扫描行首的数字序列，返回解析值和消费的字节数
func scanDigits(s string) (int, int) {
	width := 0
	value := 0
	for width < len(s) && s[width] >= '0' && s[width] <= '9' {
		value = value*10 + int(s[width]-'0')
		width++
		// 题号不会超过四位，超长数字序列按内容处理
		if width > 4 {
			return 0, 0
		}
	}
	return value, width
}

// isLetter 判断是否为ASCII字母
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
