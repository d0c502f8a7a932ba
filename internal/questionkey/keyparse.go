package questionkey

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Question 标准答案中的一道题
type Question struct {
	Text        string `json:"question"`     // 题干
	IdealAnswer string `json:"ideal_answer"` // 参考答案
	Marks       int    `json:"marks"`        // 分值
}

// Key 结构化的题目标准答案集
// Questions 以 "Q1" 风格的题号为键，Order 保留题目在文件中的出现顺序
type Key struct {
	Subject   string              `json:"subject"`   // 检测出的科目
	Questions map[string]Question `json:"questions"` // 题号到题目的映射
	Order     []string            `json:"-"`         // 题号出现顺序
}

// QuestionByNumber 按裸题号（"1"、"2"）查题
func (k *Key) QuestionByNumber(number string) (Question, bool) {
	q, ok := k.Questions["Q"+number]
	return q, ok
}

// RebuildOrder 按题号数字升序重建Order
// 从JSON反序列化得到的Key不携带顺序信息，使用前需要重建
func (k *Key) RebuildOrder() {
	ids := make([]string, 0, len(k.Questions))
	for id := range k.Questions {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		ni, iErr := strconv.Atoi(strings.TrimPrefix(ids[i], "Q"))
		nj, jErr := strconv.Atoi(strings.TrimPrefix(ids[j], "Q"))
		if iErr == nil && jErr == nil {
			return ni < nj
		}
		return ids[i] < ids[j]
	})

	k.Order = ids
}

// TotalMarks 返回全卷总分
func (k *Key) TotalMarks() int {
	total := 0
	for _, q := range k.Questions {
		total += q.Marks
	}
	return total
}

// 标准答案的题目行：可选的Q/Question前缀 + 题号 + 分隔符
// 标准答案由出卷人撰写，题号可信，按字面值采用，不走答卷侧的计数器归一化
var keyQuestionPattern = regexp.MustCompile(`(?i)^(?:Q(?:uestion)?\s*)(\d+)[\.:)]?\s*(.*)$|^(\d+)[\.:)]\s*(.*)$`)

// 分值标注，如 "5 marks"、"(2 mark)"
var marksPattern = regexp.MustCompile(`(?i)(\d+)\s*marks?`)

// 科目关键词按优先级排列
var subjectKeywords = []struct {
	keyword string
	subject string
}{
	{"mathematics", "Mathematics"},
	{"math", "Mathematics"},
	{"physics", "Physics"},
	{"chemistry", "Chemistry"},
	{"science", "Science"},
	{"literature", "English"},
	{"english", "English"},
}

// ParseKeyText 把标准答案文本扫描为结构化题目集
// 逐行扫描：题目行开启新题，后续行累积为参考答案，分值标注行更新分值
func ParseKeyText(text string) *Key {
	key := &Key{
		Subject:   detectSubject(text),
		Questions: make(map[string]Question),
	}

	var currentID string
	var current Question

	save := func() {
		if currentID == "" {
			return
		}
		if _, exists := key.Questions[currentID]; !exists {
			key.Order = append(key.Order, currentID)
		}
		key.Questions[currentID] = current
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if number, rest, ok := matchKeyQuestion(line); ok {
			save()
			currentID = fmt.Sprintf("Q%s", number)
			current = Question{
				Text:  rest,
				Marks: 1, // 未标注分值的题按1分计
			}
			continue
		}

		if currentID == "" {
			continue
		}

		if m := marksPattern.FindStringSubmatch(line); m != nil {
			current.Marks = parseMarks(m[1])
			continue
		}

		// 累积参考答案文本
		if current.IdealAnswer != "" {
			current.IdealAnswer += " " + line
		} else {
			current.IdealAnswer = line
		}
	}
	save()

	return key
}

// matchKeyQuestion 匹配题目行，返回题号和题干
func matchKeyQuestion(line string) (number string, rest string, ok bool) {
	m := keyQuestionPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	// 两个候选分支：带Q前缀的和裸数字的
	if m[1] != "" {
		return stripLeadingZeros(m[1]), strings.TrimSpace(m[2]), true
	}
	return stripLeadingZeros(m[3]), strings.TrimSpace(m[4]), true
}

// stripLeadingZeros 去掉题号前导零，保证 "01" 和 "1" 归并为同一题
func stripLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// parseMarks 解析分值数字，失败时回退为1分
func parseMarks(s string) int {
	marks := 0
	for i := 0; i < len(s); i++ {
		marks = marks*10 + int(s[i]-'0')
	}
	if marks <= 0 {
		return 1
	}
	return marks
}

// detectSubject 从全文关键词检测科目，未命中时归为general
func detectSubject(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range subjectKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.subject
		}
	}
	return "general"
}
