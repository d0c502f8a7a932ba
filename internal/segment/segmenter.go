package segment

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// AnswerMap 按插入顺序维护 题号 -> 答案文本 的映射
// 题号在首次插入时确定位置，重复插入只覆盖内容不改变顺序
type AnswerMap struct {
	keys    []string
	answers map[string]string
}

// NewAnswerMap 创建空的答案映射
func NewAnswerMap() *AnswerMap {
	return &AnswerMap{
		answers: make(map[string]string),
	}
}

// Set 写入一条答案，返回该题号此前是否已存在
func (m *AnswerMap) Set(id string, text string) bool {
	_, exists := m.answers[id]
	if !exists {
		m.keys = append(m.keys, id)
	}
	m.answers[id] = text
	return exists
}

// Get 按题号取答案文本
func (m *AnswerMap) Get(id string) (string, bool) {
	text, ok := m.answers[id]
	return text, ok
}

// Keys 返回插入顺序的题号列表
func (m *AnswerMap) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len 返回答案条数
func (m *AnswerMap) Len() int {
	return len(m.keys)
}

// Map 导出为普通map（丢弃顺序信息，供JSON序列化等场景使用）
func (m *AnswerMap) Map() map[string]string {
	out := make(map[string]string, len(m.answers))
	for k, v := range m.answers {
		out[k] = v
	}
	return out
}

// Segmenter 把逐行转录文本切分为按题号组织的答案块
type Segmenter struct {
	logger *logrus.Logger
}

// SegmenterOption 切分器配置选项
type SegmenterOption func(*Segmenter)

// WithLogger 设置日志器
func WithLogger(logger *logrus.Logger) SegmenterOption {
	return func(s *Segmenter) {
		s.logger = logger
	}
}

// NewSegmenter 创建切分器
func NewSegmenter(opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		logger: logrus.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// scanState 单次切分过程的累积状态，调用间不共享
type scanState struct {
	counter   int       // 题号计数器，已发出的最大规范题号
	currentID string    // 当前累积块的规范题号，空表示尚未遇到任何标签
	buffer    []string  // 当前块已累积的内容行
	result    *AnswerMap
}

// Segment 对整理好的行序列执行单趟扫描切分
// 空白行不开启也不结束答案块（跨页答案保持连续）；
// 首个标签之前的内容行属于卷头噪声，直接丢弃
func (s *Segmenter) Segment(lines []string) *AnswerMap {
	state := &scanState{
		result: NewAnswerMap(),
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		candidate, ok := Recognize(line)
		if !ok {
			// 续行内容，只在已有归属块时累积
			if state.currentID != "" {
				state.buffer = append(state.buffer, line)
			}
			continue
		}

		s.flush(state)

		id, counter := Normalize(candidate, state.counter)
		state.counter = counter
		state.currentID = id
		state.buffer = state.buffer[:0]
		if candidate.Remainder != "" {
			state.buffer = append(state.buffer, candidate.Remainder)
		}
	}

	s.flush(state)
	return state.result
}

// flush 把当前累积块写入结果
// 同一规范题号重复出现属于异常输入，记录告警后以新内容覆盖
func (s *Segmenter) flush(state *scanState) {
	if state.currentID == "" {
		return
	}

	text := strings.Join(state.buffer, "\n")
	if state.result.Set(state.currentID, text) {
		s.logger.WithFields(logrus.Fields{
			"question_id": state.currentID,
		}).Warn("duplicate question id in transcription, overwriting previous answer")
	}

	state.currentID = ""
	state.buffer = state.buffer[:0]
}

// SegmentText 切分整篇转录文本
func (s *Segmenter) SegmentText(text string) *AnswerMap {
	return s.Segment(splitLines(text))
}

// SegmentPages 拼接有序页文本后切分
// 页序列为nil属于调用方契约错误
func (s *Segmenter) SegmentPages(pages []string) (*AnswerMap, error) {
	lines, err := AssemblePages(pages)
	if err != nil {
		return nil, err
	}
	return s.Segment(lines), nil
}
