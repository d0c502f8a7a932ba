package segment

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNilPages 页文本序列为nil时返回，属于调用方契约错误
// 页内容为空字符串是合法输入（OCR失败的页贡献零行），序列本身缺失不是
var ErrNilPages = errors.New("page sequence must not be nil")

// 页与页之间用一个空行分隔，既保证页边界处的行不粘连，
// 又让跨页延续的答案在切分时保持在同一块内（空白行对切分透明）
const pageSeparator = "\n\n"

// AssemblePages 把有序的整页转录文本拼接为统一的行序列
// 统一换行风格后按页分隔符连接，再切成行交给切分器
func AssemblePages(pages []string) ([]string, error) {
	if pages == nil {
		return nil, ErrNilPages
	}

	normalized := make([]string, len(pages))
	for i, page := range pages {
		normalized[i] = normalizeNewlines(page)
	}

	return splitLines(strings.Join(normalized, pageSeparator)), nil
}

// normalizeNewlines 把 \r\n 和孤立 \r 统一为 \n
func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// splitLines 按换行切分，保留空行
func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// PageCollector 收集乱序到达的逐页OCR结果并按页号重排
// 并发的页转录任务各自完成后调用Add，全部到齐后取有序页文本
type PageCollector struct {
	mu    sync.Mutex
	texts map[int]string
	total int
}

// NewPageCollector 创建指定页数的收集器
func NewPageCollector(total int) *PageCollector {
	return &PageCollector{
		texts: make(map[int]string, total),
		total: total,
	}
}

// Add 登记一页的转录结果，index 从0开始
// 同一页号重复登记以后到者为准
func (c *PageCollector) Add(index int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts[index] = text
}

// Complete 判断是否所有页都已登记
func (c *PageCollector) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.texts) >= c.total
}

// Pages 按页号升序导出页文本
// 缺失的页以空文本占位，保证输出长度恒等于总页数
func (c *PageCollector) Pages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	indexes := make([]int, 0, len(c.texts))
	for i := range c.texts {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	pages := make([]string, c.total)
	for _, i := range indexes {
		if i >= 0 && i < c.total {
			pages[i] = c.texts[i]
		}
	}
	return pages
}
