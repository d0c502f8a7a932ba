package segment

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblePages(t *testing.T) {
	lines, err := AssemblePages([]string{
		"Q1. first page\nline two",
		"Q2. second page",
	})
	require.NoError(t, err)

	// 页边界处插入一个空行分隔
	assert.Equal(t, []string{
		"Q1. first page",
		"line two",
		"",
		"Q2. second page",
	}, lines)
}

func TestAssemblePagesNormalizesNewlines(t *testing.T) {
	lines, err := AssemblePages([]string{"line one\r\nline two\rline three"})
	require.NoError(t, err)

	assert.Equal(t, []string{"line one", "line two", "line three"}, lines)
}

func TestAssemblePagesEmptyPage(t *testing.T) {
	// OCR失败的页以空文本参与拼接，不报错
	lines, err := AssemblePages([]string{"Q1. answer", "", "Q2. another"})
	require.NoError(t, err)
	assert.Contains(t, lines, "Q1. answer")
	assert.Contains(t, lines, "Q2. another")
}

func TestAssemblePagesNil(t *testing.T) {
	_, err := AssemblePages(nil)
	assert.ErrorIs(t, err, ErrNilPages)

	// 空切片是合法输入
	lines, err := AssemblePages([]string{})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, lines)
}

func TestPageCollectorReordersPages(t *testing.T) {
	c := NewPageCollector(3)

	// 模拟乱序到达的OCR结果
	c.Add(2, "page three")
	c.Add(0, "page one")
	assert.False(t, c.Complete())

	c.Add(1, "page two")
	assert.True(t, c.Complete())

	assert.Equal(t, []string{"page one", "page two", "page three"}, c.Pages())
}

func TestPageCollectorMissingPage(t *testing.T) {
	c := NewPageCollector(3)
	c.Add(0, "page one")
	c.Add(2, "page three")

	// 缺页以空文本占位，长度仍等于总页数
	pages := c.Pages()
	assert.Equal(t, []string{"page one", "", "page three"}, pages)
}

func TestPageCollectorConcurrentAdd(t *testing.T) {
	const total = 20
	c := NewPageCollector(total)

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			c.Add(index, "page")
		}(i)
	}
	wg.Wait()

	require.True(t, c.Complete())
	assert.Len(t, c.Pages(), total)
}
