package segment

import "strconv"

// Normalize 把题号候选归一化为规范题号，并推进计数器
// 返回规范题号字符串（十进制数字，无前导零）和更新后的计数器。
//
// 归一化遵循"计数器优先"策略：
//   - 字母/罗马标签的规范题号就是其序数本身（a→1、ii→2），
//     计数器推进到 max(counter, ordinal)，只前进不后退，
//     这样 a)、b) 既可以是独立序列，也能衔接在数字题号之后
//   - 数字标签的字面值只有恰好等于 counter+1 时才被采纳，
//     否则以 counter+1 覆盖字面值，吸收 OCR 误读和跳号
//
// 函数为纯函数，不产生错误
func Normalize(c Candidate, counter int) (string, int) {
	switch c.Kind {
	case AlphabeticLabel:
		next := counter
		if c.Value > next {
			next = c.Value
		}
		return strconv.Itoa(c.Value), next
	default:
		next := counter + 1
		if c.Value == counter+1 {
			next = c.Value
		}
		return strconv.Itoa(next), next
	}
}
