package taskqueue

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	sharedProcessor     *PipelineProcessor
	sharedProcessorOnce sync.Once
)

// GetSharedPipelineProcessor 返回一个单例的 PipelineProcessor 实例
func GetSharedPipelineProcessor(queue Queue, logger *logrus.Logger) *PipelineProcessor {
	sharedProcessorOnce.Do(func() {
		sharedProcessor = NewPipelineProcessor(queue, logger)
	})
	return sharedProcessor
}
