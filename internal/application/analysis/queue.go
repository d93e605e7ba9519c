// Package analysis 编排章节分析：领取租约、调用模型、持久化结果并推进状态
package analysis

import (
	"context"
	"fmt"
)

// Job 一次章节分析任务
type Job struct {
	ChapterID string `json:"chapterId"`
	BookID    string `json:"bookId"`
	ProjectID string `json:"projectId"`
	// Attempt 从 1 开始，重新分析时递增
	Attempt int `json:"attempt"`
}

// Validate 校验任务必填字段
func (j Job) Validate() error {
	if j.ChapterID == "" {
		return fmt.Errorf("analysis job requires a chapter id")
	}
	return nil
}

// Queue 任务队列端口，Submit 不等待分析完成
type Queue interface {
	Submit(ctx context.Context, job Job) error
}

// Runner 执行单个章节分析
type Runner interface {
	Analyze(ctx context.Context, chapterID string) error
}

// Handler 把任务交给 Runner，供队列消费端使用
func Handler(r Runner) func(ctx context.Context, job Job) error {
	return func(ctx context.Context, job Job) error {
		if err := job.Validate(); err != nil {
			return err
		}
		return r.Analyze(ctx, job.ChapterID)
	}
}
