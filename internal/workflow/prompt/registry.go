// Package prompt 管理内嵌的提示词模板并组装分析提示词
package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// 模板文件名即 PromptID 加 .user.txt 后缀
//
//go:embed templates/*.user.txt
var templatesFS embed.FS

const templateSuffix = ".user.txt"

type PromptID string

const (
	PromptDevelopmentalFeedbackV1 PromptID = "developmental_feedback_v1"
	PromptChapterSummaryV1        PromptID = "chapter_summary_v1"
)

// Registry 首次使用时解析全部内嵌模板，之后只读
type Registry struct {
	once      sync.Once
	templates map[PromptID]einoprompt.ChatTemplate
	err       error
}

func NewRegistry() *Registry {
	return &Registry{}
}

// ChatTemplate 返回 id 对应的单条 user 消息模板（Go template 语法）
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	r.once.Do(r.load)
	if r.err != nil {
		return nil, r.err
	}
	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return tpl, nil
}

// IDs 已加载的模板
func (r *Registry) IDs() []PromptID {
	r.once.Do(r.load)
	ids := make([]PromptID, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) load() {
	files, err := fs.Glob(templatesFS, "templates/*"+templateSuffix)
	if err != nil {
		r.err = err
		return
	}

	r.templates = make(map[PromptID]einoprompt.ChatTemplate, len(files))
	for _, f := range files {
		b, err := templatesFS.ReadFile(f)
		if err != nil {
			r.err = err
			return
		}
		id := PromptID(strings.TrimSuffix(path.Base(f), templateSuffix))
		body := strings.TrimSpace(string(b))

		// 语法错误在加载时暴露，而不是第一次分析时
		if _, err := template.New(string(id)).Parse(body); err != nil {
			r.err = fmt.Errorf("invalid prompt template %s: %w", id, err)
			return
		}
		r.templates[id] = einoprompt.FromMessages(schema.GoTemplate, schema.UserMessage(body))
	}
}
