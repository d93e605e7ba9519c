package entity

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	apperrors "manuscript-editor-api/pkg/errors"
)

// ChapterEvent 驱动章节状态迁移的事件
type ChapterEvent string

const (
	// EventUpload 上传完成，进入排队
	EventUpload ChapterEvent = "upload"
	// EventBegin 工作者取得分析租约
	EventBegin ChapterEvent = "begin"
	// EventExpire 分析租约过期，退回排队状态
	EventExpire ChapterEvent = "expire"
	EventComplete ChapterEvent = "complete"
	EventFail     ChapterEvent = "fail"
	// EventResubmit 重新分析
	EventResubmit ChapterEvent = "resubmit"
)

// ErrInvalidTransition 当前状态不接受该事件
var ErrInvalidTransition = apperrors.New(apperrors.CodeConflict, "invalid chapter status transition")

type chapterFSMContext struct {
	LeaseExpired bool
}

func newChapterMachine(current ChapterStatus, leaseExpired bool) (*statekit.Interpreter[chapterFSMContext], error) {
	builder := statekit.NewMachine[chapterFSMContext]("chapter-analysis").
		WithInitial(statekit.StateID(current)).
		WithContext(chapterFSMContext{LeaseExpired: leaseExpired}).
		WithGuard("leaseExpired", func(ctx chapterFSMContext, _ statekit.Event) bool {
			return ctx.LeaseExpired
		})

	builder.State(statekit.StateID(ChapterStatusPending)).
		On(statekit.EventType(EventUpload)).Target(statekit.StateID(ChapterStatusProcessing)).
		On(statekit.EventType(EventResubmit)).Target(statekit.StateID(ChapterStatusProcessing)).
		Done()

	builder.State(statekit.StateID(ChapterStatusProcessing)).
		On(statekit.EventType(EventBegin)).Target(statekit.StateID(ChapterStatusAnalyzing)).
		On(statekit.EventType(EventFail)).Target(statekit.StateID(ChapterStatusFailed)).
		Done()

	builder.State(statekit.StateID(ChapterStatusAnalyzing)).
		On(statekit.EventType(EventComplete)).Target(statekit.StateID(ChapterStatusCompleted)).
		On(statekit.EventType(EventFail)).Target(statekit.StateID(ChapterStatusFailed)).
		On(statekit.EventType(EventExpire)).Target(statekit.StateID(ChapterStatusProcessing)).Guard("leaseExpired").
		Done()

	builder.State(statekit.StateID(ChapterStatusCompleted)).
		On(statekit.EventType(EventResubmit)).Target(statekit.StateID(ChapterStatusProcessing)).
		Done()

	builder.State(statekit.StateID(ChapterStatusFailed)).
		On(statekit.EventType(EventResubmit)).Target(statekit.StateID(ChapterStatusProcessing)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build chapter state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return interpreter, nil
}

// NextStatus 计算 current 在 event 下的目标状态
// leaseExpired 仅影响 EventExpire
func NextStatus(current ChapterStatus, event ChapterEvent, leaseExpired bool) (ChapterStatus, error) {
	if !isKnownStatus(current) {
		return "", ErrInvalidTransition.WithDetail(fmt.Sprintf("unknown status %q", current))
	}

	interpreter, err := newChapterMachine(current, leaseExpired)
	if err != nil {
		return "", err
	}
	interpreter.Send(statekit.Event{Type: statekit.EventType(event)})

	next := ChapterStatus(interpreter.State().Value)
	if next == current {
		return "", ErrInvalidTransition.WithDetail(fmt.Sprintf("%s is not allowed while chapter is %s", event, current))
	}
	return next, nil
}

// LeaseStamp 租约时间戳，精度与 timestamptz 一致，便于按值比对租约持有者
func LeaseStamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// CanTransition 判断事件是否可作用于当前状态
func CanTransition(current ChapterStatus, event ChapterEvent, leaseExpired bool) bool {
	_, err := NextStatus(current, event, leaseExpired)
	return err == nil
}

// SourceStatuses 返回无需租约过期即可接受 event 的全部状态
func SourceStatuses(event ChapterEvent) []ChapterStatus {
	var out []ChapterStatus
	for _, s := range AllChapterStatuses {
		if CanTransition(s, event, false) {
			out = append(out, s)
		}
	}
	return out
}

func isKnownStatus(s ChapterStatus) bool {
	for _, known := range AllChapterStatuses {
		if s == known {
			return true
		}
	}
	return false
}
