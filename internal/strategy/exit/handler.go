package exit

import (
	"fmt"
	"strings"
	"sync"
)

// Handler 是单个退出策略：对 (仓位, 市场快照, 配置) 的无状态谓词。
type Handler interface {
	// ID 返回唯一标识，需与 exit_bundles.yaml 中的 handler 字段一致。
	ID() string
	// Priority 返回该策略触发时的紧急程度（越大越优先）。
	Priority() int
	// Evaluate 评估当前上下文，永不 panic；
	// 非法输入以 OutcomeCannotEvaluate 表示。
	Evaluate(ctx EvalContext) ExitSignal
}

// HandlerRegistry 维护所有注册的 Handler，保留注册顺序用于稳定排序。
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register 将 handler 放入 registry，ID 重复时覆盖。
func (r *HandlerRegistry) Register(h Handler) {
	if r == nil || h == nil {
		return
	}
	id := strings.TrimSpace(h.ID())
	if id == "" {
		panic("exit handler 注册失败: ID 不能为空")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[id]; !exists {
		r.order = append(r.order, id)
	}
	r.handlers[id] = h
}

func (r *HandlerRegistry) Handler(id string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.TrimSpace(id)]
	return h, ok
}

// MustHandler 获取 handler，不存在则 panic（仅用于启动期装配）。
func (r *HandlerRegistry) MustHandler(id string) Handler {
	if h, ok := r.Handler(id); ok {
		return h
	}
	panic(fmt.Sprintf("exit handler 未注册: %s", id))
}

// Handlers 按注册顺序返回全部 handler。
func (r *HandlerRegistry) Handlers() []Handler {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Handler, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.handlers[id])
	}
	return list
}
