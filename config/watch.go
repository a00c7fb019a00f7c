package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 基于 fsnotify 监听配置文件变化。
// 变化时重新 Load + Validate，通过回调交给调用方重建引擎实例；
// 运行中的配置永远不被原地修改。
type Watcher struct {
	path     string
	cooldown time.Duration
	watcher  *fsnotify.Watcher

	mu         sync.Mutex
	lastReload time.Time
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewWatcher 创建配置监听器；cooldown 用于吸收编辑器连续写入。
func NewWatcher(path string, cooldown time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	return &Watcher{
		path:     path,
		cooldown: cooldown,
		watcher:  fsw,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start 开始监听；onUpdate 收到的是已通过校验的新配置。
func (w *Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	go w.loop(ctx, onUpdate)
	return nil
}

// Stop 停止监听并关闭底层 watcher。
func (w *Watcher) Stop() error {
	select {
	case <-w.stopChan:
	default:
		close(w.stopChan)
	}
	select {
	case <-w.doneChan:
	case <-time.After(time.Second):
	}
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context, onUpdate func(AppConfig)) {
	defer close(w.doneChan)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.reload(onUpdate)
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// 监听错误不致命，继续等待下一个事件。
		}
	}
}

func (w *Watcher) reload(onUpdate func(AppConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if time.Since(w.lastReload) < w.cooldown {
		return
	}
	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		// 坏配置不生效，保留正在运行的实例。
		return
	}
	w.lastReload = time.Now()
	if onUpdate != nil {
		onUpdate(cfg)
	}
}
