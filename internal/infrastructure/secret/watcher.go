package secret

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay 合并短时间内的多次文件事件
const reloadDelay = 200 * time.Millisecond

// Watch 监听凭据文件变化并自动重新加载，直到 ctx 结束
// 监听所在目录，以便感知原子替换（rename）写入
func (s *FileStore) Watch(ctx context.Context, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		fire := make(chan struct{}, 1)
		name := filepath.Base(s.path)

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != name {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDelay, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})

			case <-fire:
				if err := s.Reload(); err != nil {
					s.logger.Warn("failed to reload secrets", "error", err)
					continue
				}
				s.logger.Info("secrets reloaded", "path", s.path)
				if onReload != nil {
					onReload()
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("secret watcher error", "error", err)
			}
		}
	}()
	return nil
}
