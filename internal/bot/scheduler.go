package bot

import (
	"fmt"
	"sync"
	"time"
)

// scheduler — тикеры периодических задач расширений. Сам задачу не выполняет:
// fire только ставит её в очередь цикла.
type scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
	wg    sync.WaitGroup
}

type task struct {
	owner  string
	stopCh chan struct{}
}

func newScheduler() *scheduler {
	return &scheduler{tasks: map[string]*task{}}
}

func (s *scheduler) add(owner, name string, interval time.Duration, fire func()) error {
	if interval <= 0 {
		return fmt.Errorf("task %q: interval must be positive", name)
	}
	key := owner + "/" + name

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[key]; ok {
		return fmt.Errorf("task %q is already scheduled", name)
	}
	t := &task{owner: owner, stopCh: make(chan struct{})}
	s.tasks[key] = t

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		tk := time.NewTicker(interval)
		defer tk.Stop()

		for {
			select {
			case <-tk.C:
				fire()
			case <-t.stopCh:
				return
			}
		}
	}()
	return nil
}

func (s *scheduler) stopOwner(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.tasks {
		if t.owner == owner {
			close(t.stopCh)
			delete(s.tasks, key)
		}
	}
}

func (s *scheduler) stopAll() {
	s.mu.Lock()
	for key, t := range s.tasks {
		close(t.stopCh)
		delete(s.tasks, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *scheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
