package bot

import (
	"fmt"
	"math"
	"time"
)

// cooldowns — время последнего вызова по пользователю и команде.
// Используется только из цикла Run.
type cooldowns struct {
	last map[string]map[string]time.Time
}

func newCooldowns() *cooldowns {
	return &cooldowns{last: map[string]map[string]time.Time{}}
}

// remaining — сколько ещё ждать; 0, если команда доступна.
func (c *cooldowns) remaining(userID, command string, cooldown time.Duration, now time.Time) time.Duration {
	used, ok := c.last[userID][command]
	if !ok {
		return 0
	}
	left := used.Add(cooldown).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (c *cooldowns) touch(userID, command string, now time.Time) {
	user, ok := c.last[userID]
	if !ok {
		user = map[string]time.Time{}
		c.last[userID] = user
	}
	user[command] = now
}

func (c *cooldowns) clear(userID, command string) {
	user, ok := c.last[userID]
	if !ok {
		return
	}
	delete(user, command)
	if len(user) == 0 {
		delete(c.last, userID)
	}
}

// formatWait округляет вверх до секунды: 1.2s -> "2s".
func formatWait(d time.Duration) string {
	sec := int(math.Ceil(d.Seconds()))
	if sec < 1 {
		sec = 1
	}
	return fmt.Sprintf("%ds", sec)
}
