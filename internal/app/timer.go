package app

import "time"

// countdown is the tick source of one question. A session owns at most one.
// stop does not wait for the goroutine: a tick already in flight is rejected
// by the session through its token.
type countdown struct {
	token uint64
	stop  chan struct{}
}

func startCountdown(token uint64, interval time.Duration, onTick func(token uint64)) *countdown {
	c := &countdown{token: token, stop: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				onTick(token)
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

func (c *countdown) halt() {
	close(c.stop)
}
