// Package guard serializes read-then-write sequences by string key, so
// two concurrent requests for the same email or survey+user cannot both
// pass a uniqueness check before either write commits.
package guard

type lockReq struct {
	key      string
	acquired chan struct{}
}

// Keyed hands out exclusive critical sections per key. A single
// goroutine owns all state; callers talk to it over channels.
type Keyed struct {
	acquire chan lockReq
	release chan string
}

func New() *Keyed {
	g := &Keyed{
		acquire: make(chan lockReq),
		release: make(chan string),
	}
	go g.loop()
	return g
}

func (g *Keyed) loop() {
	held := make(map[string]bool)
	waiting := make(map[string][]chan struct{})

	for {
		select {
		case req := <-g.acquire:
			if held[req.key] {
				waiting[req.key] = append(waiting[req.key], req.acquired)
			} else {
				held[req.key] = true
				close(req.acquired)
			}
		case key := <-g.release:
			if queue := waiting[key]; len(queue) > 0 {
				close(queue[0])
				if len(queue) == 1 {
					delete(waiting, key)
				} else {
					waiting[key] = queue[1:]
				}
			} else {
				delete(held, key)
			}
		}
	}
}

// Lock blocks until the key is free, then holds it until Unlock.
func (g *Keyed) Lock(key string) {
	acquired := make(chan struct{})
	g.acquire <- lockReq{key, acquired}
	<-acquired
}

func (g *Keyed) Unlock(key string) {
	g.release <- key
}
