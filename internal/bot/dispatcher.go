package bot

import (
	"context"
	"math/rand"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"barghbot/internal/runtime/supervisor"
	kit "barghbot/internal/transport"
	logx "barghbot/pkg/logx"
)

const defaultHandlerTimeout = 50 * time.Second

// Request carries one inbound update through the middleware chain.
type Request struct {
	Update  kit.Update
	ChatID  int64
	FromID  int64
	Command string // "start", "text", "cb:<action>"
	Data    string // message text or raw callback data
	ReqID   string
	Logger  logx.Logger
}

// Dispatcher fans inbound updates out to a bounded worker pool.
//
// Each update runs through the middleware chain (panic recovery, request log,
// timeout). Handlers are free to block on the gateway; slow requests never
// stall the update intake.
type Dispatcher struct {
	log     logx.Logger
	adapter kit.Adapter
	h       *Handlers

	mu     sync.RWMutex
	owners []int64

	runMu   sync.Mutex
	running bool
	sup     *supervisor.Supervisor

	jobs chan func()
}

func NewDispatcher(log logx.Logger, adapter kit.Adapter, h *Handlers, owners []int64) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		log:     log,
		adapter: adapter,
		h:       h,
		owners:  append([]int64(nil), owners...),
		jobs:    make(chan func(), 256),
	}
}

// SetOwners updates the owner list used for owner-only commands.
// Safe to call during hot-reload.
func (d *Dispatcher) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	d.mu.Lock()
	d.owners = cp
	d.mu.Unlock()
}

func (d *Dispatcher) isOwner(id int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, o := range d.owners {
		if o == id {
			return true
		}
	}
	return false
}

// Supervisor returns the dispatcher's internal supervisor (nil if not running).
func (d *Dispatcher) Supervisor() *supervisor.Supervisor {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if !d.running {
		return nil
	}
	return d.sup
}

func (d *Dispatcher) setSupervisor(sup *supervisor.Supervisor, running bool) {
	d.runMu.Lock()
	d.sup = sup
	d.running = running
	d.runMu.Unlock()
}

// tryEnqueue is a panic-safe enqueue helper (handles the jobs channel being closed).
func (d *Dispatcher) tryEnqueue(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case d.jobs <- fn:
		return true
	default:
		return false
	}
}

// DispatchLoop consumes updates until ctx is canceled or the channel closes.
func (d *Dispatcher) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	sup := supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(d.log.With(logx.String("comp", "bot.dispatcher"))),
		supervisor.WithCancelOnError(false),
	)
	d.setSupervisor(sup, true)

	d.log.Info("dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(d.jobs)))

	var closeOnce sync.Once
	closeJobs := func() {
		closeOnce.Do(func() {
			// Mark as not running before closing so enqueue can degrade gracefully.
			d.setSupervisor(sup, false)
			close(d.jobs)
		})
	}

	for i := 0; i < workers; i++ {
		idx := i
		name := "bot.worker." + strconv.Itoa(idx)
		sup.GoRestart(name, func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-d.jobs:
					if !ok {
						return nil
					}
					if job == nil {
						continue
					}
					// A job should never panic (middleware already catches),
					// but keep workers alive if it happens.
					func() {
						defer func() {
							if r := recover(); r != nil {
								d.log.Error("panic in bot job", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		},
			supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			supervisor.WithPublishFirstError(true),
			supervisor.WithStopOnCleanExit(true),
		)
	}

	defer func() {
		closeJobs()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		d.setSupervisor(nil, false)
		d.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				d.log.Info("updates channel closed")
				return nil
			}
			d.route(ctx, up)
		}
	}
}

func (d *Dispatcher) route(root context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		d.routeMessage(root, up)
	case kit.UpdateCallback:
		d.routeCallback(root, up)
	}
}

func (d *Dispatcher) routeMessage(root context.Context, up kit.Update) {
	if up.Message == nil {
		return
	}
	msg := up.Message
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	command := "text"
	var handle HandlerFunc
	if strings.HasPrefix(text, "/") {
		word := strings.TrimPrefix(strings.Fields(text)[0], "/")
		if i := strings.IndexByte(word, '@'); i >= 0 {
			word = word[:i]
		}
		switch word {
		case "start":
			command = "start"
			handle = d.h.Start
		case "health":
			command = "health"
			if !d.isOwner(msg.FromID) {
				return
			}
			handle = d.h.Health
		case "config_reload":
			command = "config_reload"
			if !d.isOwner(msg.FromID) {
				return
			}
			handle = d.h.ConfigReload
		default:
			// Unknown slash commands are ignored, same as non-text updates.
			d.log.Debug("unknown command", logx.Int64("chat_id", msg.ChatID), logx.String("cmd", word))
			return
		}
	} else {
		handle = d.h.Text
	}

	d.enqueue(root, up, command, text, msg.ChatID, msg.FromID, handle)
}

func (d *Dispatcher) routeCallback(root context.Context, up kit.Update) {
	if up.Callback == nil {
		return
	}
	cb := up.Callback
	data := strings.TrimSpace(cb.Data)
	if data == "" {
		return
	}

	// Stop the client-side "loading" spinner right away; handlers may take
	// a while when the gateway is slow.
	_ = d.adapter.AnswerCallback(root, cb.ID, "")

	action := data
	if i := strings.IndexByte(action, ':'); i >= 0 {
		action = action[:i]
	}
	d.enqueue(root, up, "cb:"+action, data, cb.ChatID, cb.FromID, d.h.Callback)
}

func (d *Dispatcher) enqueue(root context.Context, up kit.Update, command, data string, chatID, fromID int64, handle HandlerFunc) {
	rid := newReqID()
	reqLog := d.log.With(
		logx.String("rid", rid),
		logx.Int64("chat_id", chatID),
		logx.Int64("from_id", fromID),
		logx.String("cmd", command),
	)
	req := &Request{
		Update:  up,
		ChatID:  chatID,
		FromID:  fromID,
		Command: command,
		Data:    data,
		ReqID:   rid,
		Logger:  reqLog,
	}

	final := Chain(
		handle,
		MWPanicRecover(d.log),
		MWRequestLog(d.log),
		MWTimeout(defaultHandlerTimeout),
	)

	if !d.tryEnqueue(func() { _ = final(root, req) }) {
		reqLog.Warn("job queue full, update dropped")
	}
}

var ridSeq uint64

func newReqID() string {
	n := atomic.AddUint64(&ridSeq, 1)
	// short-ish: base36 timestamp + seq + 2 random chars
	ts := time.Now().UnixNano()
	return base36(ts) + "-" + base36(int64(n)) + randSuffix(2)
}

func randSuffix(n int) string {
	const alpha = "abcdefghijklmnopqrstuvwxyz0123456789"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alpha[rand.Intn(len(alpha))])
	}
	return b.String()
}

func base36(v int64) string {
	const chars = "0123456789abcdefghijklmnopqrstuvwxyz"
	if v < 0 {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var out [32]byte
	i := len(out)
	for v > 0 {
		i--
		out[i] = chars[v%36]
		v /= 36
	}
	return string(out[i:])
}
