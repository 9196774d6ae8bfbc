package timepin

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const (
	capabilityAddr  = uintptr(0x1000)
	targetAddr      = uintptr(0x2000)
	trampolineAddr  = uintptr(0x3000)
	replacementAddr = uintptr(0x4000)
)

type fakeModule struct {
	name    string
	exports map[string]uintptr
}

func (m *fakeModule) Name() string {
	return m.name
}

func (m *fakeModule) Lookup(symbol string) (uintptr, error) {
	addr, ok := m.exports[symbol]
	if !ok {
		return 0, errors.New("undefined symbol")
	}
	return addr, nil
}

type lookup struct {
	name  string
	force bool
	at    time.Time
}

type fakeTable struct {
	mu      sync.Mutex
	modules map[string]*fakeModule
	lookups []lookup
}

func (t *fakeTable) FindOrLoad(name string, force bool) (Module, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lookups = append(t.lookups, lookup{name: name, force: force, at: time.Now()})
	m, ok := t.modules[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return m, nil
}

func (t *fakeTable) lookupCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lookups)
}

// setter stands in for the original function body.
type setter struct {
	mu   sync.Mutex
	args []float32
}

func (s *setter) call(v float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.args = append(s.args, v)
}

func (s *setter) calls() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float32(nil), s.args...)
}

func (s *setter) last() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.args) == 0 {
		return 0
	}
	return s.args[len(s.args)-1]
}

// fakeCaller routes native calls: the capability answers from names and the
// trampoline runs body.
type fakeCaller struct {
	names map[string]uintptr
	body  *setter

	mu       sync.Mutex
	resolved []string
}

func (c *fakeCaller) Resolve(capability uintptr, name string) uintptr {
	c.mu.Lock()
	c.resolved = append(c.resolved, name)
	c.mu.Unlock()

	if capability != capabilityAddr {
		return 0
	}
	return c.names[name]
}

func (c *fakeCaller) CallFloat32(fn uintptr, v float32) {
	if fn == trampolineAddr {
		c.body.call(v)
	}
}

// panickingCaller resolves normally but blows up on the first setter call.
type panickingCaller struct {
	*fakeCaller
}

func (c panickingCaller) CallFloat32(fn uintptr, v float32) {
	panic("setter crashed")
}

func (c *fakeCaller) resolvedNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.resolved...)
}

type fakeHooker struct {
	err      error
	installs atomic.Int32
	target   atomic.Uintptr

	// patching runs after origin is published and before Install returns,
	// like a host call landing while the patch is written.
	patching func()
}

func (h *fakeHooker) Install(target, replacement uintptr, origin *atomic.Uintptr) error {
	h.installs.Add(1)
	if h.err != nil {
		return h.err
	}
	origin.Store(trampolineAddr)
	h.target.Store(target)
	if h.patching != nil {
		h.patching()
	}
	return nil
}

// fakeProcess is a host with one module exposing a resolution callback.
type fakeProcess struct {
	table  *fakeTable
	caller *fakeCaller
	hooker *fakeHooker
	body   *setter
}

func newFakeProcess() *fakeProcess {
	body := &setter{}
	return &fakeProcess{
		table: &fakeTable{
			modules: map[string]*fakeModule{
				"libil2cpp.so": {
					name:    "libil2cpp.so",
					exports: map[string]uintptr{"il2cpp_resolve_icall": capabilityAddr},
				},
			},
		},
		caller: &fakeCaller{
			names: map[string]uintptr{"UnityEngine.Time::set_timeScale": targetAddr},
			body:  body,
		},
		hooker: &fakeHooker{},
		body:   body,
	}
}

func (fp *fakeProcess) platform() Platform {
	return Platform{
		Modules:     fp.table,
		Hooker:      fp.hooker,
		Caller:      fp.caller,
		Replacement: replacementAddr,
	}
}

// callSetter is the host calling the setter through its entry point.
func (fp *fakeProcess) callSetter(p *Pin, v float32) {
	if fp.hooker.target.Load() != 0 {
		p.Intercept(v)
		return
	}
	fp.body.call(v)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SettleDelay = 0
	return cfg
}
