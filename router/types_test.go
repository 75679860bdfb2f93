package router

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var errBoom = errors.New("boom")

type Base struct {
	ID int
}

type Derived struct {
	Base
	Name string
}

type Deeper struct {
	*Derived
	Extra bool
}

type hidden struct {
	X int
}

type WithHidden struct {
	hidden
	Base
}

type Node struct {
	*Node
	Val int
}

type Named interface {
	Name() string
}

type person struct {
	name string
}

func (p person) Name() string {
	return p.name
}

type firstEvent struct{}
type secondEvent struct{}
type thirdEvent struct{}

// stringRecorder records every string it receives.
type stringRecorder struct {
	mux      sync.Mutex
	received []string
}

func (s *stringRecorder) HandleString(val string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.received = append(s.received, val)
}

func (s *stringRecorder) values() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]string(nil), s.received...)
}

type intCounter struct {
	count atomic.Int64
}

func (c *intCounter) HandleInt(int) {
	c.count.Add(1)
}

type stringProducer struct {
	calls atomic.Int32
	value string
}

func (p *stringProducer) ProduceString() string {
	p.calls.Add(1)
	return p.value
}

type multiProducer struct {
	calls int
}

func (p *multiProducer) ProduceInt() int {
	p.calls++
	return 5
}

func (p *multiProducer) ProduceString() string {
	return "multi"
}

type failingProducer struct {
	calls int
}

func (p *failingProducer) ProduceInt() (int, error) {
	return 0, errBoom
}

type nilProducer struct {
	calls int
}

func (p *nilProducer) ProduceBase() *Base {
	return nil
}

type baseRecorder struct {
	values   []Base
	pointers []*Base
	derived  []Derived
}

func (r *baseRecorder) HandleBase(b Base) {
	r.values = append(r.values, b)
}

func (r *baseRecorder) HandleBasePointer(b *Base) {
	r.pointers = append(r.pointers, b)
}

func (r *baseRecorder) HandleDerived(d Derived) {
	r.derived = append(r.derived, d)
}

type deadRecorder struct {
	events []DeadEvent
}

func (d *deadRecorder) HandleDead(evt DeadEvent) {
	d.events = append(d.events, evt)
}

type namedRecorder struct {
	names []string
}

func (n *namedRecorder) HandleNamed(val Named) {
	n.names = append(n.names, val.Name())
}

type failingHandler struct {
	calls int
}

func (f *failingHandler) HandleString(string) error {
	f.calls++
	return errBoom
}

type panickingHandler struct {
	saved context.Context
}

func (p *panickingHandler) HandleString(ctx context.Context, _ string) {
	p.saved = ctx
	panic("handler exploded")
}

// sequence appends labels to a shared log, so ordering across handlers can be checked.
type sequence struct {
	log []string
}

func (s *sequence) add(label string) {
	s.log = append(s.log, label)
}

// postingHandler posts a follow-up event while handling firstEvent.
type postingHandler struct {
	label  string
	seq    *sequence
	router *Router
	next   any
}

func (p *postingHandler) HandleFirst(ctx context.Context, _ firstEvent) error {
	p.seq.add(p.label + ":start")
	if err := p.router.Post(ctx, p.next); err != nil {
		return err
	}
	p.seq.add(p.label + ":end")
	return nil
}

type followUpRecorder struct {
	seq *sequence
}

func (f *followUpRecorder) HandleSecond(secondEvent) {
	f.seq.add("second")
}

func (f *followUpRecorder) HandleThird(thirdEvent) {
	f.seq.add("third")
}
