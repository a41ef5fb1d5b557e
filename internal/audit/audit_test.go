package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/haulbook/internal/audit"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

var testSession = &session.Session{Token: "token"}

// gatedSource blocks each query until the test releases it, so responses
// can be delivered in any order.
type gatedSource struct {
	started chan string
	gates   map[string]chan struct{}
	entries map[string][]audit.Entry
	errs    map[string]error
}

func newGatedSource(actions ...string) *gatedSource {
	g := &gatedSource{
		started: make(chan string, len(actions)),
		gates:   make(map[string]chan struct{}),
		entries: make(map[string][]audit.Entry),
		errs:    make(map[string]error),
	}

	for _, a := range actions {
		g.gates[a] = make(chan struct{})
		g.entries[a] = []audit.Entry{{ID: int64(len(a)), Action: a}}
	}

	return g
}

func (g *gatedSource) AuditLogs(_ context.Context, _ *session.Session, f audit.Filter) ([]audit.Entry, error) {
	g.started <- f.Action
	<-g.gates[f.Action]

	return g.entries[f.Action], g.errs[f.Action]
}

type outcome struct {
	res audit.Result
	ok  bool
}

func load(l *audit.Loader, action string) <-chan outcome {
	ch := make(chan outcome, 1)

	go func() {
		res, ok := l.Load(context.Background(), testSession, audit.Filter{Action: action})
		ch <- outcome{res: res, ok: ok}
	}()

	return ch
}

func wait(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()

	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit query")
		return outcome{}
	}
}

func TestLoader_DropsStaleResponse(t *testing.T) {
	src := newGatedSource("approve", "pay")
	loader := audit.NewLoader(src)

	first := load(loader, "approve")
	require.Equal(t, "approve", <-src.started)

	second := load(loader, "pay")
	require.Equal(t, "pay", <-src.started)

	close(src.gates["pay"])

	got := wait(t, second)
	require.True(t, got.ok)
	require.NoError(t, got.res.Err)
	assert.Equal(t, "pay", got.res.Filter.Action)
	assert.Equal(t, src.entries["pay"], got.res.Entries)
	assert.True(t, loader.Current(got.res.Seq))

	close(src.gates["approve"])

	stale := wait(t, first)
	assert.False(t, stale.ok)
	assert.Empty(t, stale.res.Entries)
}

func TestLoader_InOrderResponses(t *testing.T) {
	src := newGatedSource("approve", "pay")
	loader := audit.NewLoader(src)

	first := load(loader, "approve")
	require.Equal(t, "approve", <-src.started)
	close(src.gates["approve"])

	got := wait(t, first)
	require.True(t, got.ok)
	assert.Equal(t, "approve", got.res.Filter.Action)

	second := load(loader, "pay")
	require.Equal(t, "pay", <-src.started)
	close(src.gates["pay"])

	got = wait(t, second)
	require.True(t, got.ok)
	assert.Equal(t, "pay", got.res.Filter.Action)
}

func TestLoader_ErrorIsReturnedForLatestQuery(t *testing.T) {
	src := newGatedSource("generate")
	src.errs["generate"] = errors.New("backend down")
	loader := audit.NewLoader(src)

	ch := load(loader, "generate")
	<-src.started
	close(src.gates["generate"])

	got := wait(t, ch)
	require.True(t, got.ok)
	assert.ErrorContains(t, got.res.Err, "backend down")
}

func TestSequencer(t *testing.T) {
	var s audit.Sequencer

	a := s.Next()
	b := s.Next()

	assert.Greater(t, b, a)
	assert.False(t, s.IsLatest(a))
	assert.True(t, s.IsLatest(b))
}

func TestFilter_Normalize(t *testing.T) {
	f := audit.Filter{Action: "  pay ", User: " dana "}.Normalize()

	assert.Equal(t, "pay", f.Action)
	assert.Equal(t, "dana", f.User)
}
