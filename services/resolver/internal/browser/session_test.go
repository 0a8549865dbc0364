package browser

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRendersAndReusesBrowser(t *testing.T) {
	if os.Getenv("UNMARK_TEST_BROWSER") == "" {
		t.Skip("UNMARK_TEST_BROWSER not set")
	}

	opts := DefaultOptions()
	opts.SettleDelay = 100 * time.Millisecond
	opts.DetectVerification = false
	opts.ProfileBaseDir = t.TempDir()
	m := NewManager(opts, zerolog.Nop())
	defer m.Close()

	ctx := context.Background()
	page := "data:text/html,<title>t</title><script>window.__INITIAL_STATE__={note:{id:1}}</script>"
	out, err := m.Render(ctx, RenderRequest{
		URL:    page,
		Script: `() => ({ state: window.__INITIAL_STATE__ || null, lang: navigator.language })`,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Get("state.note.id").Int())

	first, err := m.Acquire(ctx)
	require.NoError(t, err)
	second, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.True(t, m.Healthy())
}

// hungClient accepts CDP calls and never answers them, like a wedged browser.
type hungClient struct{ events chan *cdp.Event }

func (h hungClient) Event() <-chan *cdp.Event { return h.events }

func (h hungClient) Call(ctx context.Context, _, _ string, _ any) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestManagerGivesUpOnHungBrowser(t *testing.T) {
	old := pingTimeout
	pingTimeout = 50 * time.Millisecond
	t.Cleanup(func() { pingTimeout = old })

	m := NewManager(DefaultOptions(), zerolog.Nop())
	m.browser = rod.New().Client(hungClient{events: make(chan *cdp.Event)})

	start := time.Now()
	assert.False(t, m.Healthy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, m.browser, "stale handle dropped")
	assert.Less(t, time.Since(start), 2*time.Second)
}
