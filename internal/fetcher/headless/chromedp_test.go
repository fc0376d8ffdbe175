package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
)

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := withDefaults(Config{})
	require.Equal(t, 1280, cfg.WindowWidth)
	require.Equal(t, 720, cfg.WindowHeight)
	require.Equal(t, 45*time.Second, cfg.NavigationTimeout)
	require.Equal(t, 15*time.Second, cfg.ActionTimeout)

	cfg = withDefaults(Config{WindowWidth: 800, NavigationTimeout: time.Second})
	require.Equal(t, 800, cfg.WindowWidth)
	require.Equal(t, time.Second, cfg.NavigationTimeout)
}

func TestNewChromedpRejectsNegativeWindow(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{WindowWidth: -1}, zap.NewNop())
	require.Error(t, err)
}

func TestChildFramesFlattensDepthFirst(t *testing.T) {
	t.Parallel()

	tree := &page.FrameTree{
		Frame: &cdp.Frame{ID: "root"},
		ChildFrames: []*page.FrameTree{
			{
				Frame: &cdp.Frame{ID: "a", Name: "searchIframe"},
				ChildFrames: []*page.FrameTree{
					{Frame: &cdp.Frame{ID: "a1", URL: "https://example.com/ad"}},
				},
			},
			nil,
			{Frame: &cdp.Frame{ID: "b", Name: "entryIframe"}},
		},
	}

	frames := childFrames(tree)
	ids := make([]cdp.FrameID, 0, len(frames))
	for _, f := range frames {
		ids = append(ids, f.ID)
	}
	require.Equal(t, []cdp.FrameID{"a", "a1", "b"}, ids)
	require.Nil(t, childFrames(nil))
}

func TestJSStringEscapes(t *testing.T) {
	t.Parallel()

	require.Equal(t, `"a[role=\"tab\"]"`, jsString(`a[role="tab"]`))
	require.Equal(t, `"메뉴"`, jsString("메뉴"))
}

func TestClosestSkipsSelf(t *testing.T) {
	t.Parallel()

	fn := closestFn("li, div")
	require.Contains(t, fn, `this.parentElement.closest("li, div")`)
	require.NotContains(t, fn, "this.closest(")
}

func TestIsNullObject(t *testing.T) {
	t.Parallel()

	require.True(t, isNullObject(nil))
	require.True(t, isNullObject(&runtime.RemoteObject{Type: runtime.TypeObject, Subtype: runtime.SubtypeNull}))
	require.True(t, isNullObject(&runtime.RemoteObject{Type: runtime.TypeObject}))
	require.False(t, isNullObject(&runtime.RemoteObject{Type: runtime.TypeObject, ObjectID: "1"}))
}

func TestDecodeValue(t *testing.T) {
	t.Parallel()

	var n int
	require.NoError(t, decodeValue(&runtime.RemoteObject{Value: []byte("3")}, &n))
	require.Equal(t, 3, n)

	var s *string
	require.NoError(t, decodeValue(&runtime.RemoteObject{Value: []byte("null")}, &s))
	require.Nil(t, s)

	require.Error(t, decodeValue(&runtime.RemoteObject{}, &n))
}

func TestMissingObjectAndContextDetection(t *testing.T) {
	t.Parallel()

	require.True(t, isMissingObject(errors.New("Could not find object with given id")))
	require.True(t, isMissingContext(fmt.Errorf("wrapped: %w", errors.New("Cannot find context with specified id"))))
	require.False(t, isMissingObject(errors.New("timeout")))
	require.False(t, isMissingContext(nil))
}

func TestForwardCancelPropagates(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()
	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not cancelled")
	}
}

// TestSessionAgainstLocalPage drives a real browser when one is available.
func TestSessionAgainstLocalPage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><iframe id="searchIframe" name="searchIframe" src="/list"></iframe></body></html>`)
	})
	mux.HandleFunc("/list", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><ul>
<li class="UEzoS"><a class="place_bluelink">First</a></li>
<li class="UEzoS"><a class="place_bluelink">Second</a></li>
</ul>
<ul><li class="menu"><div class="MenuContent__tit">라떼</div><span class="MenuContent__price">5,000</span></li></ul>
</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	session, err := NewChromedp(Config{Headless: true, NavigationTimeout: 20 * time.Second}, zap.NewNop())
	if err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}
	defer session.Close()

	ctx := context.Background()
	require.NoError(t, session.Navigate(ctx, srv.URL))

	var results crawler.Frame
	require.Eventually(t, func() bool {
		frames, err := session.Frames(ctx)
		if err != nil {
			return false
		}
		for _, f := range frames {
			if f.Name() == "searchIframe" && strings.HasSuffix(f.URL(), "/list") {
				results = f
				return true
			}
		}
		return false
	}, 10*time.Second, 100*time.Millisecond)

	entries, err := results.QueryAll(ctx, ".UEzoS")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	link, err := entries[1].Query(ctx, ".place_bluelink")
	require.NoError(t, err)
	require.NotNil(t, link)
	text, err := link.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "Second", text)

	parent, err := link.Closest(ctx, "li")
	require.NoError(t, err)
	require.NotNil(t, parent)

	menuName, err := results.Query(ctx, ".MenuContent__tit")
	require.NoError(t, err)
	require.NotNil(t, menuName)
	container, err := menuName.Closest(ctx, "li, div")
	require.NoError(t, err)
	require.NotNil(t, container)
	price, err := container.Query(ctx, ".MenuContent__price")
	require.NoError(t, err)
	require.NotNil(t, price)
	priceText, err := price.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "5,000", priceText)

	missing, err := results.Query(ctx, ".does-not-exist")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, link.Click(ctx))
}
