package bridge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/renderbridge/config"
	"github.com/use-agent/renderbridge/dispatch"
	"github.com/use-agent/renderbridge/models"
)

func testBridge(runner func(context.Context, *models.RenderRequest) *models.Outcome) *Bridge {
	cfg := config.Load()
	return NewWithDispatcher(cfg, dispatch.New(cfg.Dispatch, runner))
}

func TestRender_Success(t *testing.T) {
	var got *models.RenderRequest
	b := testBridge(func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		got = req
		return models.Success("<html>hi</html>")
	})

	html, err := b.Render(context.Background(), "http://example.test/", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if html != "<html>hi</html>" {
		t.Errorf("unexpected HTML: %q", html)
	}
	if got.Options.Timeout != models.DefaultTimeoutMs {
		t.Errorf("defaults not applied before dispatch: %+v", got.Options)
	}
}

func TestRender_ValidationRejectsBeforeDispatch(t *testing.T) {
	b := testBridge(func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		t.Fatal("invalid request must not reach the dispatcher")
		return nil
	})

	_, err := b.Render(context.Background(), "ftp://example.test/", nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported url scheme") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRender_TimeoutClampedToMax(t *testing.T) {
	var got int
	b := testBridge(func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		got = req.Options.Timeout
		return models.Success("")
	})
	b.cfg.Render.MaxTimeout = 10 * time.Second

	opts := models.RenderOptions{Timeout: 600_000}
	if _, err := b.Render(context.Background(), "http://example.test/", &opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10_000 {
		t.Errorf("timeout not clamped: got %d ms", got)
	}
}

func TestRender_ErrorsCarryKindTag(t *testing.T) {
	b := testBridge(func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		return models.Failure(models.Errorf(models.ErrTimeout, "rendering timed out after 5s"))
	})

	_, err := b.Render(context.Background(), "http://example.test/", nil)
	if err == nil || !strings.HasPrefix(err.Error(), "TimeoutError:") {
		t.Errorf("missing kind tag: %v", err)
	}
}

func TestRenderAsync(t *testing.T) {
	b := testBridge(func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		return models.Success("<p>async</p>")
	})

	ch := b.RenderAsync(context.Background(), "http://example.test/", nil)

	select {
	case res := <-ch:
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.HTML != "<p>async</p>" {
			t.Errorf("unexpected HTML: %q", res.HTML)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("async result never arrived")
	}

	if _, open := <-ch; open {
		t.Error("channel must close after its single result")
	}
}
