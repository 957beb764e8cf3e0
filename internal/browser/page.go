package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/v0xg/roleverify/internal/artifact"
	"github.com/v0xg/roleverify/internal/executor"
	"github.com/v0xg/roleverify/internal/expect"
	"github.com/v0xg/roleverify/internal/inspect"
	"github.com/v0xg/roleverify/internal/scenario"
)

// Page is a navigated tab. It is released with its Session.
type Page struct {
	page *rod.Page
}

var _ scenario.Page = (*Page)(nil)

// Rod returns the underlying Rod page
func (p *Page) Rod() *rod.Page {
	return p.page
}

func (p *Page) Perform(ctx context.Context, step executor.Step) error {
	return executor.Run(ctx, p.page, step)
}

func (p *Page) Expect(ctx context.Context, a expect.Assertion) error {
	return expect.Check(ctx, p.page, a)
}

func (p *Page) Capture(ctx context.Context, req artifact.Request) (*artifact.Artifact, error) {
	return artifact.Capture(ctx, p.page, req)
}

func (p *Page) Snapshot(ctx context.Context) (*inspect.PageMap, error) {
	return inspect.Snapshot(ctx, p.page)
}
