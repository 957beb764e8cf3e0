package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/nfnt/resize"
	"github.com/v0xg/roleverify/internal/expect"
	"github.com/v0xg/roleverify/internal/failure"
	"github.com/v0xg/roleverify/internal/locator"
	"github.com/v0xg/roleverify/internal/overlay"
)

// DefaultTimeout bounds resolving the capture region
const DefaultTimeout = 5 * time.Second

// Request configures a capture
type Request struct {
	Target    locator.Descriptor  // Region to screenshot
	Path      string              // Output file, overwritten
	Highlight *locator.Descriptor // Optional element to outline inside the region
	MaxWidth  uint                // Downscale wider captures; 0 keeps native size
	Timeout   time.Duration
}

// Artifact is a written screenshot
type Artifact struct {
	Path   string
	Bytes  []byte
	Width  int
	Height int
}

// Capture screenshots the whole bounding box of req.Target, including any
// part outside the viewport, and writes it to req.Path. Every failure is a
// CaptureError.
func Capture(ctx context.Context, page *rod.Page, req Request) (*Artifact, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := req.Target.String()
	loc := locator.New(page, req.Target)

	var el *rod.Element
	_, err := expect.Poll(ctx, timeout, expect.PollInterval, func(ctx context.Context) (bool, error) {
		found, err := loc.FirstVisible(ctx)
		el = found
		return found != nil, err
	})
	if err != nil {
		return nil, failure.New(failure.CaptureError, target, fmt.Errorf("region not resolved: %w", err))
	}
	el = el.Context(ctx)

	region, err := pageBox(el)
	if err != nil {
		return nil, failure.New(failure.CaptureError, target, fmt.Errorf("region box: %w", err))
	}
	clip := region.clip()

	data, err := page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		Clip:                  &clip,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, failure.New(failure.CaptureError, target, fmt.Errorf("screenshot: %w", err))
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, failure.New(failure.CaptureError, target, fmt.Errorf("decode screenshot: %w", err))
	}

	var mark image.Rectangle
	if req.Highlight != nil {
		mark, err = highlightBox(ctx, page, *req.Highlight, clip, img.Bounds())
		if err != nil {
			return nil, failure.New(failure.CaptureError, req.Highlight.String(), fmt.Errorf("highlight: %w", err))
		}
	}

	out, err := Render(img, mark, req.MaxWidth)
	if err != nil {
		return nil, failure.New(failure.CaptureError, target, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, failure.New(failure.CaptureError, target, fmt.Errorf("encode: %w", err))
	}
	if err := Write(req.Path, buf.Bytes()); err != nil {
		return nil, failure.New(failure.CaptureError, target, err)
	}

	return &Artifact{
		Path:   req.Path,
		Bytes:  buf.Bytes(),
		Width:  out.Bounds().Dx(),
		Height: out.Bounds().Dy(),
	}, nil
}

// Render outlines mark (when non-empty) and downsizes img to maxWidth,
// keeping the aspect ratio
func Render(img image.Image, mark image.Rectangle, maxWidth uint) (image.Image, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.New("zero-size capture region")
	}

	var out image.Image = img
	if !mark.Empty() {
		out = overlay.Outline(img, mark, overlay.DefaultColor)
	}
	if maxWidth > 0 && uint(bounds.Dx()) > maxWidth {
		out = resize.Resize(maxWidth, 0, out, resize.Lanczos3)
	}
	return out, nil
}

// Write replaces path with data, creating parent directories. The file is
// written beside the target and renamed so readers never see a partial image.
func Write(path string, data []byte) error {
	if path == "" {
		return errors.New("empty artifact path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".capture-*.png")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// Box is an element's border box in CSS pixels relative to the document, so
// it does not depend on the scroll position.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

const pageBoxJS = `function() {
	const r = this.getBoundingClientRect();
	return {x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
}`

func pageBox(el *rod.Element) (Box, error) {
	res, err := el.Eval(pageBoxJS)
	if err != nil {
		return Box{}, err
	}
	var b Box
	if err := res.Value.Unmarshal(&b); err != nil {
		return Box{}, fmt.Errorf("decode box: %w", err)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return Box{}, errors.New("element has no size")
	}
	return b, nil
}

// clip rounds b outward to whole pixels for a screenshot clip
func (b Box) clip() proto.PageViewport {
	x0, y0 := math.Floor(b.X), math.Floor(b.Y)
	x1, y1 := math.Ceil(b.X+b.Width), math.Ceil(b.Y+b.Height)
	return proto.PageViewport{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Scale: 1}
}

func highlightBox(ctx context.Context, page *rod.Page, d locator.Descriptor, clip proto.PageViewport, imgBounds image.Rectangle) (image.Rectangle, error) {
	hl, err := locator.New(page, d).FirstVisible(ctx)
	if err != nil {
		return image.Rectangle{}, err
	}
	if hl == nil {
		return image.Rectangle{}, fmt.Errorf("%s not visible", d)
	}
	inner, err := pageBox(hl.Context(ctx))
	if err != nil {
		return image.Rectangle{}, err
	}
	return Relative(clip, inner, imgBounds), nil
}

// Relative maps inner, in document coordinates, into the pixel space of an
// image captured from clip
func Relative(clip proto.PageViewport, inner Box, imgBounds image.Rectangle) image.Rectangle {
	sx := float64(imgBounds.Dx()) / clip.Width
	sy := float64(imgBounds.Dy()) / clip.Height
	return image.Rect(
		int(math.Floor((inner.X-clip.X)*sx)),
		int(math.Floor((inner.Y-clip.Y)*sy)),
		int(math.Ceil((inner.X-clip.X+inner.Width)*sx)),
		int(math.Ceil((inner.Y-clip.Y+inner.Height)*sy)),
	).Add(imgBounds.Min)
}
