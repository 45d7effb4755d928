package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFindTimeout bounds a single selector wait.
const DefaultFindTimeout = 5 * time.Second

// Element is one located DOM node. The interface keeps rod out of the
// session engine so tests can substitute fakes.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, bool, error)
	Click() error
	Type(text string) error
	Visible() bool
	// Find locates a descendant of this element without waiting.
	Find(selector string) (Element, error)
}

// Driver is the minimal browser-control surface the session engine uses:
// navigate, find by selector (waiting up to a bounded timeout), enumerate
// current matches, scroll, close.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Find(ctx context.Context, selector string, wait time.Duration) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	Scroll(ctx context.Context, deltaY int) error
	Close() error
}

// DriverFactory opens a Driver against a remote browser's control URL.
type DriverFactory func(ctx context.Context, controlURL string) (Driver, error)

// Connect attaches to a remote browser over its devtools control URL and
// opens a fresh page.
func Connect(ctx context.Context, controlURL string) (Driver, error) {
	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &rodDriver{browser: b, page: page}, nil
}

type rodDriver struct {
	browser *rod.Browser
	page    *rod.Page
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	page := d.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (d *rodDriver) Find(ctx context.Context, selector string, wait time.Duration) (Element, error) {
	if wait <= 0 {
		wait = DefaultFindTimeout
	}
	el, err := d.page.Context(ctx).Timeout(wait).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	return &rodElement{el: el}, nil
}

func (d *rodDriver) FindAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := d.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("find all %q: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (d *rodDriver) Scroll(ctx context.Context, deltaY int) error {
	return d.page.Context(ctx).Mouse.Scroll(0, float64(deltaY), 1)
}

func (d *rodDriver) Close() error {
	return d.browser.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Click() error {
	if err := e.el.ScrollIntoView(); err != nil {
		return err
	}
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Type(text string) error {
	if err := e.el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	return e.el.Input(text)
}

func (e *rodElement) Visible() bool {
	ok, err := e.el.Visible()
	return err == nil && ok
}

func (e *rodElement) Find(selector string) (Element, error) {
	el, err := e.el.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q in element: %w", selector, err)
	}
	return &rodElement{el: el}, nil
}
