package headless

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
)

// frame is a nested document of the tab.
type frame struct {
	session *Session
	id      cdp.FrameID
	name    string
	url     string
}

func (f *frame) Name() string { return f.name }
func (f *frame) URL() string  { return f.url }

func (f *frame) Query(ctx context.Context, selector string) (crawler.Element, error) {
	obj, err := f.session.evaluate(ctx, f.id, fmt.Sprintf("document.querySelector(%s)", jsString(selector)))
	if err != nil {
		return nil, err
	}
	if isNullObject(obj) {
		return nil, nil
	}
	return &element{session: f.session, id: obj.ObjectID}, nil
}

func (f *frame) QueryAll(ctx context.Context, selector string) ([]crawler.Element, error) {
	obj, err := f.session.evaluate(ctx, f.id, fmt.Sprintf("Array.from(document.querySelectorAll(%s))", jsString(selector)))
	if err != nil {
		return nil, err
	}
	return f.session.elementsOf(ctx, obj)
}

// element is a handle to a DOM node. Handles to nodes that left the document
// report crawler.ErrStaleElement.
type element struct {
	session *Session
	id      runtime.RemoteObjectID
}

const (
	textFn = `function(){ return this.isConnected ? (this.textContent || "") : null; }`
	// clickFn scrolls before clicking since the list panel lazily renders.
	clickFn = `function(){
  if (!this.isConnected) { return false; }
  this.scrollIntoView({block: "center"});
  this.click();
  return true;
}`
)

func (e *element) Text(ctx context.Context) (string, error) {
	obj, err := e.session.callOn(ctx, e.id, textFn, true)
	if err != nil {
		return "", err
	}
	var text *string
	if err := decodeValue(obj, &text); err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	if text == nil {
		return "", crawler.ErrStaleElement
	}
	return *text, nil
}

func (e *element) Click(ctx context.Context) error {
	obj, err := e.session.callOn(ctx, e.id, clickFn, true)
	if err != nil {
		return err
	}
	var clicked bool
	if err := decodeValue(obj, &clicked); err != nil {
		return fmt.Errorf("decode click result: %w", err)
	}
	if !clicked {
		return crawler.ErrStaleElement
	}
	return nil
}

func (e *element) Query(ctx context.Context, selector string) (crawler.Element, error) {
	return e.single(ctx, fmt.Sprintf("function(){ return this.querySelector(%s); }", jsString(selector)))
}

func (e *element) QueryAll(ctx context.Context, selector string) ([]crawler.Element, error) {
	obj, err := e.session.callOn(ctx, e.id,
		fmt.Sprintf("function(){ return Array.from(this.querySelectorAll(%s)); }", jsString(selector)), false)
	if err != nil {
		return nil, err
	}
	return e.session.elementsOf(ctx, obj)
}

func (e *element) Closest(ctx context.Context, selector string) (crawler.Element, error) {
	return e.single(ctx, closestFn(selector))
}

// closestFn starts at the parent so a node matching selector is never its own
// container.
func closestFn(selector string) string {
	return fmt.Sprintf("function(){ return this.parentElement ? this.parentElement.closest(%s) : null; }", jsString(selector))
}

func (e *element) single(ctx context.Context, fn string) (crawler.Element, error) {
	obj, err := e.session.callOn(ctx, e.id, fn, false)
	if err != nil {
		return nil, err
	}
	if isNullObject(obj) {
		return nil, nil
	}
	return &element{session: e.session, id: obj.ObjectID}, nil
}
