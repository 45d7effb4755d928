package browser

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeElement struct {
	text string
}

func (f *fakeElement) Text() (string, error)                  { return f.text, nil }
func (f *fakeElement) Attribute(string) (string, bool, error) { return "", false, nil }
func (f *fakeElement) Click() error                           { return nil }
func (f *fakeElement) Type(string) error                      { return nil }
func (f *fakeElement) Visible() bool                          { return true }
func (f *fakeElement) Find(string) (Element, error)           { return nil, fmt.Errorf("not found") }

type fakeDriver struct {
	elements map[string][]Element
	finds    []string
}

func (f *fakeDriver) Navigate(context.Context, string) error { return nil }

func (f *fakeDriver) Find(_ context.Context, selector string, _ time.Duration) (Element, error) {
	f.finds = append(f.finds, selector)
	els := f.elements[selector]
	if len(els) == 0 {
		return nil, fmt.Errorf("find %q: not found", selector)
	}
	return els[0], nil
}

func (f *fakeDriver) FindAll(_ context.Context, selector string) ([]Element, error) {
	return f.elements[selector], nil
}

func (f *fakeDriver) Scroll(context.Context, int) error { return nil }
func (f *fakeDriver) Close() error                      { return nil }

func TestLocate_FallbackOrder(t *testing.T) {
	l := NewLocatorWithStrategies(map[Role][]string{
		RoleLike: {"#primary", "#secondary"},
	})
	d := &fakeDriver{elements: map[string][]Element{
		"#secondary": {&fakeElement{text: "like"}},
	}}

	el, err := l.Locate(context.Background(), d, RoleLike, 4*time.Second)
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	got, _ := el.Text()
	if got != "like" {
		t.Errorf("element text = %q, want like", got)
	}
	if len(d.finds) != 2 || d.finds[0] != "#primary" {
		t.Errorf("finds = %v, want primary tried first", d.finds)
	}
}

func TestLocate_AllFail(t *testing.T) {
	l := NewLocatorWithStrategies(map[Role][]string{
		RoleSubmit: {"#a", "#b"},
	})
	d := &fakeDriver{elements: map[string][]Element{}}

	if _, err := l.Locate(context.Background(), d, RoleSubmit, 2*time.Second); err == nil {
		t.Error("expected error when every selector fails")
	}
}

func TestLocate_UnknownRole(t *testing.T) {
	l := NewLocatorWithStrategies(map[Role][]string{})
	if _, err := l.Locate(context.Background(), &fakeDriver{}, Role("nope"), time.Second); err == nil {
		t.Error("expected error for unregistered role")
	}
}

func TestLocateAll(t *testing.T) {
	l := NewLocatorWithStrategies(map[Role][]string{
		RolePost: {"article.empty", "article.full"},
	})
	d := &fakeDriver{elements: map[string][]Element{
		"article.full": {&fakeElement{}, &fakeElement{}},
	}}

	els, err := l.LocateAll(context.Background(), d, RolePost)
	if err != nil {
		t.Fatalf("LocateAll error: %v", err)
	}
	if len(els) != 2 {
		t.Errorf("len(els) = %d, want 2", len(els))
	}
}

func TestDefaultStrategies_CoverEveryRole(t *testing.T) {
	l := NewLocator()
	roles := []Role{
		RoleAuthMarker, RolePost, RolePostText, RolePostImage, RolePostLink,
		RoleLike, RoleUnlike, RoleReshare, RoleReshareConfirm, RoleBookmark,
		RoleReplyOpen, RoleComposer, RoleSubmit, RoleReplyMarker, RoleTimestamp,
	}
	for _, r := range roles {
		if len(l.Selectors(r)) == 0 {
			t.Errorf("role %s has no selectors", r)
		}
	}
}
