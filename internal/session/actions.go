package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/warblehq/warble/internal/browser"
	"github.com/warblehq/warble/internal/reply"
	"github.com/warblehq/warble/internal/schedule"
)

// execute performs the requested action on the chosen post, filling in the
// result as it goes.
func (e *Engine) execute(ctx context.Context, d browser.Driver, req RunRequest, post browser.Element, text string, res *Result) error {
	switch req.Action {
	case schedule.ActionLike:
		return e.doLike(post, res)
	case schedule.ActionReshare:
		return e.doReshare(ctx, d, post, res)
	case schedule.ActionComment:
		return e.doComment(ctx, d, req, post, text, res)
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}
}

// doLike is idempotent: an already-liked post (unlike control present) is
// reported as success without a second click.
func (e *Engine) doLike(post browser.Element, res *Result) error {
	if _, err := e.locator.LocateIn(post, browser.RoleUnlike); err == nil {
		log.Printf("[session] post already liked, leaving as is")
		res.Outcome = OutcomeSuccess
		res.AlreadyLiked = true
		return nil
	}
	btn, err := e.locator.LocateIn(post, browser.RoleLike)
	if err != nil {
		return fmt.Errorf("like control not found: %w", err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("click like: %w", err)
	}
	res.Outcome = OutcomeSuccess
	return nil
}

// doReshare opens the reshare menu and requires the confirm control; a
// menu that opened but cannot be confirmed is a partial outcome, not a
// failure.
func (e *Engine) doReshare(ctx context.Context, d browser.Driver, post browser.Element, res *Result) error {
	btn, err := e.locator.LocateIn(post, browser.RoleReshare)
	if err != nil {
		return fmt.Errorf("reshare control not found: %w", err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("open reshare menu: %w", err)
	}
	confirm, err := e.locator.Locate(ctx, d, browser.RoleReshareConfirm, actionSelectorWait)
	if err != nil {
		log.Printf("[session] reshare menu opened but confirm control missing")
		res.Outcome = OutcomePartial
		res.Note = "reshare unconfirmed"
		return nil
	}
	if err := confirm.Click(); err != nil {
		res.Outcome = OutcomePartial
		res.Note = "reshare confirm click failed"
		return nil
	}
	res.Outcome = OutcomeSuccess
	return nil
}

func (e *Engine) resharePost(post browser.Element) error {
	btn, err := e.locator.LocateIn(post, browser.RoleReshare)
	if err != nil {
		return err
	}
	if err := btn.Click(); err != nil {
		return err
	}
	confirm, err := e.locator.LocateIn(post, browser.RoleReshareConfirm)
	if err != nil {
		return err
	}
	return confirm.Click()
}

// doComment opens the reply composer, generates (or uses the supplied)
// text, types it, and submits. A composer that accepts text but whose
// submit never becomes usable leaves a partial outcome.
func (e *Engine) doComment(ctx context.Context, d browser.Driver, req RunRequest, post browser.Element, text string, res *Result) error {
	open, err := e.locator.LocateIn(post, browser.RoleReplyOpen)
	if err != nil {
		return fmt.Errorf("reply control not found: %w", err)
	}
	if err := open.Click(); err != nil {
		return fmt.Errorf("open composer: %w", err)
	}

	comment := req.CustomComment
	if comment == "" {
		comment = e.replies.Generate(ctx, reply.Input{
			Text:    text,
			Images:  e.collectImages(ctx, post),
			Persona: req.Profile.Persona,
		})
	}
	res.CommentText = comment

	composer, err := e.locator.Locate(ctx, d, browser.RoleComposer, actionSelectorWait)
	if err != nil {
		return fmt.Errorf("composer not found: %w", err)
	}
	if err := composer.Type(comment); err != nil {
		return fmt.Errorf("type comment: %w", err)
	}

	submit, err := e.locator.Locate(ctx, d, browser.RoleSubmit, actionSelectorWait)
	if err != nil {
		res.Outcome = OutcomePartial
		res.Note = "comment typed but submit control missing"
		return nil
	}
	if err := submit.Click(); err != nil {
		res.Outcome = OutcomePartial
		res.Note = "comment typed but submit click failed"
		return nil
	}

	res.Outcome = OutcomeSuccess
	res.ReplyRef = e.recoverReplyRef(ctx, d, comment)
	if res.ReplyRef == "" {
		log.Printf("[session] comment submitted but reply permalink not recovered")
	}
	return nil
}

const (
	maxCommentImages = 2
	imageFetchLimit  = 2 << 20
)

// collectImages downloads the post's attached images so the generator can
// reply to image-only posts. Failures degrade to a text-only prompt.
func (e *Engine) collectImages(ctx context.Context, post browser.Element) []reply.Image {
	var images []reply.Image
	img, err := e.locator.LocateIn(post, browser.RolePostImage)
	if err != nil {
		return nil
	}
	src, ok, err := img.Attribute("src")
	if err != nil || !ok || src == "" {
		return nil
	}
	if data, mime, err := fetchImage(ctx, src); err == nil {
		images = append(images, reply.Image{MIME: mime, Data: data})
	} else {
		log.Printf("[session] fetch post image: %v", err)
	}
	if len(images) > maxCommentImages {
		images = images[:maxCommentImages]
	}
	return images
}

func fetchImage(ctx context.Context, src string) ([]byte, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, imageFetchLimit))
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}
