package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parlaysocial/feedcore/internal/client/models"
	"github.com/parlaysocial/feedcore/internal/client/querycache"
)

func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	if _, err := a.gate.Register(ctx, email, username, password); err != nil {
		fmt.Println("registration failed:", err)
		return err
	}
	fmt.Println("registered and logged in")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	if _, err := a.gate.Login(ctx, email, password); err != nil {
		fmt.Println("login failed:", err)
		return err
	}
	fmt.Println("logged in")
	return nil
}

func (a *App) Feed(ctx context.Context) error {
	if a.feedSub == nil {
		sub, err := a.feed.SubscribeFeed(ctx)
		if err != nil {
			fmt.Println("subscribe failed:", err)
			return err
		}
		a.feedSub = sub
	}
	printResult(waitResult(a.feedSub))
	return nil
}

func (a *App) Like(ctx context.Context) error {
	postID, err := GetSimpleText(a.reader, "Post id", os.Stdout)
	if err != nil {
		return err
	}
	settled := a.feed.ToggleLike(ctx, postID)
	if err := <-settled; err != nil {
		fmt.Println("like failed:", err)
		return err
	}
	fmt.Println("done")
	return nil
}

func (a *App) Comment(ctx context.Context) error {
	postID, err := GetSimpleText(a.reader, "Post id", os.Stdout)
	if err != nil {
		return err
	}
	text, err := GetSimpleText(a.reader, "Comment", os.Stdout)
	if err != nil {
		return err
	}
	comment, err := a.feed.AddComment(ctx, postID, text)
	if err != nil {
		fmt.Println("comment failed:", err)
		return err
	}
	fmt.Println("added comment", comment.ID)
	return nil
}

func (a *App) Post(ctx context.Context) error {
	text, err := GetSimpleText(a.reader, "Post text (hashtags inline with #)", os.Stdout)
	if err != nil {
		return err
	}
	var hashtags []string
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, "#") && len(word) > 1 {
			hashtags = append(hashtags, strings.TrimPrefix(word, "#"))
		}
	}
	post, err := a.feed.CreatePost(ctx, text, hashtags)
	if err != nil {
		fmt.Println("post failed:", err)
		return err
	}
	fmt.Println("posted", post.ID)
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	sub, err := a.profile.SubscribeProfile(ctx)
	if err != nil {
		fmt.Println("profile failed:", err)
		return err
	}
	defer sub.Close()
	r := waitResult(sub)
	if profile, ok := r.Data.(models.Profile); ok {
		fmt.Printf("%s (%s)\n%s\n", profile.Username, profile.Email, profile.Bio)
		return nil
	}
	printResult(r)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if a.feed.RefreshFeed(ctx, true) {
		fmt.Println("refreshing")
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if a.feedSub != nil {
		a.feedSub.Close()
		a.feedSub = nil
	}
	if err := a.gate.Logout(ctx); err != nil {
		fmt.Println("logout failed:", err)
		return err
	}
	fmt.Println("logged out")
	return nil
}

// waitResult grabs the freshest Result, giving an in-flight fetch a moment
// to land.
func waitResult(sub *querycache.Subscription) querycache.Result {
	select {
	case r := <-sub.Updates():
		if !r.Loading {
			return r
		}
	case <-time.After(2 * time.Second):
	}
	select {
	case r := <-sub.Updates():
		return r
	case <-time.After(2 * time.Second):
		return sub.Current()
	}
}

func printResult(r querycache.Result) {
	switch {
	case r.Skipped:
		fmt.Println("not logged in")
	case r.Err != nil && r.Data == nil:
		fmt.Println("error:", r.Err)
	default:
		if r.Err != nil {
			fmt.Println("showing cached data, refresh failed:", r.Err)
		}
		posts, ok := r.Data.([]models.Post)
		if !ok {
			fmt.Println("no data")
			return
		}
		for _, p := range posts {
			likes := " "
			if p.LikedByCurrentUser {
				likes = "*"
			}
			fmt.Printf("[%s] %s%d likes, %d comments | @%s: %s\n",
				p.ID, likes, p.LikeCount, p.CommentCount, p.AuthorUsername, p.Text)
		}
	}
}
