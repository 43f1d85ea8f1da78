package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/spanlink/spanlink"
	"github.com/spanlink/spanlink/attr"
)

// Post and User mirror the JSONPlaceholder payloads used by the demo
// external-call endpoint.
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PostWithAuthor joins a post with its author.
type PostWithAuthor struct {
	Post   Post `json:"post"`
	Author User `json:"author"`
}

// ExternalAPIClient calls a third-party REST API inside client spans,
// demonstrating traces that cross a synchronous HTTP boundary.
type ExternalAPIClient struct {
	client *resty.Client

	postDesc *spanlink.Descriptor
	userDesc *spanlink.Descriptor
	joinDesc *spanlink.Descriptor
}

func NewExternalAPIClient(baseURL string) *ExternalAPIClient {
	desc := func(method string) *spanlink.Descriptor {
		return spanlink.NewDescriptor("ExternalAPIClient", method,
			spanlink.Kind(spanlink.SpanKindClient),
			spanlink.StaticPairs("peer.service:jsonplaceholder"),
		)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTransport(spanlink.NewTransport(nil))

	return &ExternalAPIClient{
		client:   client,
		postDesc: desc("GetPost"),
		userDesc: desc("GetUser"),
		joinDesc: desc("GetPostWithAuthor"),
	}
}

// GetPostWithAuthor fetches a post and then its author, two sequential
// external calls under one operation span.
func (c *ExternalAPIClient) GetPostWithAuthor(ctx context.Context, postID int) (*PostWithAuthor, error) {
	return spanlink.TracedResult(ctx, c.joinDesc, func(ctx context.Context) (*PostWithAuthor, error) {
		post, err := c.getPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		spanlink.AddEvent(ctx, "post.fetched", map[string]string{
			"post.id":      strconv.Itoa(post.ID),
			"post.user_id": strconv.Itoa(post.UserID),
		})

		author, err := c.getUser(ctx, post.UserID)
		if err != nil {
			return nil, err
		}
		spanlink.AddEvent(ctx, "author.fetched", map[string]string{
			"user.id": strconv.Itoa(author.ID),
		})

		return &PostWithAuthor{Post: *post, Author: *author}, nil
	}, attr.Int("post.id", postID))
}

func (c *ExternalAPIClient) getPost(ctx context.Context, id int) (*Post, error) {
	return spanlink.TracedResult(ctx, c.postDesc, func(ctx context.Context) (*Post, error) {
		var post Post
		resp, err := c.client.R().
			SetContext(ctx).
			SetResult(&post).
			Get(fmt.Sprintf("/posts/%d", id))
		if err != nil {
			return nil, fmt.Errorf("get post %d: %w", id, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("get post %d: HTTP %d", id, resp.StatusCode())
		}
		return &post, nil
	}, attr.Int("post.id", id))
}

func (c *ExternalAPIClient) getUser(ctx context.Context, id int) (*User, error) {
	return spanlink.TracedResult(ctx, c.userDesc, func(ctx context.Context) (*User, error) {
		var user User
		resp, err := c.client.R().
			SetContext(ctx).
			SetResult(&user).
			Get(fmt.Sprintf("/users/%d", id))
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", id, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("get user %d: HTTP %d", id, resp.StatusCode())
		}
		return &user, nil
	}, attr.Int("user.id", id))
}
