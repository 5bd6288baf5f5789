package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()

	assert.NoError(t, r.Publish(ctx, Event{Type: PostCreated, PostID: 1}))
	assert.NoError(t, r.Publish(ctx, Event{Type: FollowCreated, TargetID: 2}))
	assert.Equal(t, []string{PostCreated, FollowCreated}, r.Types())

	events := r.Events()
	events[0].PostID = 99
	assert.Equal(t, 1, r.Events()[0].PostID)

	r.Err = errors.New("broker down")
	assert.Error(t, r.Publish(ctx, Event{Type: PostUpdated}))
	assert.Len(t, r.Events(), 2)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: PostCreated}))
	assert.NoError(t, p.Close())
}

func TestNATSSubject(t *testing.T) {
	p := NewNATS(nil, "")
	assert.Equal(t, "postroom.post.created", p.Subject(PostCreated))
	assert.Equal(t, "blog.follow.deleted", NewNATS(nil, "blog").Subject(FollowDeleted))
}
