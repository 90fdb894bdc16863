package service

import (
	"context"
	"strconv"
	"testing"

	"iskrib/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpinionService_Reply(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := NewOpinionService(e.opinions, e.notifications)
	ctx := context.Background()

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	root := e.fx.Opinion(ana, nil, "thoughts?")

	reply, err := svc.Reply(ctx, ReplyInput{UserID: ben.ID, ParentID: root.ID, Content: "agreed"})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	var n models.OpinionNotification
	require.NoError(t, e.db.Where("receiver_id = ?", ana.ID).First(&n).Error)
	assert.Equal(t, models.NotificationReply, n.Type)
	assert.Equal(t, ben.ID, n.SenderID)

	_, err = svc.Reply(ctx, ReplyInput{UserID: ana.ID, ParentID: root.ID, Content: "self"})
	require.NoError(t, err)
	var count int64
	require.NoError(t, e.db.Model(&models.OpinionNotification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = svc.Reply(ctx, ReplyInput{UserID: ben.ID, ParentID: 999, Content: "lost"})
	assertNotFoundError(t, err)
	_, err = svc.Reply(ctx, ReplyInput{UserID: ben.ID, ParentID: root.ID, Content: ""})
	assertValidationError(t, err)
}

func TestOpinionService_ListReplies(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := NewOpinionService(e.opinions, e.notifications)
	ctx := context.Background()

	ana := e.fx.User("ana")
	root := e.fx.Opinion(ana, nil, "root")
	r1 := e.fx.Opinion(ana, root, "r1")
	r2 := e.fx.Opinion(ana, root, "r2")
	r3 := e.fx.Opinion(ana, root, "r3")

	page, err := svc.ListReplies(ctx, root.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, r3.ID, page.Data[0].ID)
	assert.Equal(t, r2.ID, page.Data[1].ID)
	assert.Equal(t, strconv.FormatUint(uint64(r2.ID), 10), page.NextCursor)

	page, err = svc.ListReplies(ctx, root.ID, 2, &r2.ID)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, r1.ID, page.Data[0].ID)
	assert.False(t, page.HasMore)

	_, err = svc.ListReplies(ctx, 12345, 2, nil)
	assertNotFoundError(t, err)
	_, err = svc.ListReplies(ctx, root.ID, 0, nil)
	assertValidationError(t, err)
}
