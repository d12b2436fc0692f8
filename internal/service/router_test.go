package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rajcricket/Free-Donuts/internal/config"
	"github.com/rajcricket/Free-Donuts/internal/db/models"
	"github.com/rajcricket/Free-Donuts/internal/linkcodec"
	"github.com/rajcricket/Free-Donuts/internal/telegram"
)

func TestDistributionRouter_Route(t *testing.T) {
	t.Parallel()

	router := NewDistributionRouter(new(mockChat), new(mockFileRepo), config.RoutesConfig{
		Products:       map[string]int64{"clips": -500},
		DefaultChannel: -900,
	}, 0)

	dest, err := router.Route("clips")
	require.NoError(t, err)
	assert.Equal(t, int64(-500), dest)

	dest, err = router.Route("movies")
	require.NoError(t, err)
	assert.Equal(t, int64(-900), dest)
}

func TestDistributionRouter_Route_NoDestination(t *testing.T) {
	t.Parallel()

	router := NewDistributionRouter(new(mockChat), new(mockFileRepo), config.RoutesConfig{
		Products: map[string]int64{"clips": -500},
	}, 0)

	_, err := router.Route("movies")
	assert.ErrorIs(t, err, ErrNoDestination)
}

func TestDistributionRouter_Publish_NoDestinationFailsAll(t *testing.T) {
	t.Parallel()

	chat := new(mockChat)
	files := new(mockFileRepo)

	router := NewDistributionRouter(chat, files, config.RoutesConfig{}, 0)

	published, failed := router.Publish(context.Background(), []int64{10, 11}, "clips", "hindi")
	assert.Equal(t, 0, published)
	assert.Equal(t, 2, failed)

	// No destination means nothing is posted anywhere.
	files.AssertNotCalled(t, "ListFilesByIDs")
	chat.AssertNotCalled(t, "SendMedia")
}

func TestDistributionRouter_Publish_LoadErrorFailsAll(t *testing.T) {
	t.Parallel()

	chat := new(mockChat)
	files := new(mockFileRepo)
	files.On("ListFilesByIDs", mock.Anything, []int64{10, 11}).
		Return(nil, errors.New("connection refused"))

	router := NewDistributionRouter(chat, files, config.RoutesConfig{
		Products: map[string]int64{"clips": -500},
	}, 0)

	published, failed := router.Publish(context.Background(), []int64{10, 11}, "clips", "hindi")
	assert.Equal(t, 0, published)
	assert.Equal(t, 2, failed)
}

func TestDistributionRouter_Publish_ItemFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	chat := new(mockChat)
	files := new(mockFileRepo)

	stored := []*models.File{
		{ID: 10, FileID: "vid-a", FileType: models.FileTypeVideo},
		{ID: 11, FileID: "vid-b", FileType: models.FileTypeVideo},
	}
	files.On("ListFilesByIDs", mock.Anything, []int64{10, 11}).Return(stored, nil)

	chat.On("Username").Return("gatewaybot")
	// First item fails through the whole preview chain, second succeeds.
	chat.On("SendMedia", mock.Anything, int64(-500), models.FileTypeVideo, "vid-a", mock.Anything, mock.Anything).
		Return(errors.New("media gone"))
	chat.On("SendText", mock.Anything, int64(-500), mock.Anything, mock.Anything).
		Return(errors.New("channel gone"))
	chat.On("SendMedia", mock.Anything, int64(-500), models.FileTypeVideo, "vid-b", mock.Anything, mock.Anything).
		Return(nil)

	router := NewDistributionRouter(chat, files, config.RoutesConfig{
		Products: map[string]int64{"clips": -500},
	}, 0)

	published, failed := router.Publish(context.Background(), []int64{10, 11}, "clips", "hindi")
	assert.Equal(t, 1, published)
	assert.Equal(t, 1, failed)
}

func TestDistributionRouter_Publish_ArchivesAnnotatedCopy(t *testing.T) {
	t.Parallel()

	chat := new(mockChat)
	files := new(mockFileRepo)

	stored := []*models.File{
		{ID: 10, FileID: "vid-a", FileType: models.FileTypeVideo, Caption: "hello"},
	}
	files.On("ListFilesByIDs", mock.Anything, []int64{10}).Return(stored, nil)

	chat.On("Username").Return("gatewaybot")
	chat.On("SendMedia", mock.Anything, int64(-500), models.FileTypeVideo, "vid-a", mock.Anything, mock.Anything).
		Return(nil)

	var note string
	chat.On("SendMedia", mock.Anything, int64(-700), models.FileTypeVideo, "vid-a", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			note = args.String(4)
		}).
		Return(nil)

	router := NewDistributionRouter(chat, files, config.RoutesConfig{
		Products: map[string]int64{"clips": -500},
	}, -700)

	published, failed := router.Publish(context.Background(), []int64{10}, "clips", "hindi")
	assert.Equal(t, 1, published)
	assert.Equal(t, 0, failed)
	assert.Contains(t, note, "clips / hindi")
}

func TestDistributionRouter_Preview_ThumbnailFirst(t *testing.T) {
	t.Parallel()

	chat := new(mockChat)
	files := new(mockFileRepo)

	thumb := "thumb-1"
	stored := []*models.File{
		{ID: 10, FileID: "vid-a", FileType: models.FileTypeVideo, ThumbID: &thumb},
	}
	files.On("ListFilesByIDs", mock.Anything, []int64{10}).Return(stored, nil)

	chat.On("Username").Return("gatewaybot")
	chat.On("DownloadFile", mock.Anything, "thumb-1").Return([]byte{0xff, 0xd8}, nil)
	chat.On("SendPhotoUpload", mock.Anything, int64(-500), "thumb.jpg", []byte{0xff, 0xd8}, mock.Anything, mock.Anything).
		Return(nil)

	router := NewDistributionRouter(chat, files, config.RoutesConfig{
		Products: map[string]int64{"clips": -500},
	}, 0)

	published, failed := router.Publish(context.Background(), []int64{10}, "clips", "hindi")
	assert.Equal(t, 1, published)
	assert.Equal(t, 0, failed)

	// The original media never reaches the public channel.
	chat.AssertNotCalled(t, "SendMedia")
}

func TestDistributionRouter_Preview_FallsBackToOriginal(t *testing.T) {
	t.Parallel()

	chat := new(mockChat)
	files := new(mockFileRepo)

	thumb := "thumb-1"
	stored := []*models.File{
		{ID: 10, FileID: "vid-a", FileType: models.FileTypeVideo, ThumbID: &thumb},
	}
	files.On("ListFilesByIDs", mock.Anything, []int64{10}).Return(stored, nil)

	chat.On("Username").Return("gatewaybot")
	chat.On("DownloadFile", mock.Anything, "thumb-1").Return(nil, errors.New("file expired"))
	chat.On("SendMedia", mock.Anything, int64(-500), models.FileTypeVideo, "vid-a", mock.Anything, mock.Anything).
		Return(nil)

	router := NewDistributionRouter(chat, files, config.RoutesConfig{
		Products: map[string]int64{"clips": -500},
	}, 0)

	published, failed := router.Publish(context.Background(), []int64{10}, "clips", "hindi")
	assert.Equal(t, 1, published)
	assert.Equal(t, 0, failed)
	chat.AssertNotCalled(t, "SendPhotoUpload")
}

func TestDistributionRouter_Publish_DeepLinkInKeyboard(t *testing.T) {
	t.Parallel()

	chat := new(mockChat)
	files := new(mockFileRepo)

	stored := []*models.File{
		{ID: 42, FileID: "vid-a", FileType: models.FileTypeVideo},
	}
	files.On("ListFilesByIDs", mock.Anything, []int64{42}).Return(stored, nil)

	chat.On("Username").Return("gatewaybot")

	var kb telegram.Keyboard
	chat.On("SendMedia", mock.Anything, int64(-500), mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			kb = args.Get(5).(telegram.Keyboard)
		}).
		Return(nil)

	router := NewDistributionRouter(chat, files, config.RoutesConfig{
		Products: map[string]int64{"clips": -500},
	}, 0)

	published, _ := router.Publish(context.Background(), []int64{42}, "clips", "hindi")
	require.Equal(t, 1, published)

	require.Len(t, kb, 1)
	assert.Equal(t, DeepLink("gatewaybot", linkcodec.Encode(42)), kb[0][0].URL)
}
